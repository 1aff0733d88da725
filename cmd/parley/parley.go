// Package parleycmder
package parleycmder

import (
	chatcmder "github.com/latchfield/parley/cmd/parley/chat"
	configcmder "github.com/latchfield/parley/cmd/parley/config"
	saycmder "github.com/latchfield/parley/cmd/parley/say"
	servecmder "github.com/latchfield/parley/cmd/parley/serve"
	versioncmder "github.com/latchfield/parley/cmd/version"
	"github.com/spf13/cobra"
)

const parleyLongDesc string = `Parley is a streaming relay and voice chat client for LLMs.

Run the relay with:
  parley serve         Run the SSE relay server

Talk to it with:
  parley chat          Interactive chat through the relay
  parley say <text>    Synthesize speech for the given text`

const parleyShortDesc string = "Parley - Voice chat relay"

func NewParleyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parley",
		Short: parleyShortDesc,
		Long:  parleyLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .parley/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(saycmder.NewSayCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
