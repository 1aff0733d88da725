// Package saycmder provides the say command for one-shot speech synthesis
// through the parley relay.
package saycmder

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/latchfield/parley/pkg/cliui"
	"github.com/latchfield/parley/pkg/config"
	"github.com/latchfield/parley/pkg/logger"
	"github.com/latchfield/parley/pkg/speech"
)

type sayCommander struct {
	target string
	output string
	raw    bool
}

const sayLongDesc string = `Synthesize speech for the given text.

Sends the text to the relay's /api/tts endpoint and writes the audio
payload to the output file. Markdown markup is stripped before synthesis
unless --raw is given. Use "-" as the output to write audio to stdout.

Examples:
  parley say "hello there"
  parley say --output reply.mp3 "hello there"
  parley say --raw "twelve point five" -o - > reply.mp3`

const sayShortDesc string = "Synthesize speech for the given text"

func NewSayCmd() *cobra.Command {
	cmder := &sayCommander{}

	cmd := &cobra.Command{
		Use:   "say <text>",
		Short: sayShortDesc,
		Long:  sayLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("target") {
				cmder.target = cfg.Client.Target
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			debug, err := cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(strings.Join(args, " "), debug)
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVarP(&cmder.target, "target", "t", defaults.Client.Target, "Parley relay URL")
	cmd.Flags().StringVarP(&cmder.output, "output", "o", "say.mp3", "Output audio file (\"-\" for stdout)")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Send text as-is without stripping markup")

	return cmd
}

func (c *sayCommander) run(text string, debug bool) error {
	l := logger.New(logger.WithPretty(true), logger.WithDebug(debug))

	if !c.raw {
		text = speech.SpeakableText(text)
	}
	if text == "" {
		return fmt.Errorf("nothing speakable in the given text")
	}

	endpoint := strings.TrimSuffix(c.target, "/") + "/api/tts"
	synth := speech.NewClient(endpoint)

	l.Debug("requesting synthesis", "endpoint", endpoint, "chars", len(text))

	var audio []byte
	err := cliui.Step(os.Stderr, "Synthesizing speech", func() error {
		var synthErr error
		audio, synthErr = synth.Synthesize(context.Background(), text)
		return synthErr
	})
	if err != nil {
		return fmt.Errorf("synthesizing speech: %w", err)
	}

	if c.output == "-" {
		if _, err := os.Stdout.Write(audio); err != nil {
			return fmt.Errorf("writing audio: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(c.output, audio, 0o644); err != nil {
		return fmt.Errorf("writing audio: %w", err)
	}

	fmt.Printf("  %s Wrote %s %s\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(c.output),
		cliui.DimStyle.Render(fmt.Sprintf("(%d bytes)", len(audio))),
	)
	return nil
}
