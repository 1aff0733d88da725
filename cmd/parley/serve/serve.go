// Package servecmder provides the serve command for running the relay server.
package servecmder

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/latchfield/parley/pkg/config"
	"github.com/latchfield/parley/pkg/llm/provider"
	_ "github.com/latchfield/parley/pkg/llm/provider/openai"
	"github.com/latchfield/parley/pkg/logger"
	"github.com/latchfield/parley/pkg/speech"
	"github.com/latchfield/parley/pkg/upstream"
	"github.com/latchfield/parley/relay"
)

type ServeCommander struct {
	listen       string
	upstreamURL  string
	providerType string
	model        string
	ttsTarget    string
	debug        bool
	logger       *zap.Logger
}

// serveFlags is the flag registry for the serve command.
var serveFlags = config.FlagSet{
	config.FlagListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "relay.listen",
		Description: "Address for the relay to listen on",
	},
	config.FlagUpstream: {
		Name:        "upstream",
		Shorthand:   "u",
		ViperKey:    "relay.upstream",
		Description: "Upstream LLM provider URL",
	},
	config.FlagProvider: {
		Name:        "provider",
		ViperKey:    "relay.provider",
		Description: "LLM provider wire format (openai)",
	},
	config.FlagModel: {
		Name:        "model",
		Shorthand:   "m",
		ViperKey:    "relay.model",
		Description: "Model name passed to the upstream provider",
	},
	config.FlagTTSTarget: {
		Name:        "tts-target",
		ViperKey:    "tts.target",
		Description: "Speech synthesis endpoint URL (empty disables /api/tts)",
	},
}

const serveLongDesc string = `Run the parley relay server.

The relay accepts conversation submissions on POST /api/chat, opens a
streaming request against the configured upstream provider, and re-emits
each token as a server-sent event. When a speech synthesis backend is
configured via --tts-target (or tts.target), the relay also exposes
POST /api/tts.

The upstream API key is read from the PARLEY_RELAY_API_KEY environment
variable and is never stored in config.toml.

Examples:
  parley serve
  parley serve --upstream http://localhost:11434 --model gemma3:latest
  parley serve --tts-target http://localhost:5002/api/tts`

const serveShortDesc string = "Run the parley relay server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	var v *viper.Viper

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			var err error
			v, err = config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("initializing config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, serveFlags, []string{
				config.FlagListen,
				config.FlagUpstream,
				config.FlagProvider,
				config.FlagModel,
				config.FlagTTSTarget,
			})

			cmder.listen = v.GetString("relay.listen")
			cmder.upstreamURL = v.GetString("relay.upstream")
			cmder.providerType = v.GetString("relay.provider")
			cmder.model = v.GetString("relay.model")
			cmder.ttsTarget = v.GetString("tts.target")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			return cmder.run(v.GetString("relay.api_key"))
		},
	}

	config.AddStringFlag(cmd, serveFlags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, serveFlags, config.FlagUpstream, &cmder.upstreamURL)
	config.AddStringFlag(cmd, serveFlags, config.FlagProvider, &cmder.providerType)
	config.AddStringFlag(cmd, serveFlags, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, serveFlags, config.FlagTTSTarget, &cmder.ttsTarget)

	return cmd
}

func (c *ServeCommander) run(apiKey string) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	prov, err := provider.New(c.providerType)
	if err != nil {
		return fmt.Errorf("creating provider: %w", err)
	}

	client := upstream.NewClient(upstream.Config{
		BaseURL: c.upstreamURL,
		APIKey:  apiKey,
		Model:   c.model,
	}, prov)

	relayConfig := relay.Config{
		ListenAddr: c.listen,
	}
	if c.ttsTarget != "" {
		relayConfig.Synth = speech.NewClient(c.ttsTarget)
	}

	r, err := relay.New(relayConfig, client, c.logger)
	if err != nil {
		return fmt.Errorf("creating relay: %w", err)
	}
	defer r.Close()

	c.logger.Info("starting relay",
		zap.String("listen", c.listen),
		zap.String("upstream", c.upstreamURL),
		zap.String("provider", c.providerType),
		zap.String("model", c.model),
		zap.Bool("tts", c.ttsTarget != ""),
	)

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)

	go func() {
		if err := r.Run(); err != nil {
			errChan <- fmt.Errorf("relay error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return nil
	}
}
