// Package chatcmder provides the chat command for interactive voice-style
// chat through the parley relay.
package chatcmder

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/latchfield/parley/pkg/chat"
	"github.com/latchfield/parley/pkg/cliui"
	"github.com/latchfield/parley/pkg/config"
	"github.com/latchfield/parley/pkg/dotdir"
	"github.com/latchfield/parley/pkg/logger"
	"github.com/latchfield/parley/pkg/speech"
	"github.com/latchfield/parley/pkg/store"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
)

type chatCommander struct {
	target    string
	ttsTarget string
	speechOut string
	stateDir  string
	debug     bool

	logger *zap.Logger
}

const chatLongDesc string = `Start an interactive chat session through the parley relay.

Each message is submitted to the relay, which streams the reply token by
token. The conversation history and settings (system prompt, auto-speak)
persist across sessions in the local state database.

When the relay has a speech backend configured, completed replies are
synthesized and the audio is written to the --speech-out file so an
external player can pick it up.

Slash commands inside the session:
  /clear            Wipe the conversation history
  /prompt [text]    Set the system prompt (no text restores the default)
  /speak on|off     Toggle speaking replies aloud
  /exit             Quit

Examples:
  parley chat
  parley chat --target http://localhost:8080
  parley chat --speech-out /tmp/reply.mp3`

const chatShortDesc string = "Interactive chat through the parley relay"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
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
			if !cmd.Flags().Changed("tts-target") {
				cmder.ttsTarget = cfg.TTS.Target
			}
			if !cmd.Flags().Changed("state-dir") {
				cmder.stateDir = cfg.Storage.StateDir
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVarP(&cmder.target, "target", "t", defaults.Client.Target, "Parley relay URL")
	cmd.Flags().StringVar(&cmder.ttsTarget, "tts-target", defaults.TTS.Target, "Speech synthesis endpoint URL")
	cmd.Flags().StringVar(&cmder.speechOut, "speech-out", "", "File to write synthesized reply audio to")
	cmd.Flags().StringVar(&cmder.stateDir, "state-dir", defaults.Storage.StateDir, "State database directory")

	return cmd
}

func (c *chatCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	ctx := context.Background()

	state, err := c.openState()
	if err != nil {
		return err
	}
	defer state.Close()

	speaker := c.buildSpeaker()

	sink := newConsoleSink(os.Stdout, os.Stderr)

	client := chat.NewRelayClient(c.target)
	controller, err := chat.NewController(ctx, client, chat.Options{
		Sink:    sink,
		State:   state,
		Speaker: speaker,
		Logger:  c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating controller: %w", err)
	}

	c.printHeader(controller)

	recognizer := speech.NewLineRecognizer(os.Stdin)
	return recognizer.Start(ctx, speech.Events{
		OnResult: func(text string) {
			if strings.HasPrefix(text, "/") {
				if quit := c.handleCommand(ctx, controller, text); quit {
					recognizer.Stop()
				}
				fmt.Print(userPrompt)
				return
			}

			if err := controller.Submit(text); err != nil {
				fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
				fmt.Print(userPrompt)
				return
			}

			// One request at a time: block until the reply finishes or
			// fails before offering the next prompt.
			sink.wait()
			fmt.Print(userPrompt)
		},
	})
}

// handleCommand executes a slash command. Returns true when the session
// should end.
func (c *chatCommander) handleCommand(ctx context.Context, controller *chat.Controller, input string) bool {
	cmd, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "/exit":
		return true

	case "/clear":
		controller.Clear()
		fmt.Printf("  %s History cleared\n", cliui.SuccessMark)

	case "/prompt":
		if err := controller.SetSystemPrompt(ctx, rest); err != nil {
			fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
			break
		}
		if rest == "" {
			fmt.Printf("  %s System prompt restored to default\n", cliui.SuccessMark)
		} else {
			fmt.Printf("  %s System prompt updated\n", cliui.SuccessMark)
		}

	case "/speak":
		switch rest {
		case "on", "off":
			if err := controller.SetAutoSpeak(ctx, rest == "on"); err != nil {
				fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
				break
			}
			fmt.Printf("  %s Auto-speak %s\n", cliui.SuccessMark, rest)
		default:
			fmt.Printf("  %s Usage: /speak on|off\n", cliui.DimStyle.Render("●"))
		}

	default:
		fmt.Printf("  %s Unknown command %q\n", cliui.DimStyle.Render("●"), cmd)
	}

	return false
}

func (c *chatCommander) printHeader(controller *chat.Controller) {
	fmt.Println()
	history := controller.History()
	if len(history) > 0 {
		fmt.Printf("  %s Resuming conversation %s\n",
			cliui.SuccessMark,
			cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", len(history))),
		)
	} else {
		fmt.Printf("  %s New conversation\n", cliui.DimStyle.Render("●"))
	}

	fmt.Printf("  %s %s\n\n",
		cliui.KeyStyle.Render("Relay:"),
		cliui.NameStyle.Render(c.target),
	)
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))
	fmt.Print(userPrompt)
}

// openState opens the persistent state database under the resolved .parley/
// directory, or under --state-dir when given.
func (c *chatCommander) openState() (*store.StateStore, error) {
	dir := c.stateDir
	if dir == "" {
		resolved, err := dotdir.NewManager().StateDir("")
		if err != nil {
			return nil, fmt.Errorf("resolving state dir: %w", err)
		}
		dir = resolved
	}

	kv, err := store.NewBadger(store.BadgerOptions{Dir: dir})
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}
	c.logger.Debug("opened state database", zap.String("dir", dir))
	return store.NewStateStore(kv), nil
}

// buildSpeaker wires the synthesis client to a file-backed player. Nil when
// no synthesis backend is configured.
func (c *chatCommander) buildSpeaker() *speech.Coordinator {
	if c.ttsTarget == "" || c.speechOut == "" {
		return nil
	}
	synth := speech.NewClient(c.ttsTarget)
	return speech.NewCoordinator(synth, &filePlayer{path: c.speechOut})
}
