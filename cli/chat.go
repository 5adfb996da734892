package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nanoagent/nanoagent/agent"
	"github.com/nanoagent/nanoagent/agent/terminal"
	"github.com/nanoagent/nanoagent/errors"
	"github.com/nanoagent/nanoagent/hooks"
	"github.com/nanoagent/nanoagent/llm"
)

var (
	chatSessionID  string
	chatNewSession bool
	chatProvider   string
	chatModel      string
	chatMode       string
	chatVerbosity  string
	chatAgent      string
)

var chatCmd = &cobra.Command{
	Use:   "chat [initial prompt]",
	Short: "Start an interactive conversation",
	Long: `Start an interactive terminal conversation. Without --session the most
recent session is resumed; --new starts a fresh one. End the session
with /quit or /exit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}

		mode, err := parseMode(chatMode)
		if err != nil {
			return err
		}
		verbosity, err := parseVerbosity(chatVerbosity)
		if err != nil {
			return err
		}

		// The persona may narrow the allowed tools, so it applies before
		// the registry is built.
		if err := applyPersona(cfg, chatAgent); err != nil {
			return err
		}

		ctx := cmd.Context()
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		registry, cleanup, err := buildRegistry(ctx, cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		provider := cfg.Provider
		if chatProvider != "" {
			provider = chatProvider
		}
		model := cfg.Model
		if chatModel != "" {
			model = chatModel
		}

		sess, err := store.GetOrCreate("cli", chatSessionID, chatNewSession, provider, model)
		if err != nil {
			return err
		}
		if sess.Temperature == nil {
			sess.Temperature = cfg.Temperature
		}
		if sess.MaxTokens == 0 {
			sess.MaxTokens = cfg.MaxTokens
		}

		client, err := llm.NewClient(ctx, sess.Provider, sess.Model)
		if err != nil {
			return err
		}

		manager := hooks.NewManager(hookSources(cfg), hooks.ContextCLI)
		a := agent.New(cfg, sess, store, client, registry, manager, mode, verbosity)

		cmds, err := commandLoader()
		if err != nil {
			return err
		}

		fmt.Printf("Session %s (%s/%s). Type your prompt, /quit to exit.\n",
			sess.SessionID, sess.Provider, sess.Model)
		return terminal.New(a, cmds).Run(ctx, strings.Join(args, " "))
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatSessionID, "session", "s", "", "Session id to resume")
	chatCmd.Flags().BoolVarP(&chatNewSession, "new", "n", false, "Start a new session")
	chatCmd.Flags().StringVar(&chatProvider, "provider", "", "Model provider: anthropic, openai, ollama, gemini, bedrock")
	chatCmd.Flags().StringVar(&chatModel, "model", "", "Model name")
	chatCmd.Flags().StringVarP(&chatMode, "mode", "m", "prompt", "Tool execution mode: auto or prompt")
	chatCmd.Flags().StringVar(&chatVerbosity, "tool-verbosity", "none", "Tool output detail: none, info or all")
	chatCmd.Flags().StringVar(&chatAgent, "agent", "", "Agent personality to apply (see 'agents list')")

	rootCmd.AddCommand(chatCmd)
}

func parseMode(s string) (agent.Mode, error) {
	switch s {
	case "auto":
		return agent.ModeAuto, nil
	case "prompt":
		return agent.ModePrompt, nil
	default:
		return "", errors.New("invalid mode %q, must be 'auto' or 'prompt'", s)
	}
}

func parseVerbosity(s string) (agent.ToolVerbosity, error) {
	switch s {
	case "none":
		return agent.ToolVerbosityNone, nil
	case "info":
		return agent.ToolVerbosityInfo, nil
	case "all":
		return agent.ToolVerbosityAll, nil
	default:
		return "", errors.New("invalid tool verbosity %q, must be 'none', 'info' or 'all'", s)
	}
}
