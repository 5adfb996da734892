package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nanoagent/nanoagent/agent"
	"github.com/nanoagent/nanoagent/commands"
	"github.com/nanoagent/nanoagent/hooks"
	"github.com/nanoagent/nanoagent/llm"
)

var (
	runSessionID  string
	runNewSession bool
	runProvider   string
	runModel      string
	runAgent      string
)

var runCmd = &cobra.Command{
	Use:   "run <prompt>",
	Short: "Send a single prompt and print the response",
	Long: `Process one prompt and exit. The exchange is appended to the session,
so repeated runs continue the same conversation. Tools execute without
confirmation.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}

		if err := applyPersona(cfg, runAgent); err != nil {
			return err
		}

		prompt := strings.Join(args, " ")
		if name, arguments, ok := commands.ParseInvocation(prompt); ok {
			loader, err := commandLoader()
			if err != nil {
				return err
			}
			prompt, err = loader.Expand(name, arguments)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "List available commands with: nanoagent commands list")
				return err
			}
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
		if runProvider != "" {
			provider = runProvider
		}
		model := cfg.Model
		if runModel != "" {
			model = runModel
		}

		sess, err := store.GetOrCreate("cli", runSessionID, runNewSession, provider, model)
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
		a := agent.New(cfg, sess, store, client, registry, manager, agent.ModeAuto, agent.ToolVerbosityNone)

		if err := a.Start(ctx); err != nil {
			return err
		}
		defer a.Shutdown(ctx)

		response, err := a.ProcessUserInput(ctx, prompt, agent.ProcessCallbacks{
			OnWarning: func(warning string) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Warning:", warning)
			},
		})
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), response)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&runSessionID, "session", "s", "", "Session id to continue")
	runCmd.Flags().BoolVarP(&runNewSession, "new", "n", false, "Start a new session")
	runCmd.Flags().StringVar(&runProvider, "provider", "", "Model provider: anthropic, openai, ollama, gemini, bedrock")
	runCmd.Flags().StringVar(&runModel, "model", "", "Model name")
	runCmd.Flags().StringVar(&runAgent, "agent", "", "Agent personality to apply (see 'agents list')")

	rootCmd.AddCommand(runCmd)
}
