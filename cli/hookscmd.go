package cli

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/nanoagent/nanoagent/hooks"
)

var (
	hooksTestTool     string
	hooksTestBlocking bool
)

var hooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "Inspect and test the hook configuration",
}

var hooksListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the effective merged hook configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}

		hookCfg := hooks.LoadConfiguration(hookSources(cfg))
		out := cmd.OutOrStdout()
		if !hookCfg.Enabled {
			fmt.Fprintln(out, "Hooks are disabled.")
			return nil
		}

		fmt.Fprintf(out, "Hooks enabled (default timeout %ds, parallel=%v)\n",
			hookCfg.TimeoutSeconds, hookCfg.ParallelExecution)

		events := make([]string, 0, len(hookCfg.Hooks))
		for event := range hookCfg.Hooks {
			events = append(events, event)
		}
		sort.Strings(events)

		for _, event := range events {
			list := hookCfg.Hooks[event]
			if len(list) == 0 {
				continue
			}
			fmt.Fprintf(out, "\n%s:\n", event)
			for _, h := range list {
				state := "enabled"
				if !h.Enabled {
					state = "disabled"
				}
				kind := "non-blocking"
				if h.Blocking {
					kind = "blocking"
				}
				fmt.Fprintf(out, "  %-20s %s, %s: %s\n", h.Name, state, kind, h.Command)
			}
		}
		return nil
	},
}

var hooksTestCmd = &cobra.Command{
	Use:   "test <event>",
	Short: "Trigger an event with synthetic data and show each hook's result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}

		wd, err := os.Getwd()
		if err != nil {
			return err
		}

		manager := hooks.NewManager(hookSources(cfg), hooks.ContextCLI)
		data := &hooks.EventData{
			WorkingDir: wd,
			SessionID:  "session_test",
			Model:      cfg.Model,
			Provider:   cfg.Provider,
			ToolName:   hooksTestTool,
		}

		res := manager.Trigger(cmd.Context(), hooks.Event(args[0]), data, hooksTestBlocking)

		out := cmd.OutOrStdout()
		if res.HooksExecuted == 0 {
			fmt.Fprintln(out, "No hooks matched.")
			return nil
		}

		for _, r := range res.Results {
			status := "ok"
			if !r.Success {
				status = fmt.Sprintf("failed (exit %d)", r.ExitCode)
			}
			fmt.Fprintf(out, "%-20s %s in %s\n", r.HookName, status, r.ExecutionTime.Round(time.Millisecond))
			if r.Stdout != "" {
				fmt.Fprintf(out, "  stdout: %s\n", r.Stdout)
			}
			if r.Stderr != "" {
				fmt.Fprintf(out, "  stderr: %s\n", r.Stderr)
			}
			if r.Error != "" {
				fmt.Fprintf(out, "  error:  %s\n", r.Error)
			}
		}
		if res.Blocked {
			fmt.Fprintf(out, "\nBlocked: %s\n", res.BlockingReason())
		}
		fmt.Fprintf(out, "\n%d hooks in %s\n", res.HooksExecuted, res.TotalTime)
		return nil
	},
}

func init() {
	hooksTestCmd.Flags().StringVar(&hooksTestTool, "tool", "write_file", "Tool name to put in the event data")
	hooksTestCmd.Flags().BoolVar(&hooksTestBlocking, "blocking", true, "Run the hooks sequentially as a blocking trigger")

	hooksCmd.AddCommand(hooksListCmd, hooksTestCmd)
	rootCmd.AddCommand(hooksCmd)
}
