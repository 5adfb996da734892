package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	agentCreateOverwrite bool
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Manage agent personalities",
	Long: `Agent personalities are markdown files in ~/.nanoagent/agents/, with
optional YAML frontmatter (name, description, keywords, tools). Pick one
with --agent on chat or run; its body extends the system prompt.`,
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available agent personalities",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := setup(); err != nil {
			return err
		}
		loader, err := personaLoader()
		if err != nil {
			return err
		}

		personas, err := loader.List()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, p := range personas {
			desc := p.Description
			if desc == "" {
				desc = "(no description)"
			}
			fmt.Fprintf(out, "%-20s %s\n", p.Name, desc)
			if len(p.Tools) > 0 {
				fmt.Fprintf(out, "%-20s tools: %s\n", "", strings.Join(p.Tools, ", "))
			}
		}
		fmt.Fprintf(out, "\nAgents directory: %s\n", loader.Dir())
		return nil
	},
}

var agentsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an agent personality template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := setup(); err != nil {
			return err
		}
		loader, err := personaLoader()
		if err != nil {
			return err
		}

		path, err := loader.CreateTemplate(args[0], agentCreateOverwrite)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\nEdit the file to customize the agent's behavior.\n", path)
		return nil
	},
}

var agentsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show an agent's prompt extension",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := setup(); err != nil {
			return err
		}
		loader, err := personaLoader()
		if err != nil {
			return err
		}

		p, err := loader.Load(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Agent: %s\n", p.Name)
		if p.Description != "" {
			fmt.Fprintf(out, "Description: %s\n", p.Description)
		}
		if len(p.Keywords) > 0 {
			fmt.Fprintf(out, "Keywords: %s\n", strings.Join(p.Keywords, ", "))
		}
		if len(p.Tools) > 0 {
			fmt.Fprintf(out, "Tools: %s\n", strings.Join(p.Tools, ", "))
		}
		fmt.Fprintf(out, "\n%s\n", p.Content)
		return nil
	},
}

func init() {
	agentsCreateCmd.Flags().BoolVar(&agentCreateOverwrite, "overwrite", false, "Replace the agent if it exists")

	agentsCmd.AddCommand(agentsListCmd, agentsCreateCmd, agentsShowCmd)
	rootCmd.AddCommand(agentsCmd)
}
