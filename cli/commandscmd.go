package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	commandCreateOverwrite bool
)

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "Manage user command templates",
	Long: `Command templates are markdown files in ~/.nanoagent/commands/. A prompt
starting with /name expands the matching template, substituting the rest
of the input for $ARGUMENTS.`,
}

var commandsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available commands",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := setup(); err != nil {
			return err
		}
		loader, err := commandLoader()
		if err != nil {
			return err
		}

		cmds, err := loader.List()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(cmds) == 0 {
			fmt.Fprintf(out, "No commands found in %s\n", loader.Dir())
			fmt.Fprintln(out, "Create one with: nanoagent commands create <name>")
			return nil
		}
		for _, c := range cmds {
			fmt.Fprintf(out, "/%-20s %s\n", c.Name, c.Description)
		}
		fmt.Fprintf(out, "\nCommands directory: %s\n", loader.Dir())
		return nil
	},
}

var commandsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a command template file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := setup(); err != nil {
			return err
		}
		loader, err := commandLoader()
		if err != nil {
			return err
		}

		path, err := loader.CreateTemplate(args[0], commandCreateOverwrite)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
		return nil
	},
}

var commandsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a command's description and prompt template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := setup(); err != nil {
			return err
		}
		loader, err := commandLoader()
		if err != nil {
			return err
		}

		c, err := loader.Load(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "/%s: %s\n\n%s\n", c.Name, c.Description, c.PromptTemplate)
		return nil
	},
}

var commandsEditCmd = &cobra.Command{
	Use:   "edit <name>",
	Short: "Open a command file in $EDITOR",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := setup(); err != nil {
			return err
		}
		loader, err := commandLoader()
		if err != nil {
			return err
		}
		if _, err := loader.Load(args[0]); err != nil {
			return err
		}

		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "vi"
		}
		edit := exec.CommandContext(cmd.Context(), editor, filepath.Join(loader.Dir(), args[0]+".md"))
		edit.Stdin = os.Stdin
		edit.Stdout = os.Stdout
		edit.Stderr = os.Stderr
		return edit.Run()
	},
}

func init() {
	commandsCreateCmd.Flags().BoolVar(&commandCreateOverwrite, "overwrite", false, "Replace the command if it exists")

	commandsCmd.AddCommand(commandsListCmd, commandsCreateCmd, commandsShowCmd, commandsEditCmd)
	rootCmd.AddCommand(commandsCmd)
}
