package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nanoagent/nanoagent/hooks"
	"github.com/nanoagent/nanoagent/mcpserver"
)

var serveClientID string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the agent over the Model Context Protocol on stdio",
	Long: `Run as an MCP server. The connecting client drives conversations
through the prompt_agent tool; sessions are kept per client id so
separate clients never share history. Stale sessions are expired by a
background janitor.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}

		clientID := serveClientID
		if clientID == "" {
			clientID = os.Getenv("NANO_MCP_CLIENT")
		}
		if clientID == "" {
			clientID = "mcp-client"
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		registry, cleanup, err := buildRegistry(ctx, cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		manager := hooks.NewManager(hookSources(cfg), hooks.ContextMCP)
		return mcpserver.New(cfg, store, registry, manager, clientID).Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveClientID, "client-id", "", "Client identity for session scoping (default $NANO_MCP_CLIENT or 'mcp-client')")

	rootCmd.AddCommand(serveCmd)
}
