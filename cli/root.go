// Package cli wires the cobra command tree: interactive chat, one-shot
// prompts, the MCP server mode and the session/hook maintenance commands.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/nanoagent/nanoagent/commands"
	"github.com/nanoagent/nanoagent/config"
	"github.com/nanoagent/nanoagent/errors"
	"github.com/nanoagent/nanoagent/hooks"
	"github.com/nanoagent/nanoagent/logger"
	"github.com/nanoagent/nanoagent/persona"
	"github.com/nanoagent/nanoagent/session"
	"github.com/nanoagent/nanoagent/tools"
	"github.com/nanoagent/nanoagent/tools/mcp"
)

// Version information set via ldflags
var (
	Version = "dev"
	Commit  = "none"
)

var (
	logLevel    string
	logFile     string
	hooksConfig string
	quiet       bool
)

var rootCmd = &cobra.Command{
	Use:   "nanoagent",
	Short: "A small LLM agent with lifecycle hooks",
	Long: `Nanoagent is a local agent front-end for chat models with tool use,
persistent sessions and user-defined lifecycle hooks.

It runs interactively (chat), as a one-shot command (run), or as an MCP
server over stdio (serve). Configure it in:
  - ~/.nanoagent/config.yaml (global)
  - .nanoagent/config.yaml   (project-specific)

Hooks are configured separately in hooks.json in the same directories.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("nanoagent %s (%s)\n", Version, Commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this file")
	rootCmd.PersistentFlags().StringVar(&hooksConfig, "hooks-config", "", "Extra hook configuration file, merged last")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress log output")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setup loads the configuration and initializes logging from the
// persistent flags.
func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if quiet {
		logger.InitQuiet()
	} else if err := logger.Init(cfg.LogLevel, logFile); err != nil {
		return nil, errors.Wrap(err, "failed to initialize logging")
	}
	return cfg, nil
}

// hookSources resolves the hook configuration files, honoring the
// --hooks-config flag over the configured path.
func hookSources(cfg *config.Config) hooks.Sources {
	explicit := cfg.HooksConfigPath
	if hooksConfig != "" {
		explicit = hooksConfig
	}
	return hooks.DefaultSources(config.ConfigDirName, explicit)
}

// openStore opens the session store at the configured directory.
func openStore(cfg *config.Config) (*session.Store, error) {
	dir, err := cfg.SessionDir()
	if err != nil {
		return nil, err
	}
	return session.NewStore(dir)
}

// commandLoader opens the user command template directory.
func commandLoader() (*commands.Loader, error) {
	dir, err := config.CommandsDir()
	if err != nil {
		return nil, err
	}
	return commands.NewLoader(dir)
}

// personaLoader opens the agent personality directory.
func personaLoader() (*persona.Loader, error) {
	dir, err := config.AgentsDir()
	if err != nil {
		return nil, err
	}
	return persona.NewLoader(dir)
}

// applyPersona extends the configured system prompt with the named
// personality and narrows the allowed tools when the persona declares any.
func applyPersona(cfg *config.Config, name string) error {
	if name == "" {
		return nil
	}
	loader, err := personaLoader()
	if err != nil {
		return err
	}
	p, err := loader.Load(name)
	if err != nil {
		return err
	}
	cfg.SystemPrompt = persona.ExtendSystemPrompt(cfg.SystemPrompt, p)
	if len(p.Tools) > 0 {
		cfg.Permissions.AllowedTools = p.Tools
	}
	return nil
}

// buildRegistry assembles the tool registry: built-in filesystem tools
// under the configured permissions, plus tools from any additional MCP
// servers. The returned cleanup closes the server connections.
func buildRegistry(ctx context.Context, cfg *config.Config) (*tools.Registry, func(), error) {
	perms := &tools.Permissions{
		AllowedTools: cfg.Permissions.AllowedTools,
		BlockedTools: cfg.Permissions.BlockedTools,
		AllowedPaths: cfg.Permissions.AllowedPaths,
		BlockedPaths: cfg.Permissions.BlockedPaths,
		ReadOnly:     cfg.Permissions.ReadOnly,
	}
	registry := tools.NewRegistry(perms)

	var clients []*mcp.Client
	cleanup := func() {
		for _, c := range clients {
			if err := c.Close(); err != nil {
				logger.Warn().Str("server", c.Name).Err(err).Msg("failed to close MCP server")
			}
		}
	}

	for _, server := range cfg.AdditionalMCPServers {
		client, err := mcp.Connect(ctx, server.Name, server.Command, server.Args)
		if err != nil {
			logger.Warn().Str("server", server.Name).Err(err).Msg("skipping unreachable MCP server")
			continue
		}
		clients = append(clients, client)
		for _, t := range client.Tools() {
			registry.Register(t)
		}
	}

	return registry, cleanup, nil
}
