// Package config loads the layered application configuration. A user-level
// file in ~/.nanoagent is read first, then a project-level .nanoagent file
// overrides it field by field. Hook configuration is deliberately not part
// of this file; the hooks package loads its own JSON sources.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/nanoagent/nanoagent/errors"
	"github.com/nanoagent/nanoagent/logger"
)

// ConfigDirName is the dot-directory searched in the home and project dirs.
const ConfigDirName = ".nanoagent"

// MCPServer describes an external MCP tool server started as a subprocess.
type MCPServer struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// Permissions mirrors the tool permission contract. Deny always wins over
// allow; see tools.Permissions for the resolution order.
type Permissions struct {
	AllowedTools []string `yaml:"allowed_tools"`
	BlockedTools []string `yaml:"blocked_tools"`
	AllowedPaths []string `yaml:"allowed_paths"`
	BlockedPaths []string `yaml:"blocked_paths"`
	ReadOnly     bool     `yaml:"read_only"`
}

// SessionSettings controls conversation persistence.
type SessionSettings struct {
	// Dir overrides the session storage directory
	// (default ~/.nanoagent/sessions).
	Dir string `yaml:"dir"`
	// MaxContextMessages bounds the history window sent to the model.
	MaxContextMessages int `yaml:"max_context_messages"`
	// ExpireAfterDays is the retention used by the serve-mode janitor.
	ExpireAfterDays int `yaml:"expire_after_days"`
}

// Config is the merged application configuration.
type Config struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	SystemPrompt string `yaml:"system_prompt"`
	LogLevel     string `yaml:"log_level"`

	Permissions Permissions     `yaml:"permissions"`
	Sessions    SessionSettings `yaml:"sessions"`

	AdditionalMCPServers []MCPServer `yaml:"additional_mcp_servers"`

	// HooksConfigPath is an explicit extra hook configuration source,
	// merged after the global and project files.
	HooksConfigPath string `yaml:"hooks_config"`
}

// Load reads the user-level and project-level configuration files, with the
// latter taking precedence. A missing or unreadable file is skipped with a
// warning; Load never fails because of a bad source.
func Load() (*Config, error) {
	cfg := &Config{
		Provider: "openai",
		Model:    "gpt-5-mini",
		LogLevel: "info",
		Sessions: SessionSettings{
			MaxContextMessages: 20,
			ExpireAfterDays:    30,
		},
	}
	// Keep the agent out of its own state directory.
	cfg.Permissions.BlockedPaths = append(cfg.Permissions.BlockedPaths,
		ConfigDirName, ConfigDirName+"/**")

	if home, err := os.UserHomeDir(); err == nil {
		mergeFile(filepath.Join(home, ConfigDirName, "config.yaml"), cfg)
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrapf(err, "could not get working directory")
	}
	mergeFile(filepath.Join(wd, ConfigDirName, "config.yaml"), cfg)

	return cfg, nil
}

// mergeFile unmarshals path into cfg. Fields present in the file overwrite
// the current values, which gives the project-over-user precedence.
func mergeFile(path string, cfg *Config) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn().Str("path", path).Err(err).Msg("skipping unreadable config file")
		}
		return
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		logger.Warn().Str("path", path).Err(err).Msg("skipping invalid config file")
	}
}

// CommandsDir resolves the user command template directory.
func CommandsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrapf(err, "could not resolve home directory")
	}
	return filepath.Join(home, ConfigDirName, "commands"), nil
}

// AgentsDir resolves the agent personality directory.
func AgentsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrapf(err, "could not resolve home directory")
	}
	return filepath.Join(home, ConfigDirName, "agents"), nil
}

// SessionDir resolves the session storage directory.
func (c *Config) SessionDir() (string, error) {
	if c.Sessions.Dir != "" {
		return c.Sessions.Dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrapf(err, "could not resolve home directory")
	}
	return filepath.Join(home, ConfigDirName, "sessions"), nil
}
