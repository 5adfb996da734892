package hooks

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/nanoagent/nanoagent/logger"
)

// HooksFileName is the JSON file read from the global and project
// configuration directories.
const HooksFileName = "hooks.json"

// Sources names the configuration files merged, in precedence order:
// global user config, project-local config, then an explicit path. Later
// sources win.
type Sources struct {
	Global   string
	Project  string
	Explicit string
}

// DefaultSources resolves the standard global and project locations.
// configDirName is the dot-directory (".nanoagent") searched in the home
// and working directories.
func DefaultSources(configDirName, explicit string) Sources {
	var src Sources
	if home, err := os.UserHomeDir(); err == nil {
		src.Global = filepath.Join(home, configDirName, HooksFileName)
	}
	if wd, err := os.Getwd(); err == nil {
		src.Project = filepath.Join(wd, configDirName, HooksFileName)
	}
	src.Explicit = explicit
	return src
}

// fileConfig mirrors the on-disk JSON shape. Scalars are pointers so a
// later source only overrides the settings it actually specifies.
type fileConfig struct {
	Version           *string               `json:"version"`
	Enabled           *bool                 `json:"enabled"`
	TimeoutSeconds    *int                  `json:"timeout_seconds"`
	ParallelExecution *bool                 `json:"parallel_execution"`
	Hooks             map[string][]fileHook `json:"hooks"`
}

type fileHook struct {
	Name      string   `json:"name"`
	Command   string   `json:"command"`
	Enabled   *bool    `json:"enabled"`
	Blocking  bool     `json:"blocking"`
	Timeout   int      `json:"timeout"`
	Contexts  []string `json:"contexts"`
	Matcher   *Matcher `json:"matcher"`
	Condition string   `json:"condition"`
}

// LoadConfiguration reads and merges the hook configuration sources.
// A missing, unreadable or invalid source is skipped with a warning, never
// fatal. Top-level scalars are fully overridden by later sources; the
// per-event hook lists of a later source replace the earlier lists for the
// same event. If no source yields anything, hooks are disabled.
func LoadConfiguration(sources Sources) *Configuration {
	cfg := &Configuration{
		Version:           "1.0",
		Enabled:           true,
		TimeoutSeconds:    60,
		ParallelExecution: true,
		Hooks:             make(map[string][]HookConfig),
	}

	loaded := 0
	for _, path := range []string{sources.Global, sources.Project, sources.Explicit} {
		if path == "" {
			continue
		}
		fc, ok := readSource(path)
		if !ok {
			continue
		}
		loaded++
		mergeSource(cfg, fc)
	}

	if loaded == 0 {
		return &Configuration{Enabled: false, Hooks: map[string][]HookConfig{}}
	}

	validateHooks(cfg)
	return cfg
}

func readSource(path string) (*fileConfig, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn().Str("path", path).Err(err).Msg("skipping unreadable hook configuration")
		}
		return nil, false
	}
	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		logger.Warn().Str("path", path).Err(err).Msg("skipping invalid hook configuration")
		return nil, false
	}
	logger.Debug().Str("path", path).Msg("loaded hook configuration source")
	return &fc, true
}

func mergeSource(cfg *Configuration, fc *fileConfig) {
	if fc.Version != nil {
		cfg.Version = *fc.Version
	}
	if fc.Enabled != nil {
		cfg.Enabled = *fc.Enabled
	}
	if fc.TimeoutSeconds != nil {
		cfg.TimeoutSeconds = *fc.TimeoutSeconds
	}
	if fc.ParallelExecution != nil {
		cfg.ParallelExecution = *fc.ParallelExecution
	}
	for event, list := range fc.Hooks {
		hooks := make([]HookConfig, 0, len(list))
		for _, h := range list {
			enabled := true
			if h.Enabled != nil {
				enabled = *h.Enabled
			}
			hooks = append(hooks, HookConfig{
				Name:      h.Name,
				Command:   h.Command,
				Enabled:   enabled,
				Blocking:  h.Blocking,
				Timeout:   h.Timeout,
				Contexts:  h.Contexts,
				Matcher:   h.Matcher,
				Condition: h.Condition,
			})
		}
		// Replace, never append: the later source owns this event.
		cfg.Hooks[event] = hooks
	}
}

// validateHooks drops rules with invalid matchers so misconfiguration
// fails fast at load instead of silently at trigger time.
func validateHooks(cfg *Configuration) {
	for event, list := range cfg.Hooks {
		kept := list[:0]
		for _, h := range list {
			if h.Matcher != nil {
				if err := h.Matcher.Validate(); err != nil {
					logger.Warn().
						Str("hook", h.Name).
						Str("event", event).
						Err(err).
						Msg("dropping hook with invalid matcher")
					continue
				}
			}
			kept = append(kept, h)
		}
		cfg.Hooks[event] = kept
	}
}
