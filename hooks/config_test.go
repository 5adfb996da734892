package hooks

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeHooksFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, HooksFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigurationNoSources(t *testing.T) {
	cfg := LoadConfiguration(Sources{
		Global:  filepath.Join(t.TempDir(), "missing.json"),
		Project: filepath.Join(t.TempDir(), "missing.json"),
	})
	assert.False(t, cfg.Enabled)
	assert.Empty(t, cfg.Hooks)
}

func TestLoadConfigurationSingleSource(t *testing.T) {
	path := writeHooksFile(t, t.TempDir(), `{
		"version": "1.0",
		"hooks": {
			"pre_tool_use": [
				{"name": "audit", "command": "echo audit", "blocking": true}
			]
		}
	}`)

	cfg := LoadConfiguration(Sources{Global: path})
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 60, cfg.TimeoutSeconds)
	assert.True(t, cfg.ParallelExecution)

	require.Len(t, cfg.Hooks["pre_tool_use"], 1)
	hook := cfg.Hooks["pre_tool_use"][0]
	assert.Equal(t, "audit", hook.Name)
	assert.True(t, hook.Enabled, "hook enabled should default to true")
	assert.True(t, hook.Blocking)
}

func TestLoadConfigurationMergeReplacesEventLists(t *testing.T) {
	global := writeHooksFile(t, t.TempDir(), `{
		"timeout_seconds": 30,
		"hooks": {
			"pre_tool_use": [
				{"name": "global-audit", "command": "echo g1"},
				{"name": "global-guard", "command": "echo g2", "blocking": true}
			],
			"session_start": [
				{"name": "greet", "command": "echo hi"}
			]
		}
	}`)
	project := writeHooksFile(t, t.TempDir(), `{
		"parallel_execution": false,
		"hooks": {
			"pre_tool_use": [
				{"name": "project-audit", "command": "echo p1"}
			]
		}
	}`)

	cfg := LoadConfiguration(Sources{Global: global, Project: project})

	// The project list replaces the global list for the same event.
	require.Len(t, cfg.Hooks["pre_tool_use"], 1)
	assert.Equal(t, "project-audit", cfg.Hooks["pre_tool_use"][0].Name)

	// Events only the earlier source defines are retained.
	require.Len(t, cfg.Hooks["session_start"], 1)
	assert.Equal(t, "greet", cfg.Hooks["session_start"][0].Name)

	// Scalars from the earlier source survive unless overridden.
	assert.Equal(t, 30, cfg.TimeoutSeconds)
	assert.False(t, cfg.ParallelExecution)
}

func TestLoadConfigurationInvalidSourceSkipped(t *testing.T) {
	bad := writeHooksFile(t, t.TempDir(), `{not json`)
	good := writeHooksFile(t, t.TempDir(), `{
		"hooks": {
			"session_end": [{"name": "bye", "command": "echo bye"}]
		}
	}`)

	cfg := LoadConfiguration(Sources{Global: bad, Project: good})
	assert.True(t, cfg.Enabled)
	assert.Len(t, cfg.Hooks["session_end"], 1)
}

func TestLoadConfigurationDropsInvalidMatcher(t *testing.T) {
	path := writeHooksFile(t, t.TempDir(), `{
		"hooks": {
			"pre_tool_use": [
				{"name": "bad", "command": "echo x", "matcher": {"regex": "("}},
				{"name": "good", "command": "echo y", "matcher": {"equals": "write_file"}}
			]
		}
	}`)

	cfg := LoadConfiguration(Sources{Global: path})
	require.Len(t, cfg.Hooks["pre_tool_use"], 1)
	assert.Equal(t, "good", cfg.Hooks["pre_tool_use"][0].Name)
}

func TestLoadConfigurationExplicitOverridesAll(t *testing.T) {
	global := writeHooksFile(t, t.TempDir(), `{"enabled": true}`)
	explicit := writeHooksFile(t, t.TempDir(), `{"enabled": false}`)

	cfg := LoadConfiguration(Sources{Global: global, Explicit: explicit})
	assert.False(t, cfg.Enabled)
}

func TestHookTimeoutResolution(t *testing.T) {
	cfg := &Configuration{TimeoutSeconds: 30}
	assert.Equal(t, "30s", cfg.HookTimeout(&HookConfig{}).String())
	assert.Equal(t, "5s", cfg.HookTimeout(&HookConfig{Timeout: 5}).String())

	zero := &Configuration{}
	assert.Equal(t, DefaultTimeout, zero.HookTimeout(&HookConfig{}))
}
