package hooks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func managerWith(cfg *Configuration) *Manager {
	m := &Manager{context: ContextCLI}
	m.cfg.Store(cfg)
	return m
}

func TestTriggerDisabledConfiguration(t *testing.T) {
	m := managerWith(&Configuration{Enabled: false})
	res := m.Trigger(context.Background(), PreToolUse, &EventData{ToolName: "write_file"}, true)

	assert.False(t, res.Blocked)
	assert.Zero(t, res.HooksExecuted)
	assert.Empty(t, res.Results)
}

func TestTriggerNoMatchingHooks(t *testing.T) {
	m := managerWith(&Configuration{
		Enabled: true,
		Hooks: map[string][]HookConfig{
			"session_start": {{Name: "greet", Command: "echo hi", Enabled: true}},
		},
	})
	res := m.Trigger(context.Background(), PreToolUse, &EventData{WorkingDir: t.TempDir()}, true)
	assert.Zero(t, res.HooksExecuted)
}

func TestTriggerStampsContextAndTimestamp(t *testing.T) {
	m := managerWith(&Configuration{
		Enabled: true,
		Hooks: map[string][]HookConfig{
			"session_start": {{Name: "ctx", Command: "echo $NANO_CLI_CONTEXT", Enabled: true}},
		},
	})

	data := &EventData{WorkingDir: t.TempDir()}
	res := m.Trigger(context.Background(), SessionStart, data, true)

	require.Equal(t, 1, res.HooksExecuted)
	assert.Equal(t, "cli", res.Results[0].Stdout)
	assert.Equal(t, "session_start", data.Event)
	assert.NotEmpty(t, data.Timestamp)
	_, err := time.Parse(time.RFC3339, data.Timestamp)
	assert.NoError(t, err)
}

func TestTriggerBlockingHookStopsExecution(t *testing.T) {
	dir := t.TempDir()
	m := managerWith(&Configuration{
		Enabled: true,
		Hooks: map[string][]HookConfig{
			"pre_tool_use": {
				{Name: "deny", Command: "echo no >&2; exit 1", Enabled: true, Blocking: true},
				{Name: "after", Command: "touch after.txt", Enabled: true, Blocking: true},
			},
		},
	})

	res := m.Trigger(context.Background(), PreToolUse, &EventData{WorkingDir: dir, ToolName: "write_file"}, true)

	assert.True(t, res.Blocked)
	assert.Equal(t, "deny: no", res.BlockingReason())
	assert.Equal(t, 1, res.HooksExecuted, "execution stops at the first block")
	assert.NoFileExists(t, dir+"/after.txt")
}

func TestTriggerNonBlockingFailureDoesNotBlock(t *testing.T) {
	m := managerWith(&Configuration{
		Enabled:           true,
		ParallelExecution: true,
		Hooks: map[string][]HookConfig{
			"post_tool_use": {
				{Name: "flaky", Command: "exit 1", Enabled: true},
				{Name: "logger", Command: "echo ok", Enabled: true},
			},
		},
	})

	res := m.Trigger(context.Background(), PostToolUse, &EventData{WorkingDir: t.TempDir()}, false)

	assert.False(t, res.Blocked)
	assert.Equal(t, 2, res.HooksExecuted)
	assert.False(t, res.AllSucceeded())
}

func TestTriggerParallelBatchRunsBeforeBlocking(t *testing.T) {
	dir := t.TempDir()
	m := managerWith(&Configuration{
		Enabled:           true,
		ParallelExecution: true,
		Hooks: map[string][]HookConfig{
			"user_prompt_submit": {
				{Name: "observer-a", Command: "echo a > a.txt", Enabled: true},
				{Name: "guard", Command: "test -f a.txt && test -f b.txt", Enabled: true, Blocking: true},
				{Name: "observer-b", Command: "echo b > b.txt", Enabled: true},
			},
		},
	})

	res := m.Trigger(context.Background(), UserPromptSubmit, &EventData{WorkingDir: dir}, false)

	// Both observers finish before the blocking guard starts.
	assert.False(t, res.Blocked)
	assert.Equal(t, 3, res.HooksExecuted)
	assert.True(t, res.AllSucceeded())
}

func TestTriggerParallelTotalTimeIsBatchMax(t *testing.T) {
	m := managerWith(&Configuration{
		Enabled:           true,
		ParallelExecution: true,
		Hooks: map[string][]HookConfig{
			"post_agent_complete": {
				{Name: "slow-a", Command: "sleep 1", Enabled: true},
				{Name: "slow-b", Command: "sleep 1", Enabled: true},
			},
		},
	})

	start := time.Now()
	res := m.Trigger(context.Background(), PostAgentComplete, &EventData{WorkingDir: t.TempDir()}, false)
	wall := time.Since(start)

	assert.Equal(t, 2, res.HooksExecuted)
	assert.Less(t, wall, 1900*time.Millisecond, "hooks should overlap")
	assert.Less(t, res.TotalTime, 1900*time.Millisecond, "total is the batch max, not the sum")
}

func TestTriggerSequentialWhenBlockingRequested(t *testing.T) {
	dir := t.TempDir()
	m := managerWith(&Configuration{
		Enabled:           true,
		ParallelExecution: true,
		Hooks: map[string][]HookConfig{
			"pre_tool_use": {
				{Name: "observer", Command: "echo seen > seen.txt", Enabled: true},
				{Name: "deny", Command: "exit 1", Enabled: true, Blocking: true},
				{Name: "late", Command: "touch late.txt", Enabled: true},
			},
		},
	})

	res := m.Trigger(context.Background(), PreToolUse, &EventData{WorkingDir: dir, ToolName: "write_file"}, true)

	assert.True(t, res.Blocked)
	// Sequential mode stops at the first block, including non-blocking
	// hooks that come after it in configured order.
	assert.Equal(t, 2, res.HooksExecuted)
	assert.FileExists(t, dir+"/seen.txt")
	assert.NoFileExists(t, dir+"/late.txt")
}

func TestTriggerContextFiltering(t *testing.T) {
	cfg := &Configuration{
		Enabled: true,
		Hooks: map[string][]HookConfig{
			"pre_tool_use": {
				{Name: "cli-only", Command: "exit 1", Enabled: true, Blocking: true, Contexts: []string{"cli"}},
			},
		},
	}

	mcp := &Manager{context: ContextMCP}
	mcp.cfg.Store(cfg)
	res := mcp.Trigger(context.Background(), PreToolUse, &EventData{WorkingDir: t.TempDir()}, true)
	assert.Zero(t, res.HooksExecuted)

	cli := managerWith(cfg)
	res = cli.Trigger(context.Background(), PreToolUse, &EventData{WorkingDir: t.TempDir()}, true)
	assert.True(t, res.Blocked)
}

func TestManagerReload(t *testing.T) {
	dir := t.TempDir()
	path := writeHooksFile(t, dir, `{"hooks": {}}`)

	m := NewManager(Sources{Explicit: path}, ContextCLI)
	assert.True(t, m.Config().Enabled)
	assert.Empty(t, m.Config().Hooks["pre_tool_use"])

	writeHooksFile(t, dir, `{
		"hooks": {
			"pre_tool_use": [{"name": "new", "command": "echo n"}]
		}
	}`)
	m.Reload()
	assert.Len(t, m.Config().Hooks["pre_tool_use"], 1)
}
