package hooks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvOverlay(t *testing.T) {
	tests := []struct {
		name string
		data EventData
		want map[string]string
	}{
		{
			name: "cli context",
			data: EventData{
				Event:      "pre_tool_use",
				Context:    ContextCLI,
				WorkingDir: "/work",
				SessionID:  "session_x",
				Model:      "gpt-5-mini",
				Provider:   "openai",
			},
			want: map[string]string{
				"NANO_CLI_EVENT":       "pre_tool_use",
				"NANO_CLI_CONTEXT":     "cli",
				"NANO_CLI_WORKING_DIR": "/work",
				"NANO_CLI_SESSION_ID":  "session_x",
				"NANO_CLI_MODEL":       "gpt-5-mini",
				"NANO_CLI_PROVIDER":    "openai",
			},
		},
		{
			name: "mcp context adds mcp variables",
			data: EventData{
				Event:        "mcp_request_received",
				Context:      ContextMCP,
				WorkingDir:   "/work",
				MCPClient:    "editor",
				MCPRequestID: "req-1",
			},
			want: map[string]string{
				"NANO_CLI_EVENT":       "mcp_request_received",
				"NANO_CLI_CONTEXT":     "mcp",
				"NANO_CLI_WORKING_DIR": "/work",
				"NANO_CLI_SESSION_ID":  "",
				"NANO_CLI_MODEL":       "",
				"NANO_CLI_PROVIDER":    "",
				"NANO_MCP_CONTEXT":     "true",
				"NANO_MCP_CLIENT":      "editor",
				"NANO_MCP_REQUEST_ID":  "req-1",
			},
		},
		{
			name: "mcp context omits empty client and request id",
			data: EventData{Event: "mcp_response_ready", Context: ContextMCP},
			want: map[string]string{
				"NANO_CLI_EVENT":       "mcp_response_ready",
				"NANO_CLI_CONTEXT":     "mcp",
				"NANO_CLI_WORKING_DIR": "",
				"NANO_CLI_SESSION_ID":  "",
				"NANO_CLI_MODEL":       "",
				"NANO_CLI_PROVIDER":    "",
				"NANO_MCP_CONTEXT":     "true",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EnvOverlay(&tt.data))
		})
	}
}

func testConfig() *Configuration {
	return &Configuration{Enabled: true, TimeoutSeconds: 10}
}

func TestExecuteSuccess(t *testing.T) {
	hook := &HookConfig{Name: "echo", Command: "echo hello", Enabled: true}
	res := execute(context.Background(), testConfig(), hook, &EventData{WorkingDir: t.TempDir()})

	assert.True(t, res.Success)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hello", res.Stdout)
	assert.False(t, res.Blocked)
}

func TestExecuteReceivesEventOnStdin(t *testing.T) {
	hook := &HookConfig{Name: "stdin", Command: "cat", Enabled: true}
	data := &EventData{
		Event:      "user_prompt_submit",
		Context:    ContextCLI,
		WorkingDir: t.TempDir(),
		Prompt:     "hello world",
	}
	res := execute(context.Background(), testConfig(), hook, data)

	require.True(t, res.Success)
	assert.Contains(t, res.Stdout, `"event": "user_prompt_submit"`)
	assert.Contains(t, res.Stdout, `"prompt": "hello world"`)
}

func TestExecuteEnvironment(t *testing.T) {
	hook := &HookConfig{Name: "env", Command: "echo $NANO_CLI_EVENT/$NANO_CLI_SESSION_ID", Enabled: true}
	data := &EventData{
		Event:      "session_start",
		Context:    ContextCLI,
		WorkingDir: t.TempDir(),
		SessionID:  "session_abc",
	}
	res := execute(context.Background(), testConfig(), hook, data)

	require.True(t, res.Success)
	assert.Equal(t, "session_start/session_abc", res.Stdout)
}

func TestExecuteNonzeroExit(t *testing.T) {
	data := &EventData{WorkingDir: t.TempDir()}

	blocking := &HookConfig{Name: "guard", Command: "echo denied >&2; exit 2", Enabled: true, Blocking: true}
	res := execute(context.Background(), testConfig(), blocking, data)
	assert.False(t, res.Success)
	assert.Equal(t, 2, res.ExitCode)
	assert.Equal(t, "denied", res.Stderr)
	assert.True(t, res.Blocked)

	observer := &HookConfig{Name: "observer", Command: "exit 1", Enabled: true}
	res = execute(context.Background(), testConfig(), observer, data)
	assert.False(t, res.Success)
	assert.False(t, res.Blocked, "nonzero exit from a non-blocking hook must not block")
}

func TestExecuteTimeout(t *testing.T) {
	hook := &HookConfig{Name: "slow", Command: "sleep 30", Enabled: true, Blocking: true, Timeout: 1}

	start := time.Now()
	res := execute(context.Background(), testConfig(), hook, &EventData{WorkingDir: t.TempDir()})
	elapsed := time.Since(start)

	assert.False(t, res.Success)
	assert.Equal(t, -1, res.ExitCode)
	assert.Contains(t, res.Error, "timed out")
	assert.True(t, res.Blocked, "timed out blocking hook blocks")
	assert.Less(t, elapsed, 5*time.Second, "timeout must bound execution")
}

func TestExecuteDisabledHook(t *testing.T) {
	hook := &HookConfig{Name: "off", Command: "exit 1", Enabled: false, Blocking: true}
	res := execute(context.Background(), testConfig(), hook, &EventData{WorkingDir: t.TempDir()})

	assert.True(t, res.Success)
	assert.False(t, res.Blocked)
	assert.Equal(t, "Hook disabled", res.Stdout)
}

func TestExecuteSpawnFailure(t *testing.T) {
	hook := &HookConfig{Name: "bad-dir", Command: "echo hi", Enabled: true}
	res := execute(context.Background(), testConfig(), hook, &EventData{WorkingDir: "/nonexistent/dir"})

	assert.False(t, res.Success)
	assert.Equal(t, -1, res.ExitCode)
	assert.NotEmpty(t, res.Error)
}
