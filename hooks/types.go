// Package hooks implements the lifecycle hook subsystem: user-supplied
// shell commands that observe, and optionally block, agent lifecycle
// events. Hooks receive the event as JSON on stdin plus an environment
// overlay, and signal a block through a nonzero exit code when configured
// as blocking.
package hooks

import (
	"time"
)

// Event identifies a lifecycle point at which hooks may run.
type Event string

const (
	// Agent lifecycle.
	PreAgentStart     Event = "pre_agent_start"
	PostAgentComplete Event = "post_agent_complete"
	AgentError        Event = "agent_error"

	// Tool execution.
	PreToolUse  Event = "pre_tool_use"
	PostToolUse Event = "post_tool_use"
	ToolError   Event = "tool_error"

	// Session lifecycle (CLI only).
	SessionStart Event = "session_start"
	SessionEnd   Event = "session_end"
	SessionSave  Event = "session_save"

	// Prompt flow.
	UserPromptSubmit Event = "user_prompt_submit"
	AgentResponse    Event = "agent_response"

	// MCP server surface.
	MCPRequestReceived Event = "mcp_request_received"
	MCPResponseReady   Event = "mcp_response_ready"
)

// Execution contexts stamped into event data.
const (
	ContextCLI = "cli"
	ContextMCP = "mcp"
)

// EventData describes one occurrence of an event. It is serialized to JSON
// (empty optional fields omitted) and written to each hook's stdin. The
// orchestrator stamps Context and Timestamp if absent; nothing else mutates
// the record after handoff.
type EventData struct {
	Event      string `json:"event"`
	Timestamp  string `json:"timestamp"`
	Context    string `json:"context"`
	WorkingDir string `json:"working_dir"`

	ProjectDir   string `json:"project_dir,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
	MessageCount int    `json:"message_count,omitempty"`

	Model       string   `json:"model,omitempty"`
	Provider    string   `json:"provider,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`

	Prompt        string `json:"prompt,omitempty"`
	AgentResponse string `json:"agent_response,omitempty"`

	ToolName   string                 `json:"tool_name,omitempty"`
	ToolArgs   map[string]interface{} `json:"tool_args,omitempty"`
	ToolResult string                 `json:"tool_result,omitempty"`
	Error      string                 `json:"error,omitempty"`

	TokenUsage    map[string]interface{} `json:"token_usage,omitempty"`
	ExecutionTime float64                `json:"execution_time,omitempty"`

	MCPClient    string `json:"mcp_client,omitempty"`
	MCPRequestID string `json:"mcp_request_id,omitempty"`
}

// HookConfig is one configured rule, immutable at runtime.
type HookConfig struct {
	Name     string   `json:"name"`
	Command  string   `json:"command"`
	Enabled  bool     `json:"enabled"`
	Blocking bool     `json:"blocking"`
	// Timeout in seconds; the configuration default applies when zero.
	Timeout  int      `json:"timeout,omitempty"`
	// Contexts restricts where the hook runs ("cli", "mcp"); empty means both.
	Contexts []string `json:"contexts,omitempty"`

	Matcher   *Matcher `json:"matcher,omitempty"`
	Condition string   `json:"condition,omitempty"`
}

// Configuration is the effective, merged hook configuration. It is swapped
// wholesale on reload; readers always see a complete snapshot.
type Configuration struct {
	Version           string                  `json:"version,omitempty"`
	Enabled           bool                    `json:"enabled"`
	TimeoutSeconds    int                     `json:"timeout_seconds"`
	ParallelExecution bool                    `json:"parallel_execution"`
	Hooks             map[string][]HookConfig `json:"hooks"`
}

// DefaultTimeout applies to hooks without an explicit timeout when the
// configuration does not set one either.
const DefaultTimeout = 60 * time.Second

// HookTimeout resolves the effective timeout for one hook.
func (c *Configuration) HookTimeout(h *HookConfig) time.Duration {
	if h.Timeout > 0 {
		return time.Duration(h.Timeout) * time.Second
	}
	if c.TimeoutSeconds > 0 {
		return time.Duration(c.TimeoutSeconds) * time.Second
	}
	return DefaultTimeout
}

// ExecutionResult is the outcome of running one hook.
type ExecutionResult struct {
	HookName      string        `json:"hook_name"`
	Success       bool          `json:"success"`
	ExitCode      int           `json:"exit_code"`
	Stdout        string        `json:"stdout,omitempty"`
	Stderr        string        `json:"stderr,omitempty"`
	ExecutionTime time.Duration `json:"execution_time"`
	// Blocked is true only when this result caused the orchestrator to
	// abort the lifecycle step.
	Blocked bool   `json:"blocked"`
	Error   string `json:"error,omitempty"`
}

// Result aggregates the outcome of one triggered event.
type Result struct {
	Event         Event             `json:"event"`
	HooksExecuted int               `json:"hooks_executed"`
	Results       []ExecutionResult `json:"results"`
	Blocked       bool              `json:"blocked"`
	TotalTime     time.Duration     `json:"total_time"`
}

// AllSucceeded reports whether every executed hook exited cleanly.
func (r *Result) AllSucceeded() bool {
	for _, res := range r.Results {
		if !res.Success {
			return false
		}
	}
	return true
}

// BlockingReason returns "hook: reason" for the result that blocked the
// step, or empty when nothing blocked.
func (r *Result) BlockingReason() string {
	for _, res := range r.Results {
		if !res.Blocked {
			continue
		}
		reason := res.Stderr
		if reason == "" {
			reason = res.Error
		}
		if reason == "" {
			reason = "Blocked"
		}
		return res.HookName + ": " + reason
	}
	return ""
}
