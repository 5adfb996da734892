package agent

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/nanoagent/nanoagent/config"
	"github.com/nanoagent/nanoagent/errors"
	"github.com/nanoagent/nanoagent/hooks"
	"github.com/nanoagent/nanoagent/llm"
	"github.com/nanoagent/nanoagent/logger"
	"github.com/nanoagent/nanoagent/session"
	"github.com/nanoagent/nanoagent/tools"
)

// Mode controls whether tool calls run without confirmation.
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModePrompt Mode = "prompt"
)

// ToolVerbosity controls how much tool execution detail the interaction
// mode surfaces.
type ToolVerbosity string

const (
	ToolVerbosityNone ToolVerbosity = "none"
	ToolVerbosityInfo ToolVerbosity = "info"
	ToolVerbosityAll  ToolVerbosity = "all"
)

// maxToolIterations caps one turn's model round trips so a model stuck in
// a tool loop cannot run forever.
const maxToolIterations = 25

// ProcessCallbacks lets each interaction mode (terminal, MCP server)
// decide how agent events are surfaced. Nil callbacks are skipped.
type ProcessCallbacks struct {
	OnAssistantMessage func(message string)
	OnToolCall         func(toolCall session.ToolCall)
	OnToolResult       func(toolCall session.ToolCall, result string)
	ShouldExecuteTool  func(toolCall session.ToolCall) bool
	OnWarning          func(warning string)
}

func (c *ProcessCallbacks) warn(msg string) {
	if c.OnWarning != nil {
		c.OnWarning(msg)
	}
}

// Agent drives the conversation loop: prompt in, model round trips with
// tool execution, response out, with lifecycle hooks raised at each step.
type Agent struct {
	Config    *config.Config
	Session   *session.Session
	Store     *session.Store
	Client    llm.Client
	Registry  *tools.Registry
	Hooks     *hooks.Manager
	Mode      Mode
	Verbosity ToolVerbosity

	workingDir string
}

// New wires an agent from its collaborators. The session's permission
// overrides, if any, are layered onto the configured registry.
func New(cfg *config.Config, sess *session.Session, store *session.Store, client llm.Client, registry *tools.Registry, hookManager *hooks.Manager, mode Mode, verbosity ToolVerbosity) *Agent {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	if sess.Permissions != nil {
		override := &tools.Permissions{
			AllowedTools: sess.Permissions.AllowedTools,
			BlockedTools: sess.Permissions.BlockedTools,
			AllowedPaths: sess.Permissions.AllowedPaths,
			BlockedPaths: sess.Permissions.BlockedPaths,
			ReadOnly:     sess.Permissions.ReadOnly,
		}
		registry = registry.WithPermissions(registry.Permissions().Merge(override))
	}

	return &Agent{
		Config:     cfg,
		Session:    sess,
		Store:      store,
		Client:     client,
		Registry:   registry,
		Hooks:      hookManager,
		Mode:       mode,
		Verbosity:  verbosity,
		workingDir: wd,
	}
}

// eventData builds the base event payload for this agent's hooks.
func (a *Agent) eventData() *hooks.EventData {
	return &hooks.EventData{
		WorkingDir:   a.workingDir,
		SessionID:    a.Session.SessionID,
		MessageCount: len(a.Session.Conversation),
		Model:        a.Session.Model,
		Provider:     a.Session.Provider,
		Temperature:  a.Session.Temperature,
		MaxTokens:    a.Session.MaxTokens,
	}
}

// Start raises the startup lifecycle events. A blocking pre_agent_start
// hook refuses the start.
func (a *Agent) Start(ctx context.Context) error {
	res := a.Hooks.Trigger(ctx, hooks.PreAgentStart, a.eventData(), true)
	if res.Blocked {
		return errors.New("agent start blocked by hook: %s", res.BlockingReason())
	}
	a.Hooks.Trigger(ctx, hooks.SessionStart, a.eventData(), false)
	return nil
}

// Shutdown raises the end-of-session event. Observational only.
func (a *Agent) Shutdown(ctx context.Context) {
	a.Hooks.Trigger(ctx, hooks.SessionEnd, a.eventData(), false)
}

// ProcessUserInput runs one full turn and returns the final assistant
// text. The user/assistant exchange is persisted before returning.
func (a *Agent) ProcessUserInput(ctx context.Context, userInput string, callbacks ProcessCallbacks) (string, error) {
	promptData := a.eventData()
	promptData.Prompt = userInput
	if res := a.Hooks.Trigger(ctx, hooks.UserPromptSubmit, promptData, true); res.Blocked {
		return "", errors.New("prompt rejected by hook: %s", res.BlockingReason())
	}

	messages := a.Session.Context(a.Config.Sessions.MaxContextMessages)
	messages = append(messages, session.Message{Role: "user", Content: userInput})

	opts := llm.Options{
		Temperature:  a.Session.Temperature,
		MaxTokens:    a.Session.MaxTokens,
		SystemPrompt: a.Config.SystemPrompt,
	}

	var finalText string
	var turnTokens int

	for iteration := 0; ; iteration++ {
		if iteration >= maxToolIterations {
			callbacks.warn(fmt.Sprintf("stopping after %d tool iterations", maxToolIterations))
			break
		}

		reply, err := a.Client.Chat(ctx, messages, a.Registry.All(), opts)
		if err != nil {
			errData := a.eventData()
			errData.Error = err.Error()
			a.Hooks.Trigger(ctx, hooks.AgentError, errData, false)
			return "", errors.Wrap(err, "model request failed")
		}
		turnTokens += reply.Usage.TotalTokens

		if len(reply.Message.ToolCalls) == 0 {
			finalText = reply.Message.Content
			if finalText != "" && callbacks.OnAssistantMessage != nil {
				callbacks.OnAssistantMessage(finalText)
			}
			break
		}

		if reply.Message.Content != "" && callbacks.OnAssistantMessage != nil {
			callbacks.OnAssistantMessage(reply.Message.Content)
		}
		messages = append(messages, reply.Message)

		for _, tc := range reply.Message.ToolCalls {
			result := a.runToolCall(ctx, tc, callbacks)
			messages = append(messages, session.Message{
				Role:      "tool",
				Content:   result,
				ToolCalls: []session.ToolCall{tc},
			})
		}
	}

	if err := a.Store.AppendExchange(a.Session, userInput, finalText, turnTokens); err != nil {
		callbacks.warn("failed to save session: " + err.Error())
	} else {
		a.Hooks.Trigger(ctx, hooks.SessionSave, a.eventData(), false)
	}

	responseData := a.eventData()
	responseData.Prompt = userInput
	responseData.AgentResponse = finalText
	a.Hooks.Trigger(ctx, hooks.AgentResponse, responseData, false)

	completeData := a.eventData()
	completeData.TokenUsage = map[string]interface{}{
		"turn_tokens":    turnTokens,
		"total_tokens":   a.Session.Usage.TotalTokens,
		"total_requests": a.Session.Usage.TotalRequests,
	}
	a.Hooks.Trigger(ctx, hooks.PostAgentComplete, completeData, false)

	return finalText, nil
}

// runToolCall executes a single tool call. Every failure mode comes back
// as a result string the model can see; the turn never aborts on a tool.
func (a *Agent) runToolCall(ctx context.Context, tc session.ToolCall, callbacks ProcessCallbacks) string {
	if callbacks.OnToolCall != nil {
		callbacks.OnToolCall(tc)
	}

	preData := a.eventData()
	preData.ToolName = tc.Name
	preData.ToolArgs = tc.Args
	if res := a.Hooks.Trigger(ctx, hooks.PreToolUse, preData, true); res.Blocked {
		reason := "Tool execution blocked by hook: " + res.BlockingReason()
		if callbacks.OnToolResult != nil {
			callbacks.OnToolResult(tc, reason)
		}
		return reason
	}

	if callbacks.ShouldExecuteTool != nil && !callbacks.ShouldExecuteTool(tc) {
		return "Tool execution denied by user"
	}

	start := time.Now()
	result, err := a.Registry.Execute(ctx, tc.Name, tc.Args)
	elapsed := time.Since(start)

	if err != nil {
		logger.Warn().Str("tool", tc.Name).Err(err).Msg("tool execution failed")
		errData := a.eventData()
		errData.ToolName = tc.Name
		errData.ToolArgs = tc.Args
		errData.Error = err.Error()
		a.Hooks.Trigger(ctx, hooks.ToolError, errData, false)
		result = "Error: " + err.Error()
	} else {
		postData := a.eventData()
		postData.ToolName = tc.Name
		postData.ToolArgs = tc.Args
		postData.ToolResult = result
		postData.ExecutionTime = elapsed.Seconds()
		a.Hooks.Trigger(ctx, hooks.PostToolUse, postData, false)
	}

	if callbacks.OnToolResult != nil {
		callbacks.OnToolResult(tc, result)
	}
	return result
}
