// Package mcpserver exposes the agent over the Model Context Protocol:
// a stdio server whose tools drive conversations, list stored sessions
// and clear expired ones. Each request raises the MCP lifecycle hooks.
package mcpserver

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/robfig/cron/v3"

	"github.com/nanoagent/nanoagent/agent"
	"github.com/nanoagent/nanoagent/config"
	"github.com/nanoagent/nanoagent/errors"
	"github.com/nanoagent/nanoagent/hooks"
	"github.com/nanoagent/nanoagent/llm"
	"github.com/nanoagent/nanoagent/logger"
	"github.com/nanoagent/nanoagent/session"
	"github.com/nanoagent/nanoagent/tools"
)

// Server hosts the MCP stdio endpoint.
type Server struct {
	cfg      *config.Config
	store    *session.Store
	registry *tools.Registry
	hooks    *hooks.Manager
	clientID string

	workingDir string
	mcp        *mcpsdk.Server
}

// New wires the server and registers its tools. clientID names the
// connecting client in session records and hook events.
func New(cfg *config.Config, store *session.Store, registry *tools.Registry, hookManager *hooks.Manager, clientID string) *Server {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	s := &Server{
		cfg:        cfg,
		store:      store,
		registry:   registry,
		hooks:      hookManager,
		clientID:   clientID,
		workingDir: wd,
		mcp: mcpsdk.NewServer(&mcpsdk.Implementation{
			Name:    "nanoagent",
			Version: "v1.0.0",
		}, nil),
	}

	mcpsdk.AddTool(s.mcp, &mcpsdk.Tool{
		Name:        "prompt_agent",
		Description: "Send a prompt to the agent and get its response. Maintains per-session conversation history.",
	}, s.promptAgent)
	mcpsdk.AddTool(s.mcp, &mcpsdk.Tool{
		Name:        "list_sessions",
		Description: "List recent conversation sessions for this client.",
	}, s.listSessions)
	mcpsdk.AddTool(s.mcp, &mcpsdk.Tool{
		Name:        "clear_old_sessions",
		Description: "Delete sessions not updated within the given number of days.",
	}, s.clearOldSessions)

	return s
}

// Run serves MCP over stdio until the context is cancelled. A background
// janitor expires stale sessions hourly.
func (s *Server) Run(ctx context.Context) error {
	janitor := cron.New()
	_, err := janitor.AddFunc("@hourly", func() {
		removed, err := s.store.ExpireOlderThan(s.cfg.Sessions.ExpireAfterDays)
		if err != nil {
			logger.Warn().Err(err).Msg("session expiry sweep failed")
			return
		}
		if removed > 0 {
			logger.Info().Int("removed", removed).Msg("expired stale sessions")
		}
	})
	if err != nil {
		return errors.Wrap(err, "failed to schedule session janitor")
	}
	janitor.Start()
	defer janitor.Stop()

	logger.Info().Str("client", s.clientID).Msg("MCP server listening on stdio")
	return s.mcp.Run(ctx, mcpsdk.NewStdioTransport())
}

// requestData builds the base event payload for one MCP request.
func (s *Server) requestData(requestID string) *hooks.EventData {
	return &hooks.EventData{
		WorkingDir:   s.workingDir,
		MCPClient:    s.clientID,
		MCPRequestID: requestID,
	}
}

// PromptInput are the arguments of the prompt_agent tool. Session
// settings stick: values given here are stored on the session and apply
// to later requests that omit them.
type PromptInput struct {
	Prompt      string   `json:"prompt" jsonschema:"the prompt to send to the agent"`
	SessionID   string   `json:"session_id,omitempty" jsonschema:"continue this session; most recent session when omitted"`
	NewSession  bool     `json:"new_session,omitempty" jsonschema:"start a fresh session"`
	Provider    string   `json:"provider,omitempty" jsonschema:"model provider override"`
	Model       string   `json:"model,omitempty" jsonschema:"model override"`
	Temperature *float64 `json:"temperature,omitempty" jsonschema:"sampling temperature override"`
	MaxTokens   int      `json:"max_tokens,omitempty" jsonschema:"response token limit override"`

	AllowedTools []string `json:"allowed_tools,omitempty" jsonschema:"restrict tool use to these tools"`
	BlockedTools []string `json:"blocked_tools,omitempty" jsonschema:"deny these tools"`
	AllowedPaths []string `json:"allowed_paths,omitempty" jsonschema:"restrict file access to these path patterns"`
	BlockedPaths []string `json:"blocked_paths,omitempty" jsonschema:"deny these path patterns"`
	ReadOnly     bool     `json:"read_only,omitempty" jsonschema:"deny all write operations"`
}

type PromptOutput struct {
	Response    string `json:"response"`
	SessionID   string `json:"session_id"`
	TotalTokens int    `json:"total_tokens"`
}

func (s *Server) promptAgent(ctx context.Context, _ *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[PromptInput]) (*mcpsdk.CallToolResultFor[PromptOutput], error) {
	in := params.Arguments
	if in.Prompt == "" {
		return nil, errors.New("prompt is required")
	}
	requestID := uuid.NewString()

	reqData := s.requestData(requestID)
	reqData.Prompt = in.Prompt
	if res := s.hooks.Trigger(ctx, hooks.MCPRequestReceived, reqData, true); res.Blocked {
		return nil, errors.New("request rejected by hook: %s", res.BlockingReason())
	}

	provider := in.Provider
	if provider == "" {
		provider = s.cfg.Provider
	}
	model := in.Model
	if model == "" {
		model = s.cfg.Model
	}

	sess, err := s.store.GetOrCreate(s.clientID, in.SessionID, in.NewSession, provider, model)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve session")
	}

	if in.Provider != "" {
		sess.Provider = in.Provider
	}
	if in.Model != "" {
		sess.Model = in.Model
	}
	if in.Temperature != nil {
		sess.Temperature = in.Temperature
	}
	if in.MaxTokens > 0 {
		sess.MaxTokens = in.MaxTokens
	}
	if len(in.AllowedTools)+len(in.BlockedTools)+len(in.AllowedPaths)+len(in.BlockedPaths) > 0 || in.ReadOnly {
		sess.Permissions = &session.PermissionOverrides{
			AllowedTools: in.AllowedTools,
			BlockedTools: in.BlockedTools,
			AllowedPaths: in.AllowedPaths,
			BlockedPaths: in.BlockedPaths,
			ReadOnly:     in.ReadOnly,
		}
	}

	client, err := llm.NewClient(ctx, sess.Provider, sess.Model)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create model client")
	}

	a := agent.New(s.cfg, sess, s.store, client, s.registry, s.hooks, agent.ModeAuto, agent.ToolVerbosityNone)
	response, err := a.ProcessUserInput(ctx, in.Prompt, agent.ProcessCallbacks{
		OnWarning: func(warning string) {
			logger.Warn().Str("session", sess.SessionID).Msg(warning)
		},
	})
	if err != nil {
		return nil, err
	}

	respData := s.requestData(requestID)
	respData.SessionID = sess.SessionID
	respData.AgentResponse = response
	s.hooks.Trigger(ctx, hooks.MCPResponseReady, respData, false)

	out := PromptOutput{
		Response:    response,
		SessionID:   sess.SessionID,
		TotalTokens: sess.Usage.TotalTokens,
	}
	return &mcpsdk.CallToolResultFor[PromptOutput]{
		Content:           []mcpsdk.Content{&mcpsdk.TextContent{Text: response}},
		StructuredContent: out,
	}, nil
}

type ListSessionsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of sessions to return"`
}

type ListSessionsOutput struct {
	Sessions []session.Summary `json:"sessions"`
}

func (s *Server) listSessions(ctx context.Context, _ *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[ListSessionsInput]) (*mcpsdk.CallToolResultFor[ListSessionsOutput], error) {
	requestID := uuid.NewString()
	if res := s.hooks.Trigger(ctx, hooks.MCPRequestReceived, s.requestData(requestID), true); res.Blocked {
		return nil, errors.New("request rejected by hook: %s", res.BlockingReason())
	}

	limit := params.Arguments.Limit
	if limit <= 0 {
		limit = 10
	}
	summaries, err := s.store.ListRecent(s.clientID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sessions")
	}

	s.hooks.Trigger(ctx, hooks.MCPResponseReady, s.requestData(requestID), false)

	text := fmt.Sprintf("%d sessions", len(summaries))
	return &mcpsdk.CallToolResultFor[ListSessionsOutput]{
		Content:           []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
		StructuredContent: ListSessionsOutput{Sessions: summaries},
	}, nil
}

type ClearSessionsInput struct {
	Days int `json:"days,omitempty" jsonschema:"delete sessions older than this many days; configured default when omitted"`
}

type ClearSessionsOutput struct {
	Removed int `json:"removed"`
}

func (s *Server) clearOldSessions(ctx context.Context, _ *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[ClearSessionsInput]) (*mcpsdk.CallToolResultFor[ClearSessionsOutput], error) {
	requestID := uuid.NewString()
	if res := s.hooks.Trigger(ctx, hooks.MCPRequestReceived, s.requestData(requestID), true); res.Blocked {
		return nil, errors.New("request rejected by hook: %s", res.BlockingReason())
	}

	days := params.Arguments.Days
	if days <= 0 {
		days = s.cfg.Sessions.ExpireAfterDays
	}
	removed, err := s.store.ExpireOlderThan(days)
	if err != nil {
		return nil, errors.Wrap(err, "failed to clear sessions")
	}

	s.hooks.Trigger(ctx, hooks.MCPResponseReady, s.requestData(requestID), false)

	return &mcpsdk.CallToolResultFor[ClearSessionsOutput]{
		Content:           []mcpsdk.Content{&mcpsdk.TextContent{Text: fmt.Sprintf("removed %d sessions", removed)}},
		StructuredContent: ClearSessionsOutput{Removed: removed},
	}, nil
}
