// Package session persists conversations as one JSON record per
// (client id, session id) pair. Mutation of a single record is serialized
// through a per-session lock and written atomically, so concurrent callers
// for the same pair never lose an update.
package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message is a single conversation entry. Tool calls are only carried
// in memory during a turn; the persisted conversation holds plain
// user/assistant/system text.
type Message struct {
	Role      string     `json:"role"` // "user", "assistant", "system" or "tool"
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"-"`
}

// ToolCall is a model-requested tool invocation attached to an assistant
// message, or the call a tool-role message responds to.
type ToolCall struct {
	ToolCallID string
	Name       string
	Args       map[string]interface{}
}

// Usage tracks cumulative token consumption across a session.
type Usage struct {
	TotalTokens   int `json:"total_tokens"`
	TotalRequests int `json:"total_requests"`
	MessageCount  int `json:"message_count"`
}

// PermissionOverrides are per-session tool permission settings persisted
// with the record, applied on top of the configured defaults.
type PermissionOverrides struct {
	AllowedTools []string `json:"allowed_tools,omitempty"`
	BlockedTools []string `json:"blocked_tools,omitempty"`
	AllowedPaths []string `json:"allowed_paths,omitempty"`
	BlockedPaths []string `json:"blocked_paths,omitempty"`
	ReadOnly     bool     `json:"read_only,omitempty"`
}

// Session is one persisted conversation thread.
type Session struct {
	SessionID   string    `json:"session_id"`
	ClientID    string    `json:"client_id"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`

	Conversation []Message `json:"conversation"`

	Temperature *float64             `json:"temperature,omitempty"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
	Permissions *PermissionOverrides `json:"permissions,omitempty"`

	Usage Usage `json:"usage"`
}

// Context returns at most maxMessages of the most recent conversation
// entries, oldest first. Older history is dropped, never summarized.
func (s *Session) Context(maxMessages int) []Message {
	if maxMessages <= 0 || len(s.Conversation) == 0 {
		return nil
	}
	start := 0
	if len(s.Conversation) > maxMessages {
		start = len(s.Conversation) - maxMessages
	}
	window := make([]Message, len(s.Conversation)-start)
	copy(window, s.Conversation[start:])
	return window
}

// NewSessionID generates a sortable session identifier.
func NewSessionID() string {
	return fmt.Sprintf("session_%s_%s",
		time.Now().Format("20060102_150405"),
		uuid.NewString()[:8])
}

// Summary is a listing entry for one stored session.
type Summary struct {
	SessionID    string    `json:"session_id"`
	ClientID     string    `json:"client_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastUpdated  time.Time `json:"last_updated"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	MessageCount int       `json:"message_count"`
}
