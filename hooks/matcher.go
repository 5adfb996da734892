package hooks

import (
	"regexp"
	"strings"

	"github.com/nanoagent/nanoagent/errors"
)

// Matcher decides whether a hook applies to one occurrence of its event.
// Exactly one of Equals, Contains or Regex must be set; Field selects the
// event data field the verb is evaluated against (tool_name when empty).
// Matching is case-sensitive unless IgnoreCase is set.
type Matcher struct {
	Field      string `json:"field,omitempty"`
	Equals     string `json:"equals,omitempty"`
	Contains   string `json:"contains,omitempty"`
	Regex      string `json:"regex,omitempty"`
	IgnoreCase bool   `json:"ignore_case,omitempty"`

	compiled *regexp.Regexp
}

// Validate checks the matcher shape and precompiles the regex. Invalid
// matchers are rejected at configuration load so they cannot silently
// disable a hook at trigger time.
func (m *Matcher) Validate() error {
	verbs := 0
	if m.Equals != "" {
		verbs++
	}
	if m.Contains != "" {
		verbs++
	}
	if m.Regex != "" {
		verbs++
	}
	if verbs != 1 {
		return errors.New("matcher must set exactly one of equals, contains or regex")
	}
	if m.Regex != "" {
		pattern := m.Regex
		if m.IgnoreCase {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return errors.Wrapf(err, "invalid matcher regex %q", m.Regex)
		}
		m.compiled = re
	}
	return nil
}

// Matches evaluates the matcher against the designated event data field.
// A nil matcher applies to every occurrence.
func (m *Matcher) Matches(data *EventData) bool {
	if m == nil {
		return true
	}

	value := fieldValue(m.Field, data)

	switch {
	case m.Regex != "":
		re := m.compiled
		if re == nil {
			// Matcher was not validated at load; fail closed.
			return false
		}
		return re.MatchString(value)
	case m.Equals != "":
		if m.IgnoreCase {
			return strings.EqualFold(value, m.Equals)
		}
		return value == m.Equals
	case m.Contains != "":
		if m.IgnoreCase {
			return strings.Contains(strings.ToLower(value), strings.ToLower(m.Contains))
		}
		return strings.Contains(value, m.Contains)
	}
	return false
}

// fieldValue extracts the matchable field from event data. tool_path
// resolves to the filesystem target inside the tool arguments.
func fieldValue(field string, data *EventData) string {
	switch field {
	case "", "tool_name":
		return data.ToolName
	case "event":
		return data.Event
	case "context":
		return data.Context
	case "prompt":
		return data.Prompt
	case "model":
		return data.Model
	case "provider":
		return data.Provider
	case "session_id":
		return data.SessionID
	case "error":
		return data.Error
	case "working_dir":
		return data.WorkingDir
	case "tool_path":
		for _, key := range []string{"file_path", "path", "directory_path"} {
			if v, ok := data.ToolArgs[key].(string); ok && v != "" {
				return v
			}
		}
		return ""
	default:
		return ""
	}
}

// applies combines the context list, condition and matcher for one hook.
func (h *HookConfig) applies(data *EventData) bool {
	if len(h.Contexts) > 0 && !containsString(h.Contexts, data.Context) {
		return false
	}
	if h.Condition != "" && !conditionHolds(h.Condition, data) {
		return false
	}
	return h.Matcher.Matches(data)
}

// conditionHolds evaluates the small condition language: "context:cli" or
// "context:mcp". Unknown conditions never hold, so a typo cannot widen a
// hook's reach.
func conditionHolds(condition string, data *EventData) bool {
	cond := strings.TrimSpace(condition)
	if rest, ok := strings.CutPrefix(cond, "context:"); ok {
		return data.Context == strings.TrimSpace(rest)
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
