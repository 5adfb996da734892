package tools

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/nanoagent/nanoagent/logger"
)

// mutatingTools are denied outright when a permission set is read-only.
var mutatingTools = map[string]bool{
	"write_file": true,
	"edit_file":  true,
}

// Permissions is the allow/deny contract enforced before any tool runs.
// Deny is always checked before allow: a tool or path matching both lists
// is denied.
type Permissions struct {
	AllowedTools []string
	BlockedTools []string
	AllowedPaths []string
	BlockedPaths []string
	ReadOnly     bool
}

// Check decides whether a tool invocation is permitted. The returned reason
// describes the denial; it is a result, not an error, and is surfaced to
// the model as the tool output.
func (p *Permissions) Check(toolName string, args map[string]interface{}) (bool, string) {
	if p == nil {
		return true, "allowed"
	}

	for _, blocked := range p.BlockedTools {
		if blocked == toolName {
			return false, "tool '" + toolName + "' is blocked"
		}
	}

	if len(p.AllowedTools) > 0 && !contains(p.AllowedTools, toolName) {
		return false, "tool '" + toolName + "' is not in the allowed tool list"
	}

	if p.ReadOnly && mutatingTools[toolName] {
		return false, "write operations are disabled in read-only mode (tool: " + toolName + ")"
	}

	if path := pathArg(args); path != "" {
		if ok, reason := p.checkPath(path); !ok {
			return false, reason
		}
	}

	return true, "allowed"
}

// checkPath applies the path pattern lists. Blocked patterns win.
func (p *Permissions) checkPath(path string) (bool, string) {
	abs := path
	if a, err := filepath.Abs(path); err == nil {
		abs = a
	}

	for _, pattern := range p.BlockedPaths {
		if matchesPattern(abs, path, pattern) {
			return false, "path '" + path + "' is blocked by pattern '" + pattern + "'"
		}
	}

	if len(p.AllowedPaths) > 0 {
		for _, pattern := range p.AllowedPaths {
			if matchesPattern(abs, path, pattern) {
				return true, "allowed"
			}
		}
		return false, "path '" + path + "' is not in the allowed paths"
	}

	return true, "allowed"
}

// matchesPattern matches a path against a doublestar glob, falling back to
// prefix containment so that a bare directory pattern covers everything
// under it.
func matchesPattern(abs, rel, pattern string) bool {
	for _, candidate := range []string{abs, rel} {
		ok, err := doublestar.PathMatch(pattern, candidate)
		if err != nil {
			logger.Warn().Str("pattern", pattern).Err(err).Msg("invalid path pattern")
			return false
		}
		if ok {
			return true
		}
	}
	if !strings.ContainsAny(pattern, "*?[") {
		prefix := strings.TrimSuffix(pattern, string(filepath.Separator))
		if abs == prefix || strings.HasPrefix(abs, prefix+string(filepath.Separator)) ||
			rel == prefix || strings.HasPrefix(rel, prefix+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// pathArg extracts the filesystem target from tool arguments, if any.
func pathArg(args map[string]interface{}) string {
	for _, key := range []string{"file_path", "path", "directory_path"} {
		if v, ok := args[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// Merge layers session-level overrides on top of the configured base.
// Block lists and path lists are concatenated (deny accumulates); a
// non-empty override allow list replaces the base allow list; read-only
// is sticky once set by either side.
func (p *Permissions) Merge(over *Permissions) *Permissions {
	if over == nil {
		return p
	}
	if p == nil {
		return over
	}
	merged := &Permissions{
		AllowedTools: p.AllowedTools,
		AllowedPaths: p.AllowedPaths,
		BlockedTools: append(append([]string{}, p.BlockedTools...), over.BlockedTools...),
		BlockedPaths: append(append([]string{}, p.BlockedPaths...), over.BlockedPaths...),
		ReadOnly:     p.ReadOnly || over.ReadOnly,
	}
	if len(over.AllowedTools) > 0 {
		merged.AllowedTools = over.AllowedTools
	}
	if len(over.AllowedPaths) > 0 {
		merged.AllowedPaths = over.AllowedPaths
	}
	return merged
}
