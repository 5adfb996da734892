// Package tools defines the actions the agent can take and the registry
// that gates every invocation behind the permission contract.
package tools

import (
	"context"
	"sort"

	"github.com/nanoagent/nanoagent/errors"
	"github.com/nanoagent/nanoagent/logger"
)

// Tool defines the interface for any action the agent can take.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, args map[string]interface{}) (string, error)
}

// Registry holds all available tools and enforces permissions on every
// call. Permission denial is returned as a result string, not an error,
// so the model sees why the call was refused.
type Registry struct {
	tools map[string]Tool
	perms *Permissions
}

// NewRegistry builds a registry with the built-in filesystem tools.
func NewRegistry(perms *Permissions) *Registry {
	r := &Registry{
		tools: make(map[string]Tool),
		perms: perms,
	}
	r.Register(&ReadFileTool{})
	r.Register(&WriteFileTool{})
	r.Register(&EditFileTool{})
	r.Register(&ListDirectoryTool{})
	r.Register(&FileInfoTool{})
	return r
}

func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// All returns the registered tools in a stable order.
func (r *Registry) All() []Tool {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Tool, 0, len(names))
	for _, name := range names {
		out = append(out, r.tools[name])
	}
	return out
}

// Check runs the permission contract for a prospective call without
// executing it.
func (r *Registry) Check(name string, args map[string]interface{}) (bool, string) {
	return r.perms.Check(name, args)
}

// Execute dispatches one tool call after the permission check. Unknown
// tools and denied calls both come back as descriptive results; only the
// tool's own failure is an error.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	tool, ok := r.tools[name]
	if !ok {
		return "", errors.New("tool '%s' is not registered", name)
	}

	if allowed, reason := r.perms.Check(name, args); !allowed {
		logger.Info().Str("tool", name).Str("reason", reason).Msg("tool call denied")
		return "Permission denied: " + reason, nil
	}

	return tool.Execute(ctx, args)
}

// Permissions returns the permission set this registry enforces.
func (r *Registry) Permissions() *Permissions {
	return r.perms
}

// WithPermissions returns a registry sharing the same tools but enforcing
// a different permission set. Used to apply per-session overrides.
func (r *Registry) WithPermissions(perms *Permissions) *Registry {
	return &Registry{tools: r.tools, perms: perms}
}
