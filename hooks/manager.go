package hooks

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nanoagent/nanoagent/logger"
)

// Manager is the hook orchestrator: it owns the active configuration and
// fans events out to the applicable hooks. It is safe for concurrent use;
// Reload swaps the configuration wholesale, so in-flight triggers keep the
// snapshot they started with.
type Manager struct {
	cfg     atomic.Pointer[Configuration]
	sources Sources
	context string // ContextCLI or ContextMCP
}

// NewManager loads the configuration from the given sources and binds the
// execution context stamped into every event.
func NewManager(sources Sources, execContext string) *Manager {
	m := &Manager{
		sources: sources,
		context: execContext,
	}
	cfg := LoadConfiguration(sources)
	m.cfg.Store(cfg)

	if cfg.Enabled {
		logger.Info().
			Str("context", execContext).
			Int("event_types", len(cfg.Hooks)).
			Msg("hooks enabled")
	} else {
		logger.Debug().Msg("hooks disabled")
	}
	return m
}

// Config returns the active configuration snapshot.
func (m *Manager) Config() *Configuration {
	return m.cfg.Load()
}

// Reload re-reads the configuration sources and atomically swaps the
// active configuration.
func (m *Manager) Reload() {
	logger.Info().Msg("reloading hook configuration")
	m.cfg.Store(LoadConfiguration(m.sources))
}

// Trigger runs the hooks configured for event. When hooks are globally
// disabled or nothing matches, it returns an empty non-blocked result
// without touching the filesystem.
//
// With parallel execution enabled (and blocking not requested by the
// caller), the non-blocking hooks run concurrently and are all awaited
// before the blocking hooks run sequentially in configured order; their
// results are recorded but never affect the blocked decision. Execution
// stops at the first blocking hook that blocks. Otherwise every matched
// hook runs sequentially in configured order, stopping at the first block.
func (m *Manager) Trigger(ctx context.Context, event Event, data *EventData, blocking bool) *Result {
	cfg := m.cfg.Load()
	result := &Result{Event: event}
	if cfg == nil || !cfg.Enabled {
		return result
	}

	if data == nil {
		data = &EventData{}
	}
	data.Event = string(event)
	if data.Context == "" {
		data.Context = m.context
	}
	if data.Timestamp == "" {
		data.Timestamp = time.Now().Format(time.RFC3339)
	}

	var applicable []HookConfig
	for _, hook := range cfg.Hooks[string(event)] {
		if hook.applies(data) {
			applicable = append(applicable, hook)
		}
	}
	if len(applicable) == 0 {
		return result
	}

	logger.Debug().
		Str("event", string(event)).
		Int("hooks", len(applicable)).
		Msg("triggering hooks")

	if cfg.ParallelExecution && !blocking {
		m.runSplit(ctx, cfg, applicable, data, result)
	} else {
		m.runSequential(ctx, cfg, applicable, data, result)
	}

	result.HooksExecuted = len(result.Results)
	if result.Blocked {
		logger.Info().
			Str("event", string(event)).
			Str("reason", result.BlockingReason()).
			Msg("lifecycle step blocked by hook")
	}
	return result
}

// runSplit fans the non-blocking hooks out concurrently, awaits them all,
// then runs the blocking hooks in configured order. Total time is the
// maximum of the parallel batch plus the sum of the sequential batch.
func (m *Manager) runSplit(ctx context.Context, cfg *Configuration, hooks []HookConfig, data *EventData, result *Result) {
	var parallel, sequential []HookConfig
	for _, hook := range hooks {
		if hook.Blocking {
			sequential = append(sequential, hook)
		} else {
			parallel = append(parallel, hook)
		}
	}

	if len(parallel) > 0 {
		results := make([]ExecutionResult, len(parallel))
		var wg sync.WaitGroup
		for i := range parallel {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = execute(ctx, cfg, &parallel[i], data)
			}(i)
		}
		wg.Wait()

		var batchMax time.Duration
		for _, res := range results {
			if res.ExecutionTime > batchMax {
				batchMax = res.ExecutionTime
			}
		}
		result.Results = append(result.Results, results...)
		result.TotalTime += batchMax
	}

	for i := range sequential {
		res := execute(ctx, cfg, &sequential[i], data)
		result.Results = append(result.Results, res)
		result.TotalTime += res.ExecutionTime
		if res.Blocked {
			result.Blocked = true
			break
		}
	}
}

// runSequential runs every hook in configured order, stopping at the
// first one that blocks.
func (m *Manager) runSequential(ctx context.Context, cfg *Configuration, hooks []HookConfig, data *EventData, result *Result) {
	for i := range hooks {
		res := execute(ctx, cfg, &hooks[i], data)
		result.Results = append(result.Results, res)
		result.TotalTime += res.ExecutionTime
		if res.Blocked {
			result.Blocked = true
			break
		}
	}
}
