package engine

import (
	"context"
	"fmt"
	"log/slog"
)

// Executor runs one or more node types. Execute returns the node's
// result map, or nil when the node produced nothing. Errors returned
// here are converted into `error` results by the registry; they never
// travel further as Go errors.
type Executor interface {
	NodeTypes() []string
	Execute(ctx context.Context, node *Node, input any, results map[string]map[string]any, parentID string) (map[string]any, error)
}

// Registry dispatches node execution strictly by node type. Unknown
// types go to the fallback executor.
type Registry struct {
	executors map[string]Executor
	fallback  Executor
	log       *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		executors: make(map[string]Executor),
		log:       log,
	}
}

// Register adds an executor for every node type it declares. A later
// registration for the same type replaces the earlier one.
func (r *Registry) Register(e Executor) {
	for _, t := range e.NodeTypes() {
		r.executors[t] = e
	}
}

// SetFallback installs the executor used for unregistered node types.
func (r *Registry) SetFallback(e Executor) {
	r.fallback = e
}

// Lookup returns the executor for a node type, falling back to the
// unknown-type executor.
func (r *Registry) Lookup(nodeType string) Executor {
	if e, ok := r.executors[nodeType]; ok {
		return e
	}
	return r.fallback
}

// Execute dispatches a node to its executor. Executor errors and panics
// are captured into an `error` result; callers never see a Go error or
// a panic from this method.
func (r *Registry) Execute(ctx context.Context, node *Node, input any, results map[string]map[string]any, parentID string) (result map[string]any) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("executor panic", "node", node.ID, "type", node.Type, "panic", rec)
			result = map[string]any{KeyError: fmt.Sprintf("executor panic: %v", rec)}
		}
	}()

	executor := r.Lookup(node.Type)
	if executor == nil {
		return map[string]any{KeyError: fmt.Sprintf("no executor for node type %q", node.Type)}
	}

	out, err := executor.Execute(ctx, node, input, results, parentID)
	if err != nil {
		return map[string]any{KeyError: err.Error()}
	}
	return out
}
