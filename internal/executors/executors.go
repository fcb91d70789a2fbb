// Package executors provides the built-in node executors: HTTP
// fetching, VFS load/save, data transforms, control-flow drivers and
// the unknown-type fallback.
package executors

import (
	"log/slog"

	"github.com/flowrun/flowrun/internal/client"
	"github.com/flowrun/flowrun/internal/engine"
	"github.com/flowrun/flowrun/internal/proxy"
	"github.com/flowrun/flowrun/internal/vfs"
)

// Deps bundles the collaborators shared by the built-in executors.
type Deps struct {
	VFS    *vfs.Adapter
	Proxy  *proxy.Adapter
	Client *client.Client
	Defs   *engine.DefinitionCache
	Log    *slog.Logger
}

// RegisterAll installs every built-in executor plus the unknown-type
// fallback into the registry.
func RegisterAll(reg *engine.Registry, deps Deps) {
	reg.Register(&HTTPExecutor{proxy: deps.Proxy, log: deps.Log})
	reg.Register(&JSONExtractExecutor{log: deps.Log})
	reg.Register(&VFSLoadExecutor{vfs: deps.VFS, log: deps.Log})
	reg.Register(&VFSSaveExecutor{vfs: deps.VFS, log: deps.Log})
	reg.Register(&VFSDirectoryListExecutor{vfs: deps.VFS, log: deps.Log})
	reg.Register(&ForEachExecutor{log: deps.Log})
	reg.Register(&ConditionExecutor{log: deps.Log})
	reg.Register(&LogicalGateExecutor{log: deps.Log})
	reg.Register(&MathExecutor{log: deps.Log})
	reg.Register(&StringExecutor{log: deps.Log})
	reg.Register(&ArrayExecutor{log: deps.Log})
	reg.Register(&RandomExecutor{})
	reg.Register(&NodeReferenceExecutor{log: deps.Log})
	reg.Register(&TextExecutor{})
	reg.Register(&TimerExecutor{log: deps.Log})
	reg.Register(&DelayExecutor{log: deps.Log})
	reg.Register(&LLMChatExecutor{client: deps.Client, log: deps.Log})
	reg.SetFallback(&UnknownExecutor{defs: deps.Defs, log: deps.Log})
}

// inputMap returns input as a map, or nil when it is not one.
func inputMap(input any) map[string]any {
	m, _ := input.(map[string]any)
	return m
}

// firstInputField returns the first non-nil value among the named
// fields of a structured input.
func firstInputField(input map[string]any, fields ...string) (any, bool) {
	for _, f := range fields {
		if v, ok := input[f]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}
