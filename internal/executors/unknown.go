package executors

import (
	"context"
	"log/slog"

	"github.com/flowrun/flowrun/internal/engine"
)

// UnknownExecutor is the fallback for unregistered node types. It
// synthesizes plausible defaults for every output the node definition
// declares so downstream port mapping keeps working.
type UnknownExecutor struct {
	defs *engine.DefinitionCache
	log  *slog.Logger
}

func (e *UnknownExecutor) NodeTypes() []string {
	return []string{"unknown"}
}

func (e *UnknownExecutor) Execute(ctx context.Context, node *engine.Node, input any, results map[string]map[string]any, parentID string) (map[string]any, error) {
	def := e.defs.Get(ctx, node.Type)
	e.log.Debug("executing unknown node type", "node", node.ID, "type", node.Type)

	result := make(map[string]any)
	for _, output := range def.Outputs {
		id := output.ID
		if id == "" {
			id = "data"
		}
		switch output.Type {
		case "text":
			result[id] = "Processed " + node.Type + " output"
		case "json":
			result[id] = map[string]any{"node_type": node.Type, "processed": true}
		case "number":
			result[id] = 1
		case "boolean":
			result[id] = true
		case "binary":
			result[id] = []byte("default_binary_data")
		default:
			result[id] = "Default " + node.Type + " data"
		}
	}

	if input != nil {
		result["input_data"] = input
	}
	result["node_type"] = node.Type
	result["node_id"] = node.ID
	result["processed"] = true
	return result, nil
}
