package executors

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/flowrun/flowrun/internal/data"
	"github.com/flowrun/flowrun/internal/engine"
)

// NodeReferenceExecutor reads a value directly from a previously
// executed node's result map, with a configured literal as fallback.
type NodeReferenceExecutor struct {
	log *slog.Logger
}

func (e *NodeReferenceExecutor) NodeTypes() []string {
	return []string{"node_reference"}
}

func (e *NodeReferenceExecutor) Execute(ctx context.Context, node *engine.Node, input any, results map[string]map[string]any, parentID string) (map[string]any, error) {
	sourceNodeID := node.ConfigString("source_node_id", "")
	outputPortID := node.ConfigString("output_port_id", "")
	fallbackValue := node.ConfigString("fallback_value", "")

	if sourceNodeID == "" {
		return fallbackResult(fallbackValue, "no source node selected"), nil
	}
	if outputPortID == "" {
		return fallbackResult(fallbackValue, "no output port selected"), nil
	}

	source, ok := results[sourceNodeID]
	if !ok {
		e.log.Debug("node_reference source not found", "node", node.ID, "source", sourceNodeID)
		return fallbackResult(fallbackValue, "no data found for node "+sourceNodeID), nil
	}

	var referenced any
	if v, ok := source[outputPortID]; ok {
		referenced = v
	} else if len(source) == 1 {
		for _, v := range source {
			referenced = v
		}
	} else {
		referenced = source
	}

	if referenced == nil {
		return fallbackResult(fallbackValue, "no data found for node "+sourceNodeID+", port "+outputPortID), nil
	}
	return formatReference(referenced), nil
}

func fallbackResult(fallbackValue, errMsg string) map[string]any {
	var fallback any
	if fallbackValue != "" {
		fallback = fallbackValue
	}

	number, _ := data.ToNumber(fallback)
	return map[string]any{
		"data":          fallback,
		"text":          data.Stringify(fallback),
		"json":          fallback,
		"number":        number,
		"boolean":       data.Truthy(fallback),
		"binary":        nil,
		"original":      fallback,
		engine.KeyError: errMsg,
	}
}

func formatReference(referenced any) map[string]any {
	number, _ := data.ToNumber(referenced)

	jsonValue := referenced
	if s, ok := referenced.(string); ok {
		var parsed any
		if err := json.Unmarshal([]byte(s), &parsed); err == nil {
			jsonValue = parsed
		}
	}

	var binary any
	if b, ok := referenced.([]byte); ok {
		binary = b
	}

	return map[string]any{
		"data":     referenced,
		"text":     data.Stringify(referenced),
		"json":     jsonValue,
		"number":   number,
		"boolean":  data.Truthy(referenced),
		"binary":   binary,
		"original": referenced,
	}
}
