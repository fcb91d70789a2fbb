package executors

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flowrun/flowrun/internal/engine"
)

// ForEachExecutor validates the array input and hands control to the
// execution manager, which performs the actual iteration over the
// downstream subgraph.
type ForEachExecutor struct {
	log *slog.Logger
}

func (e *ForEachExecutor) NodeTypes() []string {
	return []string{"for_each"}
}

func (e *ForEachExecutor) Execute(ctx context.Context, node *engine.Node, input any, results map[string]map[string]any, parentID string) (map[string]any, error) {
	stopOnError := node.ConfigBool("stop_on_error", true)
	delayMs := node.ConfigFloat("iteration_delay", 0)

	var arrayData []any
	if m := inputMap(input); m != nil {
		if v, ok := firstInputField(m, "array", "data", "file_names", "items"); ok {
			arrayData, _ = v.([]any)
		}
	}
	if arrayData == nil {
		return nil, fmt.Errorf("for_each node requires an array input")
	}

	e.log.Debug("for_each", "node", node.ID, "items", len(arrayData), "stop_on_error", stopOnError)

	return map[string]any{
		engine.KeyForEachControl: true,
		"array_data":             arrayData,
		"stop_on_error":          stopOnError,
		"iteration_delay":        delayMs / 1000.0,
		"node_id":                node.ID,
		"total_items":            len(arrayData),
	}, nil
}
