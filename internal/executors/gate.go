package executors

import (
	"context"
	"log/slog"

	"github.com/flowrun/flowrun/internal/data"
	"github.com/flowrun/flowrun/internal/engine"
)

// LogicalGateExecutor lets execution continue when its condition is
// true and emits the stop signal otherwise.
type LogicalGateExecutor struct {
	log *slog.Logger
}

func (e *LogicalGateExecutor) NodeTypes() []string {
	return []string{"logical_gate"}
}

func (e *LogicalGateExecutor) Execute(ctx context.Context, node *engine.Node, input any, results map[string]map[string]any, parentID string) (map[string]any, error) {
	invert := node.ConfigBool("invert", false)

	var condition bool
	if m := inputMap(input); m != nil {
		if v, ok := m["condition"]; ok {
			condition = data.Truthy(v)
		} else if v, ok := m["value"]; ok {
			condition = data.Truthy(v)
		} else if v, ok := firstInputField(m, "result", "data", "response", "text"); ok {
			condition = data.Truthy(v)
		} else {
			// Any non-nil input counts as true.
			for _, v := range m {
				if v != nil {
					condition = true
					break
				}
			}
		}
	} else {
		condition = data.Truthy(input)
	}

	if invert {
		condition = !condition
	}
	e.log.Debug("logical_gate", "node", node.ID, "condition", condition, "invert", invert)

	if condition {
		if input == nil {
			return map[string]any{"trigger": true}, nil
		}
		return map[string]any{"trigger": input}, nil
	}
	return map[string]any{engine.KeyStopExecution: true}, nil
}
