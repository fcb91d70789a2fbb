package executors

import (
	"context"
	"testing"

	"github.com/flowrun/flowrun/internal/engine"
)

func TestLogicalGateExecutor(t *testing.T) {
	exec := &LogicalGateExecutor{log: testLogger()}
	ctx := context.Background()

	t.Run("true condition passes input through", func(t *testing.T) {
		input := map[string]any{"condition": true, "data": "payload"}
		result, err := exec.Execute(ctx, testNode("g", "logical_gate", nil), input, nil, "")
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		trigger, ok := result["trigger"].(map[string]any)
		if !ok || trigger["data"] != "payload" {
			t.Fatalf("expected input passthrough, got %v", result)
		}
	})

	t.Run("false condition emits the stop signal", func(t *testing.T) {
		result, err := exec.Execute(ctx, testNode("g", "logical_gate", nil),
			map[string]any{"condition": false}, nil, "")
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if result[engine.KeyStopExecution] != true {
			t.Fatalf("expected stop signal, got %v", result)
		}
	})

	t.Run("invert flips the outcome", func(t *testing.T) {
		result, err := exec.Execute(ctx, testNode("g", "logical_gate", map[string]any{"invert": true}),
			map[string]any{"condition": false}, nil, "")
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if _, stopped := result[engine.KeyStopExecution]; stopped {
			t.Fatalf("inverted false should pass, got %v", result)
		}
	})

	t.Run("condition falls back through result and data", func(t *testing.T) {
		result, err := exec.Execute(ctx, testNode("g", "logical_gate", nil),
			map[string]any{"result": false}, nil, "")
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if result[engine.KeyStopExecution] != true {
			t.Fatalf("false result field should stop, got %v", result)
		}
	})

	t.Run("nil input with no condition stops", func(t *testing.T) {
		result, err := exec.Execute(ctx, testNode("g", "logical_gate", nil), nil, nil, "")
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if result[engine.KeyStopExecution] != true {
			t.Fatalf("nil input is falsy, got %v", result)
		}
	})
}
