package executors

import (
	"context"
	"testing"

	"github.com/flowrun/flowrun/internal/engine"
)

func TestNodeReferenceExecutor(t *testing.T) {
	exec := &NodeReferenceExecutor{log: testLogger()}
	ctx := context.Background()

	results := map[string]map[string]any{
		"producer": {"text": "hello", "count": float64(3)},
		"single":   {"only": `{"k": 1}`},
	}

	t.Run("reads the configured port", func(t *testing.T) {
		result, err := exec.Execute(ctx, testNode("ref", "node_reference",
			map[string]any{"source_node_id": "producer", "output_port_id": "count"}), nil, results, "")
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if result["data"] != float64(3) || result["number"] != float64(3) || result["text"] != "3" {
			t.Fatalf("unexpected result: %v", result)
		}
	})

	t.Run("single-output result falls back to its only value", func(t *testing.T) {
		result, err := exec.Execute(ctx, testNode("ref", "node_reference",
			map[string]any{"source_node_id": "single", "output_port_id": "missing"}), nil, results, "")
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if result["data"] != `{"k": 1}` {
			t.Fatalf("unexpected data: %v", result["data"])
		}
		// The JSON port carries the parsed value when the string parses.
		parsed, ok := result["json"].(map[string]any)
		if !ok || parsed["k"] != float64(1) {
			t.Fatalf("unexpected json port: %v", result["json"])
		}
	})

	t.Run("unknown source yields the fallback with an error", func(t *testing.T) {
		result, err := exec.Execute(ctx, testNode("ref", "node_reference",
			map[string]any{"source_node_id": "ghost", "output_port_id": "x", "fallback_value": "default"}), nil, results, "")
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if result["data"] != "default" {
			t.Fatalf("expected fallback value, got %v", result["data"])
		}
		if _, ok := result[engine.KeyError]; !ok {
			t.Fatalf("expected error marker, got %v", result)
		}
	})

	t.Run("missing configuration yields the fallback", func(t *testing.T) {
		result, err := exec.Execute(ctx, testNode("ref", "node_reference", nil), nil, results, "")
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if result[engine.KeyError] != "no source node selected" {
			t.Fatalf("unexpected result: %v", result)
		}
	})
}
