package executors

import (
	"context"
	"reflect"
	"testing"
)

func TestArrayExecutor(t *testing.T) {
	exec := &ArrayExecutor{log: testLogger()}
	ctx := context.Background()

	people := []any{
		map[string]any{"name": "Ada", "age": float64(36)},
		map[string]any{"name": "Grace", "age": float64(45)},
		map[string]any{"name": "Ada", "age": float64(36)},
	}

	run := func(t *testing.T, config map[string]any, input any) map[string]any {
		t.Helper()
		result, err := exec.Execute(ctx, testNode("a", "array", config), input, nil, "")
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		return result
	}

	t.Run("map with field path", func(t *testing.T) {
		result := run(t, map[string]any{"operation": "map", "field_path": "name"},
			map[string]any{"array": people})
		if !reflect.DeepEqual(result["result"], []any{"Ada", "Grace", "Ada"}) {
			t.Fatalf("got %v", result["result"])
		}
	})

	t.Run("filter keeps whole items", func(t *testing.T) {
		result := run(t, map[string]any{
			"operation": "filter", "field_path": "age",
			"filter_operator": "greater_than", "filter_value": "40",
		}, map[string]any{"array": people})
		filtered := result["result"].([]any)
		if len(filtered) != 1 || filtered[0].(map[string]any)["name"] != "Grace" {
			t.Fatalf("got %v", filtered)
		}
	})

	t.Run("join", func(t *testing.T) {
		result := run(t, map[string]any{"operation": "join", "field_path": "name", "join_separator": "|"},
			map[string]any{"array": people})
		if result["result"] != "Ada|Grace|Ada" {
			t.Fatalf("got %v", result["result"])
		}
	})

	t.Run("length first last", func(t *testing.T) {
		result := run(t, map[string]any{"operation": "length"}, map[string]any{"array": people})
		if result["result"] != 3 {
			t.Fatalf("length: %v", result["result"])
		}
		if result["first"].(map[string]any)["name"] != "Ada" || result["last"].(map[string]any)["name"] != "Ada" {
			t.Fatalf("first/last: %v", result)
		}
	})

	t.Run("slice", func(t *testing.T) {
		result := run(t, map[string]any{"operation": "slice", "slice_start": 1, "slice_end": 2},
			map[string]any{"array": []any{"a", "b", "c"}})
		if !reflect.DeepEqual(result["result"], []any{"b"}) {
			t.Fatalf("got %v", result["result"])
		}
	})

	t.Run("reverse", func(t *testing.T) {
		result := run(t, map[string]any{"operation": "reverse"},
			map[string]any{"array": []any{"a", "b", "c"}})
		if !reflect.DeepEqual(result["result"], []any{"c", "b", "a"}) {
			t.Fatalf("got %v", result["result"])
		}
	})

	t.Run("sort by field", func(t *testing.T) {
		result := run(t, map[string]any{"operation": "sort", "field_path": "name"},
			map[string]any{"array": people})
		sorted := result["result"].([]any)
		if sorted[0].(map[string]any)["name"] != "Ada" || sorted[2].(map[string]any)["name"] != "Grace" {
			t.Fatalf("got %v", sorted)
		}
	})

	t.Run("unique by field", func(t *testing.T) {
		result := run(t, map[string]any{"operation": "unique", "field_path": "name"},
			map[string]any{"array": people})
		if result["length"] != 2 {
			t.Fatalf("got %v", result["result"])
		}
	})

	t.Run("JSON string input is parsed", func(t *testing.T) {
		result := run(t, map[string]any{"operation": "length"},
			map[string]any{"data": `[1, 2, 3]`})
		if result["result"] != 3 {
			t.Fatalf("got %v", result["result"])
		}
	})

	t.Run("invalid inputs", func(t *testing.T) {
		_, err := exec.Execute(ctx, testNode("a", "array", nil),
			map[string]any{"data": "not json"}, nil, "")
		if err == nil || err.Error() != "invalid array data" {
			t.Fatalf("expected invalid array data, got %v", err)
		}

		_, err = exec.Execute(ctx, testNode("a", "array", nil),
			map[string]any{"data": map[string]any{"k": 1}}, nil, "")
		if err == nil || err.Error() != "input is not an array" {
			t.Fatalf("expected input is not an array, got %v", err)
		}
	})
}
