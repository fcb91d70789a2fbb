package executors

import (
	"context"
	"testing"
)

func TestConditionExecutor(t *testing.T) {
	exec := &ConditionExecutor{log: testLogger()}
	ctx := context.Background()

	run := func(t *testing.T, config map[string]any, input any) bool {
		t.Helper()
		result, err := exec.Execute(ctx, testNode("c", "condition", config), input, nil, "")
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		outcome, ok := result["result"].(bool)
		if !ok {
			t.Fatalf("expected boolean result, got %v", result)
		}
		return outcome
	}

	t.Run("is_empty", func(t *testing.T) {
		cfg := map[string]any{"operator": "is_empty"}
		if !run(t, cfg, map[string]any{"value": nil}) {
			t.Error("nil should be empty")
		}
		if !run(t, cfg, map[string]any{"value": ""}) {
			t.Error("empty string should be empty")
		}
		if !run(t, cfg, map[string]any{"value": "   "}) {
			t.Error("whitespace should be empty")
		}
		if run(t, cfg, map[string]any{"value": float64(0)}) {
			t.Error("zero is a value, not empty")
		}
		if run(t, cfg, map[string]any{"value": "x"}) {
			t.Error("non-empty string should not be empty")
		}
	})

	t.Run("is_not_empty", func(t *testing.T) {
		cfg := map[string]any{"operator": "is_not_empty"}
		if !run(t, cfg, map[string]any{"value": "x"}) {
			t.Error("x is not empty")
		}
		if run(t, cfg, map[string]any{"value": nil}) {
			t.Error("nil is empty")
		}
	})

	t.Run("numeric comparison wins over string", func(t *testing.T) {
		cfg := map[string]any{"operator": "greater_than", "compare_value": "9"}
		if !run(t, cfg, map[string]any{"value": "10"}) {
			t.Error(`"10" > "9" numerically`)
		}
		cfg = map[string]any{"operator": "<=", "compare_value": "9"}
		if run(t, cfg, map[string]any{"value": "10"}) {
			t.Error(`"10" <= "9" is false numerically`)
		}
	})

	t.Run("boolean comparison", func(t *testing.T) {
		cfg := map[string]any{"operator": "equals", "compare_value": "true"}
		if !run(t, cfg, map[string]any{"value": true}) {
			t.Error("true == true")
		}
		if run(t, cfg, map[string]any{"value": false}) {
			t.Error("false != true")
		}
		if !run(t, cfg, map[string]any{"value": "True"}) {
			t.Error(`"True" compares as boolean true`)
		}
	})

	t.Run("string comparison with case folding", func(t *testing.T) {
		cfg := map[string]any{"operator": "==", "compare_value": "Hello", "case_sensitive": false}
		if !run(t, cfg, map[string]any{"value": "hello"}) {
			t.Error("case-insensitive equality should match")
		}
		cfg["case_sensitive"] = true
		if run(t, cfg, map[string]any{"value": "hello"}) {
			t.Error("case-sensitive equality should not match")
		}
	})

	t.Run("contains family", func(t *testing.T) {
		cfg := map[string]any{"operator": "contains", "compare_value": "WORLD", "case_sensitive": false}
		if !run(t, cfg, map[string]any{"value": "hello world"}) {
			t.Error("contains should fold case")
		}
		cfg = map[string]any{"operator": "starts_with", "compare_value": "hello"}
		if !run(t, cfg, map[string]any{"value": "hello world"}) {
			t.Error("starts_with")
		}
		cfg = map[string]any{"operator": "ends_with", "compare_value": "world"}
		if !run(t, cfg, map[string]any{"value": "hello world"}) {
			t.Error("ends_with")
		}
		cfg = map[string]any{"operator": "not_contains", "compare_value": "mars"}
		if !run(t, cfg, map[string]any{"value": "hello world"}) {
			t.Error("not_contains")
		}
	})

	t.Run("value port falls back to extracted fields", func(t *testing.T) {
		cfg := map[string]any{"operator": "==", "compare_value": "Ada"}
		if !run(t, cfg, map[string]any{"extracted_value": "Ada"}) {
			t.Error("extracted_value should feed the comparison")
		}
		if !run(t, cfg, "Ada") {
			t.Error("scalar input should feed the comparison")
		}
	})

	t.Run("result carries value and compare_value", func(t *testing.T) {
		result, err := exec.Execute(ctx, testNode("c", "condition",
			map[string]any{"operator": "==", "compare_value": "1"}),
			map[string]any{"value": float64(1)}, nil, "")
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if result["value"] != float64(1) || result["compare_value"] != "1" {
			t.Fatalf("unexpected echo fields: %v", result)
		}
	})
}
