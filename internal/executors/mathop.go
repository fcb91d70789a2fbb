package executors

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/flowrun/flowrun/internal/data"
	"github.com/flowrun/flowrun/internal/engine"
)

// MathExecutor performs arithmetic on two operands sourced from input
// ports or config. Results are rounded to the configured number of
// decimal places and returned alongside a formatted string.
type MathExecutor struct {
	log *slog.Logger
}

func (e *MathExecutor) NodeTypes() []string {
	return []string{"math"}
}

func (e *MathExecutor) Execute(ctx context.Context, node *engine.Node, input any, results map[string]map[string]any, parentID string) (map[string]any, error) {
	operation := node.ConfigString("operation", "add")
	decimalPlaces := node.ConfigInt("decimal_places", 0)

	valueA := node.ConfigFloat("value_a", 0)
	valueB := node.ConfigFloat("value_b", 0)

	if m := inputMap(input); m != nil {
		if v, ok := mathOperand(m, "value_a", "number_a", "data"); ok {
			valueA = v
		}
		if v, ok := mathOperand(m, "value_b", "number_b"); ok {
			valueB = v
		}
	}

	e.log.Debug("math", "node", node.ID, "operation", operation, "a", valueA, "b", valueB)

	var result float64
	switch operation {
	case "add":
		result = valueA + valueB
	case "sub", "subtract":
		result = valueA - valueB
	case "mul", "multiply":
		result = valueA * valueB
	case "div", "divide":
		if valueB == 0 {
			return nil, fmt.Errorf("Division by zero")
		}
		result = valueA / valueB
	case "mod", "modulo":
		if valueB == 0 {
			return nil, fmt.Errorf("Modulo by zero")
		}
		result = math.Mod(valueA, valueB)
	case "pow", "power":
		result = math.Pow(valueA, valueB)
	case "min":
		result = math.Min(valueA, valueB)
	case "max":
		result = math.Max(valueA, valueB)
	case "abs":
		result = math.Abs(valueA)
	case "round":
		result = math.Round(valueA)
	case "floor":
		result = math.Floor(valueA)
	case "ceil":
		result = math.Ceil(valueA)
	default:
		result = valueA
	}

	if decimalPlaces >= 0 {
		shift := math.Pow(10, float64(decimalPlaces))
		result = math.Round(result*shift) / shift
	}

	var formatted string
	if decimalPlaces == 0 {
		formatted = strconv.FormatInt(int64(result), 10)
	} else {
		formatted = strconv.FormatFloat(result, 'f', decimalPlaces, 64)
	}

	return map[string]any{
		"result":    result,
		"data":      result,
		"text":      formatted,
		"formatted": formatted,
	}, nil
}

// mathOperand pulls a numeric operand out of the named ports, looking
// inside structured port values for the usual carrier fields.
func mathOperand(input map[string]any, ports ...string) (float64, bool) {
	for _, port := range ports {
		raw, ok := input[port]
		if !ok {
			continue
		}
		if nested, ok := raw.(map[string]any); ok {
			for _, field := range []string{"result", "data", "value", "number"} {
				if v, ok := nested[field]; ok {
					if n, ok := data.ToNumber(v); ok {
						return n, true
					}
				}
			}
			return 0, false
		}
		if n, ok := data.ToNumber(raw); ok {
			return n, true
		}
	}
	return 0, false
}
