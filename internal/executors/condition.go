package executors

import (
	"context"
	"log/slog"
	"strings"

	"github.com/flowrun/flowrun/internal/data"
	"github.com/flowrun/flowrun/internal/engine"
)

// ConditionExecutor compares an input value against a configured
// reference. Comparison strength is numeric, then boolean, then string,
// depending on what both sides coerce to.
type ConditionExecutor struct {
	log *slog.Logger
}

func (e *ConditionExecutor) NodeTypes() []string {
	return []string{"condition"}
}

var conditionOperatorAliases = map[string]string{
	"equals":                "==",
	"not_equals":            "!=",
	"greater_than":          ">",
	"less_than":             "<",
	"greater_than_or_equal": ">=",
	"less_than_or_equal":    "<=",
}

func (e *ConditionExecutor) Execute(ctx context.Context, node *engine.Node, input any, results map[string]map[string]any, parentID string) (map[string]any, error) {
	operator := node.ConfigString("operator", "==")
	compareValue := node.ConfigString("compare_value", "")
	caseSensitive := node.ConfigBool("case_sensitive", true)

	if mapped, ok := conditionOperatorAliases[operator]; ok {
		operator = mapped
	}

	var value any
	if m := inputMap(input); m != nil {
		if v, ok := m["value"]; ok {
			value = v
		} else if v, ok := firstInputField(m, "extracted_value", "data", "response", "text"); ok {
			value = v
		} else {
			value = m
		}
	} else {
		value = input
	}

	result := evaluateCondition(value, compareValue, operator, caseSensitive)
	e.log.Debug("condition", "node", node.ID, "operator", operator, "result", result)

	return map[string]any{
		"result":        result,
		"value":         value,
		"compare_value": compareValue,
	}, nil
}

func evaluateCondition(value any, compareValue, operator string, caseSensitive bool) bool {
	valueStr := data.Stringify(value)

	switch operator {
	case "is_empty":
		return value == nil || strings.TrimSpace(valueStr) == ""
	case "is_not_empty":
		return value != nil && strings.TrimSpace(valueStr) != ""
	case "contains":
		return stringContains(valueStr, compareValue, caseSensitive)
	case "not_contains":
		return !stringContains(valueStr, compareValue, caseSensitive)
	case "starts_with":
		return stringFold(valueStr, caseSensitive, func(a, b string) bool { return strings.HasPrefix(a, b) })(compareValue)
	case "ends_with":
		return stringFold(valueStr, caseSensitive, func(a, b string) bool { return strings.HasSuffix(a, b) })(compareValue)
	}

	// Boolean comparison when either side is boolean-shaped.
	if _, isBool := value.(bool); operator == "==" || operator == "!=" {
		compareLower := strings.ToLower(compareValue)
		if isBool || compareLower == "true" || compareLower == "false" {
			valueBool := data.Truthy(value)
			if s, ok := value.(string); ok {
				valueBool = strings.EqualFold(s, "true")
			}
			compareBool := compareLower == "true"
			if operator == "==" {
				return valueBool == compareBool
			}
			return valueBool != compareBool
		}
	}

	// Numeric comparison when both sides coerce.
	valueNum, okA := data.ToNumber(value)
	compareNum, okB := data.ToNumber(compareValue)
	if okA && okB {
		switch operator {
		case "==":
			return valueNum == compareNum
		case "!=":
			return valueNum != compareNum
		case ">":
			return valueNum > compareNum
		case "<":
			return valueNum < compareNum
		case ">=":
			return valueNum >= compareNum
		case "<=":
			return valueNum <= compareNum
		}
	}

	// String comparison as the last resort.
	compareStr := compareValue
	if !caseSensitive {
		valueStr = strings.ToLower(valueStr)
		compareStr = strings.ToLower(compareStr)
	}
	switch operator {
	case "==":
		return valueStr == compareStr
	case "!=":
		return valueStr != compareStr
	}
	return false
}

func stringContains(haystack, needle string, caseSensitive bool) bool {
	if caseSensitive {
		return strings.Contains(haystack, needle)
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func stringFold(value string, caseSensitive bool, match func(a, b string) bool) func(string) bool {
	return func(compare string) bool {
		if caseSensitive {
			return match(value, compare)
		}
		return match(strings.ToLower(value), strings.ToLower(compare))
	}
}
