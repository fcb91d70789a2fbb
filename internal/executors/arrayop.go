package executors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/flowrun/flowrun/internal/data"
	"github.com/flowrun/flowrun/internal/engine"
)

// ArrayExecutor transforms arrays: projection, filtering, slicing,
// ordering and aggregation. field_path selects a nested value per item
// where applicable.
type ArrayExecutor struct {
	log *slog.Logger
}

func (e *ArrayExecutor) NodeTypes() []string {
	return []string{"array"}
}

func (e *ArrayExecutor) Execute(ctx context.Context, node *engine.Node, input any, results map[string]map[string]any, parentID string) (map[string]any, error) {
	operation := node.ConfigString("operation", "map")
	fieldPath := node.ConfigString("field_path", "")
	filterValue := node.ConfigString("filter_value", "")
	filterOperator := node.ConfigString("filter_operator", "equals")
	joinSeparator := node.ConfigString("join_separator", ", ")
	sliceStart := node.ConfigInt("slice_start", 0)
	sliceEnd := node.ConfigInt("slice_end", 0)

	var raw any
	if m := inputMap(input); m != nil {
		if v, ok := firstInputField(m, "array", "data"); ok {
			raw = v
		}
	} else {
		raw = input
	}

	if s, ok := raw.(string); ok {
		var parsed any
		if err := json.Unmarshal([]byte(s), &parsed); err != nil {
			return nil, fmt.Errorf("invalid array data")
		}
		raw = parsed
	}

	array, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("input is not an array")
	}

	e.log.Debug("array", "node", node.ID, "operation", operation, "length", len(array))

	var result any
	switch operation {
	case "map":
		if fieldPath == "" {
			result = append([]any(nil), array...)
		} else {
			mapped := make([]any, len(array))
			for i, item := range array {
				mapped[i] = data.ExtractNested(item, fieldPath)
			}
			result = mapped
		}
	case "filter":
		var filtered []any
		for _, item := range array {
			candidate := item
			if fieldPath != "" {
				candidate = data.ExtractNested(item, fieldPath)
			}
			if matchesFilter(candidate, filterValue, filterOperator) {
				filtered = append(filtered, item)
			}
		}
		if filtered == nil {
			filtered = []any{}
		}
		result = filtered
	case "length":
		result = len(array)
	case "join":
		items := make([]string, len(array))
		for i, item := range array {
			if fieldPath != "" {
				items[i] = data.Stringify(data.ExtractNested(item, fieldPath))
			} else {
				items[i] = data.Stringify(item)
			}
		}
		result = strings.Join(items, joinSeparator)
	case "first":
		if len(array) > 0 {
			result = array[0]
		}
	case "last":
		if len(array) > 0 {
			result = array[len(array)-1]
		}
	case "slice":
		end := sliceEnd
		if end <= 0 || end > len(array) {
			end = len(array)
		}
		start := sliceStart
		if start < 0 {
			start = 0
		}
		if start > end {
			start = end
		}
		result = append([]any(nil), array[start:end]...)
	case "reverse":
		reversed := make([]any, len(array))
		for i, item := range array {
			reversed[len(array)-1-i] = item
		}
		result = reversed
	case "sort":
		sorted := append([]any(nil), array...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sortKey(sorted[i], fieldPath) < sortKey(sorted[j], fieldPath)
		})
		result = sorted
	case "unique":
		seen := make(map[string]bool)
		var unique []any
		for _, item := range array {
			key := data.Stringify(item)
			if fieldPath != "" {
				key = data.Stringify(data.ExtractNested(item, fieldPath))
			}
			if !seen[key] {
				seen[key] = true
				unique = append(unique, item)
			}
		}
		if unique == nil {
			unique = []any{}
		}
		result = unique
	default:
		result = array
	}

	length := len(array)
	if arr, ok := result.([]any); ok {
		length = len(arr)
	}

	var first, last any
	if len(array) > 0 {
		first = array[0]
		last = array[len(array)-1]
	}

	return map[string]any{
		"result": result,
		"data":   result,
		"text":   data.Stringify(result),
		"length": length,
		"first":  first,
		"last":   last,
	}, nil
}

func sortKey(item any, fieldPath string) string {
	if fieldPath != "" {
		item = data.ExtractNested(item, fieldPath)
	}
	return data.Stringify(item)
}

func matchesFilter(value any, filterValue, operator string) bool {
	valueStr := data.Stringify(value)
	valueLower := strings.ToLower(valueStr)
	filterLower := strings.ToLower(filterValue)

	switch operator {
	case "equals":
		return valueStr == filterValue
	case "not_equals":
		return valueStr != filterValue
	case "contains":
		return strings.Contains(valueLower, filterLower)
	case "greater_than":
		a, okA := data.ToNumber(value)
		b, okB := data.ToNumber(filterValue)
		return okA && okB && a > b
	case "less_than":
		a, okA := data.ToNumber(value)
		b, okB := data.ToNumber(filterValue)
		return okA && okB && a < b
	case "starts_with":
		return strings.HasPrefix(valueLower, filterLower)
	case "ends_with":
		return strings.HasSuffix(valueLower, filterLower)
	default:
		return true
	}
}
