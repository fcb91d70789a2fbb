package executors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/flowrun/flowrun/internal/data"
	"github.com/flowrun/flowrun/internal/engine"
)

// JSONExtractExecutor pulls a value out of JSON-shaped input using
// dotted-path access with array indexing.
type JSONExtractExecutor struct {
	log *slog.Logger
}

func (e *JSONExtractExecutor) NodeTypes() []string {
	return []string{"json_extract"}
}

func (e *JSONExtractExecutor) Execute(ctx context.Context, node *engine.Node, input any, results map[string]map[string]any, parentID string) (map[string]any, error) {
	fieldPath := node.ConfigString("field_path", "")
	displayFormat := node.ConfigString("display_format", "text")

	var jsonData any
	if m := inputMap(input); m != nil {
		if v, ok := firstInputField(m, "json", "parsed_json", "text", "data"); ok {
			jsonData = v
		} else {
			jsonData = m
		}
	} else {
		jsonData = input
	}

	if s, ok := jsonData.(string); ok {
		var parsed any
		if err := json.Unmarshal([]byte(s), &parsed); err != nil {
			if strings.HasPrefix(s, "/") {
				return nil, fmt.Errorf("JSON path %q appears to be a file path, not JSON data", s)
			}
			return nil, fmt.Errorf("invalid JSON data")
		}
		jsonData = parsed
	}

	value := data.ExtractNested(jsonData, fieldPath)
	if value == nil {
		return nil, fmt.Errorf("field path %q not found", fieldPath)
	}

	var formatted any
	switch displayFormat {
	case "json":
		encoded, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return nil, err
		}
		formatted = string(encoded)
	default:
		formatted = data.Stringify(value)
	}

	return map[string]any{
		"data":            formatted,
		"text":            formatted,
		"json":            value,
		"extracted_value": formatted,
		"field_path":      fieldPath,
		"original":        jsonData,
	}, nil
}
