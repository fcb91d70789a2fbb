package data

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var arrayAccessRegex = regexp.MustCompile(`^(.+)\[(\d+)\]$`)

// ExtractNested resolves a dotted path against a JSON-shaped value.
// Segments may use array access like "items[0].name". Any missing
// segment yields nil rather than an error.
func ExtractNested(obj any, path string) any {
	if obj == nil {
		return nil
	}

	current := obj
	for _, key := range strings.Split(path, ".") {
		if current == nil {
			return nil
		}

		if match := arrayAccessRegex.FindStringSubmatch(key); match != nil {
			index, _ := strconv.Atoi(match[2])

			asMap, ok := current.(map[string]any)
			if !ok {
				return nil
			}
			list, ok := asMap[match[1]].([]any)
			if !ok || index < 0 || index >= len(list) {
				return nil
			}
			current = list[index]
			continue
		}

		asMap, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		value, exists := asMap[key]
		if !exists {
			return nil
		}
		current = value
	}

	return current
}

// portFallbacks maps an input port name to the ordered list of result
// fields that may stand in for it when the exact port is absent. The
// table mirrors the editor's wiring tolerance.
var portFallbacks = map[string][]string{
	"text":       {"text", "content", "data", "result", "response"},
	"data":       {"data", "content", "result", "text", "value"},
	"json":       {"json", "parsed_json", "data", "result"},
	"value":      {"value", "data", "result", "content", "text"},
	"url":        {"url", "uri", "link", "address", "path"},
	"condition":  {"result", "data", "content", "text", "value"},
	"image_data": {"data", "image_data", "image", "url", "file_path"},
	"audio_data": {"data", "audio_data", "audio", "url", "file_path"},
	"prompt":     {"text", "prompt", "data", "content", "value"},
	"trigger":    {"trigger", "data", "value"},
}

// FallbackFields returns the candidate source fields for a port name,
// defaulting to the port name itself.
func FallbackFields(port string) []string {
	if fields, ok := portFallbacks[port]; ok {
		return fields
	}
	return []string{port}
}

// LookupPort picks a value for port out of a result map: exact port key
// first, then the fallback table. The second return reports whether any
// field matched.
func LookupPort(result map[string]any, port string) (any, bool) {
	if value, ok := result[port]; ok {
		return value, true
	}
	for _, field := range FallbackFields(port) {
		if value, ok := result[field]; ok {
			return value, true
		}
	}
	return nil, false
}

// MapInputPorts shapes raw input for a node the way the editor does.
// When the raw map already carries one of the declared input ports it
// is passed through untouched; otherwise each declared port is filled
// from the fallback table, falling back to the first available value.
func MapInputPorts(raw any, inputPorts []string) any {
	rawMap, ok := raw.(map[string]any)
	if !ok || raw == nil {
		return raw
	}

	for _, port := range inputPorts {
		if _, ok := rawMap[port]; ok {
			return rawMap
		}
	}

	if len(inputPorts) == 0 {
		return rawMap
	}

	mapped := make(map[string]any, len(inputPorts))
	for _, port := range inputPorts {
		if value, ok := LookupPort(rawMap, port); ok {
			mapped[port] = value
			continue
		}
		if first, ok := firstValue(rawMap); ok {
			mapped[port] = first
		}
	}

	if len(mapped) > 0 {
		return mapped
	}
	return rawMap
}

func firstValue(m map[string]any) (any, bool) {
	if len(m) == 0 {
		return nil, false
	}
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return m[keys[0]], true
}

// ReplaceTemplatePlaceholders substitutes the date/time placeholders in
// text: {{DATE}}, {{DATETIME}} and {{TIMESTAMP}}.
func ReplaceTemplatePlaceholders(text string) string {
	return replaceTemplatePlaceholdersAt(text, time.Now())
}

func replaceTemplatePlaceholdersAt(text string, now time.Time) string {
	if strings.Contains(text, "{{DATE}}") {
		text = strings.ReplaceAll(text, "{{DATE}}", now.Format("2006-01-02"))
	}
	if strings.Contains(text, "{{DATETIME}}") {
		text = strings.ReplaceAll(text, "{{DATETIME}}", now.Format("2006-01-02_15-04-05"))
	}
	if strings.Contains(text, "{{TIMESTAMP}}") {
		text = strings.ReplaceAll(text, "{{TIMESTAMP}}", strconv.FormatInt(now.Unix(), 10))
	}
	return text
}

// ReplaceInputPlaceholders substitutes {{field}} placeholders with
// values from the input map. {{data}} falls back through data, result
// and text before stringifying the whole input.
func ReplaceInputPlaceholders(text string, input any) string {
	if input == nil {
		return text
	}

	inputMap, ok := input.(map[string]any)
	if !ok {
		if strings.Contains(text, "{{data}}") {
			text = strings.ReplaceAll(text, "{{data}}", Stringify(input))
		}
		return text
	}

	for key, value := range inputMap {
		placeholder := "{{" + key + "}}"
		if strings.Contains(text, placeholder) {
			replacement := Stringify(value)
			if _, isString := value.(string); !isString {
				if encoded, err := json.Marshal(value); err == nil {
					replacement = string(encoded)
				}
			}
			text = strings.ReplaceAll(text, placeholder, replacement)
		}
	}

	if strings.Contains(text, "{{data}}") {
		var replacement string
		switch {
		case inputMap["data"] != nil:
			replacement = Stringify(inputMap["data"])
		case inputMap["result"] != nil:
			replacement = Stringify(inputMap["result"])
		case inputMap["text"] != nil:
			replacement = Stringify(inputMap["text"])
		default:
			encoded, _ := json.Marshal(inputMap)
			replacement = string(encoded)
		}
		text = strings.ReplaceAll(text, "{{data}}", replacement)
	}

	return text
}

// Format names accepted by Normalize and the vfs_save executor.
const (
	FormatAuto   = "auto"
	FormatJSON   = "json"
	FormatText   = "text"
	FormatBinary = "binary"
	FormatBlob   = "blob"
)

// Normalize coerces a port value into the byte sequence to store in the
// VFS plus the detected format. With "auto", maps become json, strings
// that parse as JSON become json, byte slices become binary, everything
// else text. The binary path accepts long base64 strings and decodes
// them.
func Normalize(value any, format string) ([]byte, string) {
	if format == FormatAuto || format == "" {
		switch v := value.(type) {
		case map[string]any:
			format = FormatJSON
		case []any:
			format = FormatJSON
		case string:
			if json.Valid([]byte(v)) && strings.TrimSpace(v) != "" {
				format = FormatJSON
			} else {
				format = FormatText
			}
		case []byte:
			format = FormatBinary
		default:
			format = FormatText
		}
	}

	switch format {
	case FormatJSON:
		switch v := value.(type) {
		case map[string]any, []any:
			encoded, _ := json.MarshalIndent(v, "", "  ")
			return encoded, format
		case string:
			return []byte(v), format
		default:
			encoded, _ := json.Marshal(Stringify(value))
			return encoded, format
		}

	case FormatBinary:
		switch v := value.(type) {
		case []byte:
			return v, format
		case string:
			if looksLikeBase64(v) {
				if decoded, err := base64.StdEncoding.DecodeString(v); err == nil {
					return decoded, format
				}
			}
			return []byte(v), format
		default:
			return []byte(Stringify(value)), format
		}

	default:
		if v, ok := value.(string); ok {
			return []byte(v), FormatText
		}
		return []byte(Stringify(value)), FormatText
	}
}

func looksLikeBase64(s string) bool {
	if len(s) <= 100 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '+' || r == '/' || r == '=':
		default:
			return false
		}
	}
	return true
}

// ExtractPayload digs a usable text or binary payload out of arbitrarily
// nested input, preferring the conventional carrier fields. Used by
// vfs_save when the wired port carries a whole result map rather than a
// scalar. parentResult, when non-nil, is searched as a last resort.
func ExtractPayload(input any, parentResult any) any {
	if found := searchPayload(input, 0); found != nil {
		return found
	}
	if parentResult != nil {
		if found := searchPayload(parentResult, 0); found != nil {
			return found
		}
	}
	return input
}

var payloadFields = []string{"data", "content", "image_data", "file_data", "binary_data", "text"}

func searchPayload(value any, depth int) any {
	if depth > 3 {
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return v
	case string:
		if v != "" {
			return v
		}
	case map[string]any:
		for _, field := range payloadFields {
			if inner, ok := v[field]; ok && inner != nil {
				if found := searchPayload(inner, depth+1); found != nil {
					return found
				}
			}
		}
		for _, inner := range v {
			if inner != nil {
				if found := searchPayload(inner, depth+1); found != nil {
					return found
				}
			}
		}
	case []any:
		for _, item := range v {
			if item != nil {
				if found := searchPayload(item, depth+1); found != nil {
					return found
				}
			}
		}
	}

	return nil
}

// Stringify renders a port value the way progress lines and text ports
// expect: numbers without a trailing ".0" when integral, JSON for
// composites.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case []byte:
		return string(v)
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ToNumber coerces strings and numeric types to float64. The second
// return reports whether the coercion succeeded.
func ToNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Truthy mirrors the editor's boolean coercion: nil, false, zero, empty
// string and empty composites are false.
func Truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	case int:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	case []byte:
		return len(v) > 0
	default:
		return true
	}
}
