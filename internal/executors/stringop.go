package executors

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/flowrun/flowrun/internal/data"
	"github.com/flowrun/flowrun/internal/engine"
)

// StringExecutor performs string transforms. Split and regex_match
// produce arrays; the boolean checks produce stringified booleans on
// the result port.
type StringExecutor struct {
	log *slog.Logger
}

func (e *StringExecutor) NodeTypes() []string {
	return []string{"string"}
}

const maxRepeatCount = 100

func (e *StringExecutor) Execute(ctx context.Context, node *engine.Node, input any, results map[string]map[string]any, parentID string) (map[string]any, error) {
	operation := node.ConfigString("operation", "concatenate")
	separator := node.ConfigString("separator", ",")
	searchText := node.ConfigString("search_text", "")
	replaceText := node.ConfigString("replace_text", "")
	startIndex := node.ConfigInt("start_index", 0)
	endIndex := node.ConfigInt("end_index", 0)
	repeatCount := node.ConfigInt("repeat_count", 1)
	caseSensitive := node.ConfigBool("case_sensitive", true)

	textA := ""
	textB := node.ConfigString("text_b", "")
	if m := inputMap(input); m != nil {
		if v, ok := firstInputField(m, "text", "data"); ok {
			textA = data.Stringify(v)
		}
		if v, ok := m["text_b"]; ok && v != nil {
			textB = data.Stringify(v)
		}
	} else if input != nil {
		textA = data.Stringify(input)
	}

	e.log.Debug("string", "node", node.ID, "operation", operation)

	var result any
	switch operation {
	case "concatenate":
		result = textA + textB
	case "split":
		parts := strings.Split(textA, separator)
		arr := make([]any, len(parts))
		for i, p := range parts {
			arr[i] = p
		}
		result = arr
	case "replace":
		if caseSensitive {
			result = strings.ReplaceAll(textA, searchText, replaceText)
		} else {
			re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(searchText))
			if err != nil {
				return nil, err
			}
			result = re.ReplaceAllLiteralString(textA, replaceText)
		}
	case "trim":
		result = strings.TrimSpace(textA)
	case "uppercase":
		result = strings.ToUpper(textA)
	case "lowercase":
		result = strings.ToLower(textA)
	case "substring":
		end := endIndex
		if end <= 0 || end > len(textA) {
			end = len(textA)
		}
		start := startIndex
		if start < 0 {
			start = 0
		}
		if start > end {
			start = end
		}
		result = textA[start:end]
	case "regex_match":
		re, err := compileUserRegexp(searchText, caseSensitive)
		if err != nil {
			return nil, err
		}
		matches := re.FindAllString(textA, -1)
		arr := make([]any, len(matches))
		for i, m := range matches {
			arr[i] = m
		}
		result = arr
	case "regex_replace":
		re, err := compileUserRegexp(searchText, caseSensitive)
		if err != nil {
			return nil, err
		}
		result = re.ReplaceAllString(textA, replaceText)
	case "starts_with":
		result = stringFold(textA, caseSensitive, func(a, b string) bool { return strings.HasPrefix(a, b) })(searchText)
	case "ends_with":
		result = stringFold(textA, caseSensitive, func(a, b string) bool { return strings.HasSuffix(a, b) })(searchText)
	case "contains":
		result = stringContains(textA, searchText, caseSensitive)
	case "repeat":
		count := repeatCount
		if count < 0 {
			count = 0
		}
		if count > maxRepeatCount {
			count = maxRepeatCount
		}
		result = strings.Repeat(textA, count)
	case "last_line":
		result = lastNonEmptyLine(textA)
	default:
		result = textA
	}

	resultStr := data.Stringify(result)
	var resultOut any = resultStr
	var arrayOut any
	if arr, ok := result.([]any); ok {
		arrayOut = arr
		resultOut = arr
	}

	return map[string]any{
		"result":     resultOut,
		"data":       result,
		"array":      arrayOut,
		"length":     len(resultStr),
		"word_count": wordCount(resultStr),
	}, nil
}

func compileUserRegexp(pattern string, caseSensitive bool) (*regexp.Regexp, error) {
	if !caseSensitive {
		pattern = "(?i)" + pattern
	}
	return regexp.Compile(pattern)
}

func lastNonEmptyLine(text string) string {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			return lines[i]
		}
	}
	return ""
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
