package executors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/flowrun/flowrun/internal/data"
	"github.com/flowrun/flowrun/internal/engine"
	"github.com/flowrun/flowrun/internal/proxy"
)

// HTTPExecutor fetches a URL through the server-side proxy. Binary
// responses are routed to binary-shaped ports by content type; text
// responses carry an opportunistic JSON parse alongside.
type HTTPExecutor struct {
	proxy *proxy.Adapter
	log   *slog.Logger
}

func (e *HTTPExecutor) NodeTypes() []string {
	return []string{"http"}
}

func (e *HTTPExecutor) Execute(ctx context.Context, node *engine.Node, input any, results map[string]map[string]any, parentID string) (map[string]any, error) {
	url := node.ConfigString("url", "")
	method := node.ConfigString("method", "GET")
	headersStr := node.ConfigString("headers", "")
	bodyStr := node.ConfigString("body", "")

	headers := map[string]string{}
	if strings.TrimSpace(headersStr) != "" {
		if err := json.Unmarshal([]byte(headersStr), &headers); err != nil {
			e.log.Warn("invalid headers JSON, sending none", "node", node.ID)
			headers = map[string]string{}
		}
	}

	// The body is a template: date placeholders and input fields are
	// substituted before it is parsed.
	bodyStr = data.ReplaceTemplatePlaceholders(bodyStr)
	bodyStr = data.ReplaceInputPlaceholders(bodyStr, input)

	var body any
	if strings.TrimSpace(bodyStr) != "" {
		if err := json.Unmarshal([]byte(bodyStr), &body); err != nil {
			body = bodyStr
		}
	}

	resp, err := e.proxy.Fetch(ctx, proxy.Request{
		URL:     url,
		Method:  method,
		Headers: headers,
		Body:    body,
		Timeout: 30,
	})
	if err != nil {
		return nil, err
	}

	if resp.Status < 200 || resp.Status >= 300 {
		return map[string]any{
			"response":    resp.Text,
			"status_code": resp.Status,
			"headers":     resp.Headers,
			"parsed_json": nil,
			engine.KeyError: fmt.Sprintf("HTTP %d", resp.Status),
		}, nil
	}

	if resp.IsBinary {
		out := map[string]any{
			"data":         resp.Body,
			"binary":       resp.Body,
			"binary_data":  resp.Body,
			"blob":         resp.Body,
			"content_type": resp.ContentType,
		}
		switch {
		case strings.Contains(resp.ContentType, "image"):
			out["image_data"] = resp.Body
		case strings.Contains(resp.ContentType, "audio"):
			out["audio_data"] = resp.Body
		}
		return out, nil
	}

	return map[string]any{
		"response":     resp.Text,
		"data":         resp.Text,
		"text":         resp.Text,
		"parsed_json":  resp.JSON,
		"json":         resp.JSON,
		"content_type": resp.ContentType,
	}, nil
}
