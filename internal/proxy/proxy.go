package proxy

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/flowrun/flowrun/internal/client"
)

// Adapter forwards outbound HTTP requests through the server-side
// proxy, which handles CORS and network policy on behalf of workflows.
type Adapter struct {
	client *client.Client
}

// Request is the payload sent to POST /api/proxy/http.
type Request struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Body    any               `json:"body"`
	Timeout int               `json:"timeout"`
}

// Response is the decoded proxy answer. Body holds the raw bytes for
// binary responses and the text bytes otherwise; JSON is the
// opportunistically parsed text content. A nil JSON just means the
// content was not JSON.
type Response struct {
	Status      int
	Headers     map[string]string
	IsBinary    bool
	Body        []byte
	Text        string
	JSON        any
	ContentType string
}

// New creates a proxy adapter on top of an authenticated client.
func New(c *client.Client) *Adapter {
	return &Adapter{client: c}
}

// Fetch performs the proxied request and decodes the response envelope.
func (a *Adapter) Fetch(ctx context.Context, req Request) (*Response, error) {
	if req.Timeout <= 0 {
		req.Timeout = 30
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("proxy: encoding request: %w", err)
	}

	resp, err := a.client.Do(ctx, http.MethodPost, "/api/proxy/http", payload, "application/json")
	if err != nil {
		return nil, fmt.Errorf("proxy: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("proxy: status %d", resp.StatusCode)
	}

	var envelope struct {
		Status   int               `json:"status"`
		Headers  map[string]string `json:"headers"`
		IsBinary bool              `json:"is_binary"`
		Content  string            `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("proxy: decoding envelope: %w", err)
	}

	out := &Response{
		Status:      envelope.Status,
		Headers:     envelope.Headers,
		IsBinary:    envelope.IsBinary,
		ContentType: contentType(envelope.Headers),
	}

	if envelope.IsBinary {
		data, err := base64.StdEncoding.DecodeString(envelope.Content)
		if err != nil {
			return nil, fmt.Errorf("proxy: decoding binary content: %w", err)
		}
		out.Body = data
		return out, nil
	}

	out.Text = envelope.Content
	out.Body = []byte(envelope.Content)

	var parsed any
	if err := json.Unmarshal([]byte(envelope.Content), &parsed); err == nil {
		out.JSON = parsed
	}
	return out, nil
}

func contentType(headers map[string]string) string {
	for key, value := range headers {
		if strings.EqualFold(key, "content-type") {
			return value
		}
	}
	return ""
}
