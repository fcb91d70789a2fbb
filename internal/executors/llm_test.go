package executors

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLLMChatExecutor(t *testing.T) {
	exec := &LLMChatExecutor{log: testLogger()}
	ctx := context.Background()

	t.Run("sends the prompt and extracts the answer", func(t *testing.T) {
		var captured map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/chat/completions" {
				http.NotFound(w, r)
				return
			}
			json.NewDecoder(r.Body).Decode(&captured)
			json.NewEncoder(w).Encode(map[string]any{
				"choices": []any{
					map[string]any{"message": map[string]any{"content": "Hi there"}},
				},
				"usage": map[string]any{"total_tokens": 42},
			})
		}))
		defer server.Close()

		result, err := exec.Execute(ctx, testNode("llm", "llm_chat", map[string]any{
			"endpoint":      server.URL,
			"model":         "test-model",
			"system_prompt": "be brief",
		}), map[string]any{"prompt": "hello"}, nil, "")
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}

		if result["response"] != "Hi there" || result["tokens_used"] != float64(42) {
			t.Fatalf("unexpected result: %v", result)
		}
		if result["model_used"] != "test-model" {
			t.Fatalf("model_used: %v", result["model_used"])
		}

		messages := captured["messages"].([]any)
		if len(messages) != 2 {
			t.Fatalf("expected system + user messages, got %v", messages)
		}
		system := messages[0].(map[string]any)
		if system["role"] != "system" || system["content"] != "be brief" {
			t.Fatalf("system message: %v", system)
		}
		user := messages[1].(map[string]any)
		if user["content"] != "hello" {
			t.Fatalf("user message: %v", user)
		}
	})

	t.Run("non-200 answer is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, err := exec.Execute(ctx, testNode("llm", "llm_chat", map[string]any{
			"endpoint": server.URL,
		}), nil, nil, "")
		if err == nil || !strings.Contains(err.Error(), "API request failed") {
			t.Fatalf("expected request failure, got %v", err)
		}
	})

	t.Run("missing message content is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
		}))
		defer server.Close()

		_, err := exec.Execute(ctx, testNode("llm", "llm_chat", map[string]any{
			"endpoint": server.URL,
		}), nil, nil, "")
		if err == nil || !strings.Contains(err.Error(), "no message content") {
			t.Fatalf("expected content error, got %v", err)
		}
	})
}
