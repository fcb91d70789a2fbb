package executors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/flowrun/flowrun/internal/client"
	"github.com/flowrun/flowrun/internal/data"
	"github.com/flowrun/flowrun/internal/engine"
)

// LLMChatExecutor sends a chat completion request to an
// OpenAI-compatible endpoint configured on the node.
type LLMChatExecutor struct {
	client *client.Client
	log    *slog.Logger
}

func (e *LLMChatExecutor) NodeTypes() []string {
	return []string{"llm_chat"}
}

func (e *LLMChatExecutor) Execute(ctx context.Context, node *engine.Node, input any, results map[string]map[string]any, parentID string) (map[string]any, error) {
	endpoint := node.ConfigString("endpoint", "")
	model := node.ConfigString("model", "")
	temperature := node.ConfigFloat("temperature", 0.7)
	maxTokens := node.ConfigInt("max_tokens", 1024)
	systemPrompt := node.ConfigString("system_prompt", "")

	prompt := "Hello, how can you help me?"
	if m := inputMap(input); m != nil {
		if v, ok := m["prompt"]; ok && v != nil {
			prompt = data.Stringify(v)
		}
	} else if input != nil {
		prompt = data.Stringify(input)
	}

	var messages []map[string]string
	if systemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": systemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": prompt})

	payload, err := json.Marshal(map[string]any{
		"model":    model,
		"messages": messages,
		"options": map[string]any{
			"temperature": temperature,
			"num_predict": maxTokens,
		},
	})
	if err != nil {
		return nil, err
	}

	e.log.Debug("llm_chat", "node", node.ID, "model", model, "endpoint", endpoint)

	// Chat endpoints live outside the workflow server, so this call
	// goes direct instead of through the shared session client.
	httpClient := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed: %d - %s", resp.StatusCode, string(body))
	}

	var full map[string]any
	if err := json.Unmarshal(body, &full); err != nil {
		return nil, fmt.Errorf("decoding chat response: %w", err)
	}

	message := data.ExtractNested(full, "choices[0].message.content")
	if message == nil {
		return nil, fmt.Errorf("chat response contains no message content")
	}

	tokensUsed := float64(0)
	if v, ok := data.ToNumber(data.ExtractNested(full, "usage.total_tokens")); ok {
		tokensUsed = v
	}

	return map[string]any{
		"response":      data.Stringify(message),
		"tokens_used":   tokensUsed,
		"model_used":    model,
		"full_response": full,
	}, nil
}
