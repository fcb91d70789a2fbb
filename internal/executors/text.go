package executors

import (
	"context"

	"github.com/flowrun/flowrun/internal/data"
	"github.com/flowrun/flowrun/internal/engine"
)

// TextExecutor emits its configured text content with template
// placeholders substituted.
type TextExecutor struct{}

func (e *TextExecutor) NodeTypes() []string {
	return []string{"text"}
}

func (e *TextExecutor) Execute(ctx context.Context, node *engine.Node, input any, results map[string]map[string]any, parentID string) (map[string]any, error) {
	text := node.ConfigString("text_content", "")
	text = data.ReplaceTemplatePlaceholders(text)
	text = data.ReplaceInputPlaceholders(text, input)
	return map[string]any{"text": text}, nil
}
