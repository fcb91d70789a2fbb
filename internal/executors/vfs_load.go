package executors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/flowrun/flowrun/internal/data"
	"github.com/flowrun/flowrun/internal/engine"
	"github.com/flowrun/flowrun/internal/vfs"
)

// VFSLoadExecutor reads a file from the virtual file system in one of
// the declared formats. Binary loads go through the download endpoint;
// everything else reads the content envelope.
type VFSLoadExecutor struct {
	vfs *vfs.Adapter
	log *slog.Logger
}

func (e *VFSLoadExecutor) NodeTypes() []string {
	return []string{"vfs_load"}
}

func (e *VFSLoadExecutor) Execute(ctx context.Context, node *engine.Node, input any, results map[string]map[string]any, parentID string) (map[string]any, error) {
	filePath := node.ConfigString("file_path", "")
	format := node.ConfigString("format", "text")
	filePath = data.ReplaceTemplatePlaceholders(filePath)

	e.log.Debug("vfs_load", "path", filePath, "format", format)

	switch format {
	case "json":
		content, err := e.vfs.Read(ctx, filePath)
		if err != nil {
			return nil, err
		}
		var parsed any
		if err := json.Unmarshal([]byte(content), &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse JSON content: %v", err)
		}
		return map[string]any{
			"data":      parsed,
			"file_path": filePath,
			"json_data": parsed,
		}, nil

	case "text", "blob":
		content, err := e.vfs.Read(ctx, filePath)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"data":      content,
			"file_path": filePath,
			"json_data": nil,
		}, nil

	case "binary":
		raw, err := e.vfs.Download(ctx, filePath)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"data":      raw,
			"file_path": filePath,
			"json_data": nil,
		}, nil

	default:
		return nil, fmt.Errorf("unknown format: %s. Supported formats are: json, text, blob, binary", format)
	}
}
