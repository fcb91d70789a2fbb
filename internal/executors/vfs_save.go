package executors

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/flowrun/flowrun/internal/data"
	"github.com/flowrun/flowrun/internal/engine"
	"github.com/flowrun/flowrun/internal/vfs"
)

// VFSSaveExecutor writes a port value to the virtual file system.
// Overwrite and append are emulated with delete-then-create since the
// VFS has no atomic replace.
type VFSSaveExecutor struct {
	vfs *vfs.Adapter
	log *slog.Logger
}

func (e *VFSSaveExecutor) NodeTypes() []string {
	return []string{"vfs_save"}
}

func (e *VFSSaveExecutor) Execute(ctx context.Context, node *engine.Node, input any, results map[string]map[string]any, parentID string) (map[string]any, error) {
	filePath := node.ConfigString("file_path", "")
	format := node.ConfigString("format", "text")
	overwrite := node.ConfigBool("overwrite", false)
	appendMode := node.ConfigBool("append", false)

	filePath = data.ReplaceTemplatePlaceholders(filePath)
	filePath = data.ReplaceInputPlaceholders(filePath, e.templateContext(input, results, parentID))

	actual := e.extractData(input, results, parentID)

	e.log.Debug("vfs_save", "path", filePath, "format", format, "overwrite", overwrite, "append", appendMode)

	// A failed existence check is treated as "new file".
	exists, err := e.vfs.Exists(ctx, filePath)
	if err != nil {
		e.log.Debug("could not check file existence, assuming new file", "path", filePath, "err", err)
		exists = false
	}

	if exists {
		if !overwrite && !appendMode {
			return nil, fmt.Errorf("file exists and neither overwrite nor append is enabled: %s", filePath)
		}
		if overwrite && !appendMode {
			if err := e.vfs.Delete(ctx, filePath); err != nil {
				e.log.Warn("could not delete existing file", "path", filePath, "err", err)
			}
		}
	}

	parent, name := splitVFSPath(filePath)

	switch format {
	case "json":
		if err := e.saveJSON(ctx, parent, name, filePath, actual, appendMode && !overwrite && exists); err != nil {
			return nil, err
		}
	case "text":
		if err := e.saveText(ctx, parent, name, filePath, actual, appendMode && !overwrite && exists); err != nil {
			return nil, err
		}
	case "binary":
		if appendMode {
			return nil, fmt.Errorf("append is not supported for binary format")
		}
		raw, ok := actual.([]byte)
		if !ok {
			return nil, fmt.Errorf("binary format requires raw bytes, received %T. Use blob format for other data types", actual)
		}
		if err := e.vfs.UploadFile(ctx, parent, name, raw); err != nil {
			return nil, err
		}
	case "blob":
		if appendMode {
			return nil, fmt.Errorf("append is not supported for blob format")
		}
		blob, err := toDataURL(actual)
		if err != nil {
			return nil, err
		}
		if err := e.vfs.CreateFile(ctx, parent, name, blob); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown format: %s. Supported formats are: json, text, binary, blob", format)
	}

	return map[string]any{"success": true, "file_path": filePath}, nil
}

func (e *VFSSaveExecutor) saveJSON(ctx context.Context, parent, name, filePath string, actual any, appendExisting bool) error {
	content := actual

	if appendExisting {
		existing, err := e.vfs.Read(ctx, filePath)
		if err != nil {
			e.log.Warn("could not read existing file for append", "path", filePath, "err", err)
			content = []any{content}
		} else {
			var existingData any
			if strings.TrimSpace(existing) != "" {
				if err := json.Unmarshal([]byte(existing), &existingData); err != nil {
					return fmt.Errorf("existing file is not valid JSON: %v", err)
				}
			}
			switch v := existingData.(type) {
			case nil:
				content = []any{content}
			case []any:
				content = append(v, content)
			default:
				content = []any{v, content}
			}
			if err := e.vfs.Delete(ctx, filePath); err != nil {
				e.log.Warn("could not delete existing file", "path", filePath, "err", err)
			}
		}
	}

	var contentStr string
	if s, ok := content.(string); ok {
		contentStr = s
	} else {
		encoded, err := json.MarshalIndent(content, "", "  ")
		if err != nil {
			return err
		}
		contentStr = string(encoded)
	}
	return e.vfs.CreateFile(ctx, parent, name, contentStr)
}

func (e *VFSSaveExecutor) saveText(ctx context.Context, parent, name, filePath string, actual any, appendExisting bool) error {
	contentStr := data.Stringify(actual)

	if appendExisting {
		existing, err := e.vfs.Read(ctx, filePath)
		if err != nil {
			e.log.Warn("could not read existing file for append", "path", filePath, "err", err)
		} else {
			contentStr = existing + "\n" + contentStr
			if err := e.vfs.Delete(ctx, filePath); err != nil {
				e.log.Warn("could not delete existing file", "path", filePath, "err", err)
			}
		}
	}
	return e.vfs.CreateFile(ctx, parent, name, contentStr)
}

// extractData locates the payload to write: the data port first, then a
// recursive search through the input and, as a last resort, the parent
// node's result.
func (e *VFSSaveExecutor) extractData(input any, results map[string]map[string]any, parentID string) any {
	if m := inputMap(input); m != nil {
		if v, ok := m["data"]; ok && v != nil {
			return v
		}
	}

	var parent any
	if parentID != "" {
		if r, ok := results[parentID]; ok {
			parent = r
		}
	}
	return data.ExtractPayload(input, parent)
}

// templateContext merges the input bundle with the parent node's result
// so path templates can reference loop-iteration fields like
// {{current_item}}.
func (e *VFSSaveExecutor) templateContext(input any, results map[string]map[string]any, parentID string) any {
	m := inputMap(input)
	if parentID == "" {
		return input
	}
	parent, ok := results[parentID]
	if !ok {
		return input
	}

	merged := make(map[string]any, len(m)+len(parent))
	for k, v := range parent {
		merged[k] = v
	}
	for k, v := range m {
		merged[k] = v
	}
	return merged
}

func toDataURL(actual any) (string, error) {
	switch v := actual.(type) {
	case string:
		if strings.HasPrefix(v, "data:") {
			return v, nil
		}
		return "", fmt.Errorf("blob format expects a data URL or raw bytes, received a plain string")
	case []byte:
		return "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(v), nil
	default:
		return "", fmt.Errorf("blob format expects a data URL or raw bytes, received %T", actual)
	}
}

func splitVFSPath(filePath string) (parent, name string) {
	parent = path.Dir(filePath)
	if parent == "." || parent == "" {
		parent = "/"
	}
	return parent, path.Base(filePath)
}
