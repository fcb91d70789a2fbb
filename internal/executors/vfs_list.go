package executors

import (
	"context"
	"log/slog"
	"strings"

	"github.com/flowrun/flowrun/internal/data"
	"github.com/flowrun/flowrun/internal/engine"
	"github.com/flowrun/flowrun/internal/vfs"
)

// VFSDirectoryListExecutor lists a VFS directory with optional
// extension filtering and recursion. When the listing does not embed
// children, recursion re-invokes the list endpoint per subdirectory.
type VFSDirectoryListExecutor struct {
	vfs *vfs.Adapter
	log *slog.Logger
}

func (e *VFSDirectoryListExecutor) NodeTypes() []string {
	return []string{"vfs_directory_list"}
}

func (e *VFSDirectoryListExecutor) Execute(ctx context.Context, node *engine.Node, input any, results map[string]map[string]any, parentID string) (map[string]any, error) {
	dirPath := node.ConfigString("directory_path", "/")
	if m := inputMap(input); m != nil {
		if v, ok := m["directory_path"]; ok && v != nil {
			dirPath = data.Stringify(v)
		}
	}
	dirPath = data.ReplaceTemplatePlaceholders(dirPath)

	var extensions []string
	if raw := strings.TrimSpace(node.ConfigString("filter_extensions", "")); raw != "" {
		for _, ext := range strings.Split(raw, ",") {
			extensions = append(extensions, strings.ToLower(strings.TrimSpace(ext)))
		}
	}
	includeDirs := node.ConfigBool("include_directories", true)
	recursive := node.ConfigBool("recursive", false)

	e.log.Debug("vfs_directory_list", "path", dirPath, "recursive", recursive)

	items, err := e.vfs.List(ctx, dirPath)
	if err != nil {
		return nil, err
	}

	collector := &listCollector{
		exec:        e,
		extensions:  extensions,
		includeDirs: includeDirs,
		recursive:   recursive,
	}
	collector.walk(ctx, items, strings.TrimRight(dirPath, "/"))

	return map[string]any{
		"file_list":   collector.allItems,
		"file_paths":  collector.filePaths,
		"file_names":  collector.fileNames,
		"count":       len(collector.filePaths),
		"directories": collector.directories,
		"files_only":  collector.filesOnly,
	}, nil
}

type listCollector struct {
	exec        *VFSDirectoryListExecutor
	extensions  []string
	includeDirs bool
	recursive   bool

	allItems    []any
	filePaths   []any
	fileNames   []any
	directories []any
	filesOnly   []any
}

func (c *listCollector) walk(ctx context.Context, items []vfs.Entry, base string) {
	for _, item := range items {
		itemPath := base + "/" + item.Name

		if item.IsDir() {
			if c.includeDirs {
				c.allItems = append(c.allItems, map[string]any{
					"name": item.Name,
					"path": itemPath,
					"type": "directory",
				})
				c.directories = append(c.directories, itemPath)
			}

			if !c.recursive {
				continue
			}
			if len(item.Children) > 0 {
				c.walk(ctx, item.Children, itemPath)
				continue
			}
			children, err := c.exec.vfs.List(ctx, itemPath)
			if err != nil {
				c.exec.log.Warn("failed to list subdirectory", "path", itemPath, "err", err)
				continue
			}
			c.walk(ctx, children, itemPath)
			continue
		}

		if len(c.extensions) > 0 && !c.matchesExtension(item.Name) {
			continue
		}

		c.allItems = append(c.allItems, map[string]any{
			"name": item.Name,
			"path": itemPath,
			"type": "file",
		})
		c.filePaths = append(c.filePaths, itemPath)
		c.fileNames = append(c.fileNames, item.Name)
		c.filesOnly = append(c.filesOnly, itemPath)
	}
}

func (c *listCollector) matchesExtension(name string) bool {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return false
	}
	ext := strings.ToLower(name[idx+1:])
	for _, want := range c.extensions {
		if ext == strings.TrimPrefix(want, ".") {
			return true
		}
	}
	return false
}
