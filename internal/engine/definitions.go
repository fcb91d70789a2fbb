package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/flowrun/flowrun/internal/vfs"
)

// DefinitionSource is the subset of the VFS adapter the cache needs.
type DefinitionSource interface {
	Read(ctx context.Context, path string) (string, error)
}

// DefinitionCache lazily loads node definitions from the VFS at
// /nodes/<type>.node and keeps them for the rest of the run. Missing or
// malformed definitions degrade to a permissive default so an unknown
// node type is never fatal.
type DefinitionCache struct {
	source DefinitionSource
	log    *slog.Logger

	mu   sync.RWMutex
	defs map[string]*NodeDefinition
}

var _ DefinitionSource = (*vfs.Adapter)(nil)

// NewDefinitionCache creates an empty cache backed by source.
func NewDefinitionCache(source DefinitionSource, log *slog.Logger) *DefinitionCache {
	return &DefinitionCache{
		source: source,
		log:    log,
		defs:   make(map[string]*NodeDefinition),
	}
}

// Get returns the definition for a node type, loading it on first use.
func (c *DefinitionCache) Get(ctx context.Context, nodeType string) *NodeDefinition {
	c.mu.RLock()
	def, ok := c.defs[nodeType]
	c.mu.RUnlock()
	if ok {
		return def
	}

	def = c.load(ctx, nodeType)

	c.mu.Lock()
	if cached, ok := c.defs[nodeType]; ok {
		def = cached
	} else {
		c.defs[nodeType] = def
	}
	c.mu.Unlock()

	return def
}

func (c *DefinitionCache) load(ctx context.Context, nodeType string) *NodeDefinition {
	fallback := &NodeDefinition{ID: nodeType, ExecutionMode: ModeBoth}

	content, err := c.source.Read(ctx, "/nodes/"+nodeType+".node")
	if err != nil {
		c.log.Debug("node definition not found, using default", "type", nodeType)
		return fallback
	}

	var def NodeDefinition
	if err := json.Unmarshal([]byte(content), &def); err != nil {
		c.log.Warn("node definition unparseable, using default", "type", nodeType, "err", err)
		return fallback
	}

	if def.ID == "" {
		def.ID = nodeType
	}
	if def.ExecutionMode == "" {
		def.ExecutionMode = ModeBoth
	}
	return &def
}
