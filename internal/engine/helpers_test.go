package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubSource serves node definitions from a map and counts reads.
type stubSource struct {
	files map[string]string
	reads int
}

func (s *stubSource) Read(ctx context.Context, path string) (string, error) {
	s.reads++
	if content, ok := s.files[path]; ok {
		return content, nil
	}
	return "", errors.New("file not found: " + path)
}

func testDefs(files map[string]string) *DefinitionCache {
	return NewDefinitionCache(&stubSource{files: files}, testLogger())
}

// stubExecutor runs fn for every node type it declares.
type stubExecutor struct {
	types []string
	fn    func(ctx context.Context, node *Node, input any, results map[string]map[string]any, parentID string) (map[string]any, error)
}

func (e *stubExecutor) NodeTypes() []string { return e.types }

func (e *stubExecutor) Execute(ctx context.Context, node *Node, input any, results map[string]map[string]any, parentID string) (map[string]any, error) {
	return e.fn(ctx, node, input, results, parentID)
}

func newTestManager(defs *DefinitionCache, execs ...Executor) *Manager {
	registry := NewRegistry(testLogger())
	for _, e := range execs {
		registry.Register(e)
	}
	return NewManager(registry, defs, NewWorkerPool(4, testLogger()), testLogger())
}

func node(id, typ string) Node {
	return Node{ID: id, Type: typ}
}

func nodeWithConfig(id, typ string, config map[string]any) Node {
	cfg := make(map[string]ConfigValue, len(config))
	for k, v := range config {
		cfg[k] = ConfigValue{Value: v}
	}
	return Node{ID: id, Type: typ, Config: cfg}
}

func conn(fromNode, fromPort, toNode, toPort string) Connection {
	return Connection{
		From: Endpoint{NodeID: fromNode, PortName: fromPort},
		To:   Endpoint{NodeID: toNode, PortName: toPort},
	}
}
