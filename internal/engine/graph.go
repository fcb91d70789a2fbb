package engine

import (
	"context"
	"fmt"
	"strings"
)

// graph holds the per-invocation view of the workflow after node
// classification: which nodes are excluded from backend execution and
// the rewired edge set that drives scheduling.
type graph struct {
	wf       *Workflow
	excluded map[string]bool
	rewired  []Connection
}

// buildGraph classifies nodes, rewires edges around excluded nodes and
// rejects cyclic executable graphs.
func buildGraph(ctx context.Context, wf *Workflow, defs *DefinitionCache) (*graph, error) {
	excluded := make(map[string]bool)
	for _, n := range wf.Nodes {
		if n.Type == "repeater" {
			excluded[n.ID] = true
			continue
		}
		if defs.Get(ctx, n.Type).FrontendOnly() {
			excluded[n.ID] = true
		}
	}

	g := &graph{
		wf:       wf,
		excluded: excluded,
		rewired:  rewireConnections(wf, excluded),
	}

	if cycle := g.findCycle(); len(cycle) > 0 {
		return nil, fmt.Errorf("workflow contains a cycle: %s", strings.Join(cycle, " -> "))
	}
	return g, nil
}

// rewireConnections drops edges terminating at excluded nodes and
// replaces edges originating at excluded nodes with edges from their
// nearest executable ancestors. Authored order is preserved so that
// multi-fan-in stays deterministic.
func rewireConnections(wf *Workflow, excluded map[string]bool) []Connection {
	var out []Connection
	for _, c := range wf.Connections {
		if excluded[c.To.NodeID] {
			continue
		}
		if !excluded[c.From.NodeID] {
			out = append(out, c)
			continue
		}
		for _, src := range executableSources(wf, c.From.NodeID, excluded, map[string]bool{}) {
			out = append(out, Connection{From: src, To: c.To})
		}
	}
	return out
}

// executableSources walks upstream from an excluded node until it finds
// executable sources. An excluded node with no executable ancestry
// contributes nothing and the edge is dropped.
func executableSources(wf *Workflow, nodeID string, excluded, visited map[string]bool) []Endpoint {
	if visited[nodeID] {
		return nil
	}
	visited[nodeID] = true

	var out []Endpoint
	for _, c := range wf.Connections {
		if c.To.NodeID != nodeID {
			continue
		}
		if !excluded[c.From.NodeID] {
			out = append(out, c.From)
			continue
		}
		out = append(out, executableSources(wf, c.From.NodeID, excluded, visited)...)
	}
	return out
}

// executableNodes returns the ids of all nodes in the executable set,
// in workflow order.
func (g *graph) executableNodes() []string {
	var out []string
	for _, n := range g.wf.Nodes {
		if !g.excluded[n.ID] {
			out = append(out, n.ID)
		}
	}
	return out
}

// incoming returns the rewired edges terminating at nodeID, in authored
// order.
func (g *graph) incoming(nodeID string) []Connection {
	var out []Connection
	for _, c := range g.rewired {
		if c.To.NodeID == nodeID {
			out = append(out, c)
		}
	}
	return out
}

// requiredPorts returns the distinct input port names of a node on the
// rewired graph, in first-seen order.
func (g *graph) requiredPorts(nodeID string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range g.rewired {
		if c.To.NodeID != nodeID || seen[c.To.PortName] {
			continue
		}
		seen[c.To.PortName] = true
		out = append(out, c.To.PortName)
	}
	return out
}

// downstream computes the transitive set of executable nodes reachable
// from nodeID on the rewired graph. nodeID itself is not included.
func (g *graph) downstream(nodeID string) map[string]bool {
	out := make(map[string]bool)
	queue := []string{nodeID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, c := range g.rewired {
			if c.From.NodeID != current || out[c.To.NodeID] || c.To.NodeID == nodeID {
				continue
			}
			out[c.To.NodeID] = true
			queue = append(queue, c.To.NodeID)
		}
	}
	return out
}

// findCycle looks for a cycle among executable nodes on the rewired
// graph and returns its path, or nil.
func (g *graph) findCycle() []string {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int)

	var path []string
	var visit func(id string) []string
	visit = func(id string) []string {
		color[id] = grey
		path = append(path, id)

		for _, c := range g.rewired {
			if c.From.NodeID != id {
				continue
			}
			next := c.To.NodeID
			switch color[next] {
			case grey:
				return append(path, next)
			case white:
				if cycle := visit(next); cycle != nil {
					return cycle
				}
			}
		}

		color[id] = black
		path = path[:len(path)-1]
		return nil
	}

	for _, id := range g.executableNodes() {
		if color[id] == white {
			if cycle := visit(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}
