package engine

import (
	"context"
	"strings"
	"testing"
)

func TestRewireAroundExcludedNodes(t *testing.T) {
	defs := testDefs(map[string]string{
		"/nodes/display.node": `{"id":"display","execution_mode":"frontend_only"}`,
	})

	t.Run("repeater edges are dropped and bridged", func(t *testing.T) {
		wf := &Workflow{
			Nodes: []Node{node("gen", "text"), node("rep", "repeater"), node("sink", "vfs_save")},
			Connections: []Connection{
				conn("gen", "text", "rep", "trigger"),
				conn("rep", "trigger", "sink", "data"),
			},
		}

		g, err := buildGraph(context.Background(), wf, defs)
		if err != nil {
			t.Fatalf("buildGraph: %v", err)
		}

		if !g.excluded["rep"] {
			t.Fatal("repeater should be excluded from execution")
		}
		if len(g.rewired) != 1 {
			t.Fatalf("expected 1 rewired edge, got %d: %v", len(g.rewired), g.rewired)
		}
		edge := g.rewired[0]
		if edge.From.NodeID != "gen" || edge.To.NodeID != "sink" {
			t.Fatalf("expected gen->sink, got %s->%s", edge.From.NodeID, edge.To.NodeID)
		}
		if edge.From.PortName != "text" || edge.To.PortName != "data" {
			t.Fatalf("rewired edge should keep the ancestor source port and original target port, got %+v", edge)
		}
	})

	t.Run("frontend-only node is bridged over", func(t *testing.T) {
		wf := &Workflow{
			Nodes: []Node{node("gen", "text"), node("view", "display"), node("sink", "vfs_save")},
			Connections: []Connection{
				conn("gen", "text", "view", "data"),
				conn("view", "data", "sink", "data"),
			},
		}

		g, err := buildGraph(context.Background(), wf, defs)
		if err != nil {
			t.Fatalf("buildGraph: %v", err)
		}

		if got := g.executableNodes(); len(got) != 2 {
			t.Fatalf("expected 2 executable nodes, got %v", got)
		}
		if len(g.rewired) != 1 || g.rewired[0].From.NodeID != "gen" || g.rewired[0].To.NodeID != "sink" {
			t.Fatalf("expected bridge gen->sink, got %v", g.rewired)
		}
	})

	t.Run("excluded node without executable ancestry drops the edge", func(t *testing.T) {
		wf := &Workflow{
			Nodes: []Node{node("view", "display"), node("sink", "vfs_save")},
			Connections: []Connection{
				conn("view", "data", "sink", "data"),
			},
		}

		g, err := buildGraph(context.Background(), wf, defs)
		if err != nil {
			t.Fatalf("buildGraph: %v", err)
		}
		if len(g.rewired) != 0 {
			t.Fatalf("expected no rewired edges, got %v", g.rewired)
		}
		if ports := g.requiredPorts("sink"); len(ports) != 0 {
			t.Fatalf("sink should have no required ports, got %v", ports)
		}
	})
}

func TestRequiredPortsDistinctOrder(t *testing.T) {
	wf := &Workflow{
		Nodes: []Node{node("a", "text"), node("b", "text"), node("merge", "string_operation")},
		Connections: []Connection{
			conn("a", "text", "merge", "text"),
			conn("b", "text", "merge", "text_b"),
			conn("a", "text", "merge", "text"),
		},
	}
	g, err := buildGraph(context.Background(), wf, testDefs(nil))
	if err != nil {
		t.Fatalf("buildGraph: %v", err)
	}

	ports := g.requiredPorts("merge")
	if len(ports) != 2 || ports[0] != "text" || ports[1] != "text_b" {
		t.Fatalf("expected [text text_b], got %v", ports)
	}
}

func TestDownstreamTransitive(t *testing.T) {
	wf := &Workflow{
		Nodes: []Node{node("a", "text"), node("b", "text"), node("c", "text"), node("d", "text")},
		Connections: []Connection{
			conn("a", "text", "b", "data"),
			conn("b", "text", "c", "data"),
			conn("d", "text", "c", "other"),
		},
	}
	g, err := buildGraph(context.Background(), wf, testDefs(nil))
	if err != nil {
		t.Fatalf("buildGraph: %v", err)
	}

	down := g.downstream("a")
	if len(down) != 2 || !down["b"] || !down["c"] {
		t.Fatalf("expected downstream {b, c}, got %v", down)
	}
	if down["a"] || down["d"] {
		t.Fatalf("downstream must not include the root or siblings, got %v", down)
	}
}

func TestCycleDetection(t *testing.T) {
	wf := &Workflow{
		Nodes: []Node{node("a", "text"), node("b", "text")},
		Connections: []Connection{
			conn("a", "text", "b", "data"),
			conn("b", "text", "a", "data"),
		},
	}

	_, err := buildGraph(context.Background(), wf, testDefs(nil))
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("expected cycle in error, got %v", err)
	}
}

func TestRepeaterDriverLeavesNoEdges(t *testing.T) {
	// A repeater with no upstream feeds its trigger edge into the body;
	// with no executable ancestors the edge disappears and the body
	// schedules unconditionally.
	wf := &Workflow{
		Nodes: []Node{node("rep", "repeater"), node("rand", "random")},
		Connections: []Connection{
			conn("rep", "trigger", "rand", "trigger"),
		},
	}

	g, err := buildGraph(context.Background(), wf, testDefs(nil))
	if err != nil {
		t.Fatalf("buildGraph: %v", err)
	}
	if len(g.rewired) != 0 {
		t.Fatalf("expected no rewired edges, got %v", g.rewired)
	}
	if got := g.executableNodes(); len(got) != 1 || got[0] != "rand" {
		t.Fatalf("expected only rand executable, got %v", got)
	}
}
