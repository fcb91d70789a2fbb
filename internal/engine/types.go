package engine

import (
	"encoding/json"
	"fmt"

	"github.com/flowrun/flowrun/internal/data"
)

// Reserved result keys understood by the execution manager.
const (
	// KeyStopExecution in a result halts the enclosing scheduler loop.
	KeyStopExecution = "__stop_execution"
	// KeyForEachControl marks a loop-control result that triggers
	// downstream expansion.
	KeyForEachControl = "for_each_control"
	// KeyError marks a failed execution. Downstream dependents still
	// see the result.
	KeyError = "error"
	// KeyIteration tags results produced inside a for-each iteration.
	KeyIteration = "for_each_iteration"
)

// Workflow is the declarative graph loaded from the VFS: typed nodes
// joined by port-to-port connections.
type Workflow struct {
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
}

// Node is a single unit of work. Config maps parameter names to their
// authored values; authoring metadata beyond these fields is ignored.
type Node struct {
	ID     string                 `json:"id"`
	Type   string                 `json:"type"`
	Config map[string]ConfigValue `json:"config"`
}

// ConfigValue accepts both the editor's `{value: …}` envelope and a
// bare literal.
type ConfigValue struct {
	Value any
}

func (c *ConfigValue) UnmarshalJSON(b []byte) error {
	var probe map[string]any
	if err := json.Unmarshal(b, &probe); err == nil {
		if inner, ok := probe["value"]; ok {
			c.Value = inner
			return nil
		}
	}

	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	c.Value = raw
	return nil
}

func (c ConfigValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"value": c.Value})
}

// ConfigAny returns the raw configured value, or nil when absent.
func (n *Node) ConfigAny(key string) any {
	if cv, ok := n.Config[key]; ok {
		return cv.Value
	}
	return nil
}

// ConfigString returns the configured value stringified, or def when
// absent or empty.
func (n *Node) ConfigString(key, def string) string {
	value := n.ConfigAny(key)
	if value == nil {
		return def
	}
	s := data.Stringify(value)
	if s == "" {
		return def
	}
	return s
}

// ConfigFloat returns the configured value as a number, or def when
// absent or not numeric.
func (n *Node) ConfigFloat(key string, def float64) float64 {
	value := n.ConfigAny(key)
	if value == nil {
		return def
	}
	if f, ok := data.ToNumber(value); ok {
		return f
	}
	return def
}

// ConfigInt is ConfigFloat truncated to an int.
func (n *Node) ConfigInt(key string, def int) int {
	return int(n.ConfigFloat(key, float64(def)))
}

// ConfigBool returns the configured value coerced to a boolean, or def
// when absent.
func (n *Node) ConfigBool(key string, def bool) bool {
	value := n.ConfigAny(key)
	if value == nil {
		return def
	}
	if s, ok := value.(string); ok {
		switch s {
		case "true", "True", "1", "yes":
			return true
		case "false", "False", "0", "no":
			return false
		}
		return def
	}
	return data.Truthy(value)
}

// Endpoint identifies one side of a connection.
type Endpoint struct {
	NodeID   string `json:"nodeId"`
	PortName string `json:"portName"`
}

// Connection is a directed port-to-port edge. Multiple edges may
// terminate at the same input port; the last authored edge wins.
type Connection struct {
	From Endpoint `json:"from"`
	To   Endpoint `json:"to"`
}

// Execution modes for node definitions.
const (
	ModeBoth         = "both"
	ModeFrontendOnly = "frontend_only"
)

// Port declares an input or output of a node definition.
type Port struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// NodeDefinition is the per-type contract loaded lazily from the VFS.
type NodeDefinition struct {
	ID            string `json:"id"`
	ExecutionMode string `json:"execution_mode"`
	Inputs        []Port `json:"inputs"`
	Outputs       []Port `json:"outputs"`
}

// FrontendOnly reports whether the definition excludes the node from
// backend execution.
func (d *NodeDefinition) FrontendOnly() bool {
	return d.ExecutionMode == ModeFrontendOnly
}

// InputPortIDs returns the declared input port ids in order.
func (d *NodeDefinition) InputPortIDs() []string {
	ids := make([]string, 0, len(d.Inputs))
	for _, p := range d.Inputs {
		ids = append(ids, p.ID)
	}
	return ids
}

// ParseWorkflow decodes workflow JSON and validates the connection
// endpoints against the node list.
func ParseWorkflow(raw []byte) (*Workflow, error) {
	var wf Workflow
	if err := json.Unmarshal(raw, &wf); err != nil {
		return nil, fmt.Errorf("parsing workflow: %w", err)
	}
	if len(wf.Nodes) == 0 {
		return nil, fmt.Errorf("workflow has no nodes")
	}

	ids := make(map[string]bool, len(wf.Nodes))
	for _, n := range wf.Nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("workflow node with empty id")
		}
		if ids[n.ID] {
			return nil, fmt.Errorf("duplicate node id: %s", n.ID)
		}
		ids[n.ID] = true
	}

	for _, c := range wf.Connections {
		if !ids[c.From.NodeID] {
			return nil, fmt.Errorf("connection references unknown source node: %s", c.From.NodeID)
		}
		if !ids[c.To.NodeID] {
			return nil, fmt.Errorf("connection references unknown target node: %s", c.To.NodeID)
		}
	}

	return &wf, nil
}

// NodeByID returns the node with the given id, or nil.
func (w *Workflow) NodeByID(id string) *Node {
	for i := range w.Nodes {
		if w.Nodes[i].ID == id {
			return &w.Nodes[i]
		}
	}
	return nil
}

// RunResult is one entry of the run log: a node id paired with the
// result it produced. For-each bodies contribute one entry per
// iteration.
type RunResult struct {
	NodeID string         `json:"node_id"`
	Result map[string]any `json:"result"`
}
