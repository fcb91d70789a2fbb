package engine

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/flowrun/flowrun/internal/data"
)

// Manager orchestrates one workflow invocation: it classifies nodes,
// schedules ready-sets, assembles per-port inputs, expands for-each
// loops and drives repeater cycles.
type Manager struct {
	registry *Registry
	defs     *DefinitionCache
	pool     *WorkerPool
	log      *slog.Logger
}

// NewManager wires a manager from its collaborators.
func NewManager(registry *Registry, defs *DefinitionCache, pool *WorkerPool, log *slog.Logger) *Manager {
	return &Manager{
		registry: registry,
		defs:     defs,
		pool:     pool,
		log:      log,
	}
}

// execState is the mutable state of one invocation. The results map
// satisfies downstream dependencies; the run log records every
// published result in completion order, including one entry per
// for-each iteration.
type execState struct {
	mu       sync.Mutex
	results  map[string]map[string]any
	executed map[string]bool
	runLog   []RunResult
	stopped  bool
}

func newExecState() *execState {
	return &execState{
		results:  make(map[string]map[string]any),
		executed: make(map[string]bool),
	}
}

func (st *execState) publish(nodeID string, result map[string]any) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.results[nodeID] = result
	st.runLog = append(st.runLog, RunResult{NodeID: nodeID, Result: result})
}

func (st *execState) snapshot() map[string]map[string]any {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make(map[string]map[string]any, len(st.results))
	for k, v := range st.results {
		out[k] = v
	}
	return out
}

func (st *execState) markExecuted(nodeID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.executed[nodeID] = true
}

func (st *execState) isExecuted(nodeID string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.executed[nodeID]
}

func (st *execState) resetIteration(scoped map[string]bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for id := range scoped {
		delete(st.results, id)
		delete(st.executed, id)
	}
}

func (st *execState) clearAllExecuted() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.executed = make(map[string]bool)
}

func (st *execState) result(nodeID string) map[string]any {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.results[nodeID]
}

func (st *execState) setStopped() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.stopped = true
}

func (st *execState) isStopped() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.stopped
}

// Execute runs the workflow to completion and returns the run log.
// Per-node errors are captured into results and do not make the run
// fail; a non-nil error means a bootstrap failure or cancellation, with
// partial results alongside.
func (m *Manager) Execute(ctx context.Context, wf *Workflow) ([]RunResult, error) {
	g, err := buildGraph(ctx, wf, m.defs)
	if err != nil {
		return nil, err
	}

	st := newExecState()

	if rep := firstRepeater(wf); rep != nil {
		err = m.runRepeater(ctx, g, st, rep)
	} else {
		err = m.runScheduler(ctx, g, st, setOf(g.executableNodes()), "", true)
	}

	st.mu.Lock()
	runLog := st.runLog
	st.mu.Unlock()
	return runLog, err
}

func firstRepeater(wf *Workflow) *Node {
	for i := range wf.Nodes {
		if wf.Nodes[i].Type == "repeater" {
			return &wf.Nodes[i]
		}
	}
	return nil
}

func setOf(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

// runScheduler drives ready-set execution over nodeSet until every node
// ran, a stop signal arrived or no node can make progress. With
// parallel=false, ready nodes run one at a time in workflow order
// (repeater cycles use this mode).
func (m *Manager) runScheduler(ctx context.Context, g *graph, st *execState, nodeSet map[string]bool, parentID string, parallel bool) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if st.isStopped() {
			return nil
		}

		ready := m.readyNodes(g, st, nodeSet)
		if len(ready) == 0 {
			if remaining := m.remainingNodes(g, st, nodeSet); len(remaining) > 0 {
				m.log.Warn("unreachable nodes, stopping scheduler", "nodes", strings.Join(remaining, ", "))
			}
			return nil
		}

		outcomes := make([]map[string]any, len(ready))
		if parallel && len(ready) > 1 {
			var wg sync.WaitGroup
			for i, id := range ready {
				wg.Add(1)
				go func(i int, id string) {
					defer wg.Done()
					_ = m.pool.ExecuteSync(ctx, func() error {
						outcomes[i] = m.executeNode(ctx, g, st, id, parentID)
						return nil
					})
				}(i, id)
			}
			wg.Wait()
		} else {
			for i, id := range ready {
				if st.isStopped() || ctx.Err() != nil {
					break
				}
				outcomes[i] = m.executeNode(ctx, g, st, id, parentID)
			}
		}

		for i, id := range ready {
			st.markExecuted(id)
			result := outcomes[i]
			if result == nil {
				m.log.Debug("- " + id + " skipped")
				continue
			}

			if data.Truthy(result[KeyForEachControl]) {
				if err := m.runForEach(ctx, g, st, nodeSet, id, result, parallel); err != nil {
					return err
				}
				continue
			}

			st.publish(id, result)
			if errMsg, ok := result[KeyError]; ok {
				m.log.Warn("✗ "+id, "error", data.Stringify(errMsg))
			} else {
				m.log.Info("✓ " + id)
			}

			if data.Truthy(result[KeyStopExecution]) {
				m.log.Info("workflow stop requested", "node", id)
				st.setStopped()
			}
		}
	}
}

// readyNodes returns the unexecuted nodes of nodeSet whose every
// required input port has at least one completed source, in workflow
// order.
func (m *Manager) readyNodes(g *graph, st *execState, nodeSet map[string]bool) []string {
	var ready []string
	for _, id := range g.executableNodes() {
		if !nodeSet[id] || st.isExecuted(id) {
			continue
		}

		ok := true
		for _, port := range g.requiredPorts(id) {
			satisfied := false
			for _, edge := range g.incoming(id) {
				if edge.To.PortName == port && st.isExecuted(edge.From.NodeID) {
					satisfied = true
					break
				}
			}
			if !satisfied {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, id)
		}
	}
	return ready
}

func (m *Manager) remainingNodes(g *graph, st *execState, nodeSet map[string]bool) []string {
	var out []string
	for _, id := range g.executableNodes() {
		if nodeSet[id] && !st.isExecuted(id) {
			out = append(out, id)
		}
	}
	return out
}

// executeNode assembles the input bundle for one node and dispatches it
// through the registry. Always returns either a result map or nil.
func (m *Manager) executeNode(ctx context.Context, g *graph, st *execState, nodeID, parentID string) map[string]any {
	node := g.wf.NodeByID(nodeID)
	snapshot := st.snapshot()

	input := make(map[string]any)
	for _, edge := range g.incoming(nodeID) {
		src, ok := snapshot[edge.From.NodeID]
		if !ok {
			continue
		}
		if value, ok := data.LookupPort(src, edge.From.PortName); ok {
			input[edge.To.PortName] = value
		} else {
			// No matching field at all: hand over the whole result.
			input[edge.To.PortName] = src
		}
	}

	var missing []string
	for _, port := range g.requiredPorts(nodeID) {
		if _, ok := input[port]; !ok {
			missing = append(missing, port)
		}
	}
	if len(missing) > 0 {
		return map[string]any{KeyError: "missing required inputs on ports: " + strings.Join(missing, ", ")}
	}

	def := m.defs.Get(ctx, node.Type)
	mapped := data.MapInputPorts(input, def.InputPortIDs())

	m.log.Debug("→ "+nodeID, "type", node.Type)
	return m.registry.Execute(ctx, node, mapped, snapshot, parentID)
}

// runForEach expands a loop-control result: it carves the driver's
// transitive downstream out of the outer queue and re-runs it once per
// array item, each iteration seeded with a snapshot of the outer
// results plus the driver's per-iteration record.
func (m *Manager) runForEach(ctx context.Context, g *graph, st *execState, nodeSet map[string]bool, nodeID string, control map[string]any, parallel bool) error {
	arrayData, _ := control["array_data"].([]any)
	stopOnError := data.Truthy(control["stop_on_error"])
	delaySec, _ := data.ToNumber(control["iteration_delay"])

	scoped := make(map[string]bool)
	for id := range g.downstream(nodeID) {
		if nodeSet[id] && !g.excluded[id] {
			scoped[id] = true
		}
	}

	outer := st.snapshot()
	m.log.Info("for_each loop", "node", nodeID, "items", len(arrayData), "downstream", len(scoped))

	for i, item := range arrayData {
		if err := ctx.Err(); err != nil {
			return err
		}
		if st.isStopped() {
			break
		}

		// Reset downstream to the outer snapshot for this iteration.
		st.resetIteration(scoped)
		for id, res := range outer {
			if scoped[id] {
				st.mu.Lock()
				st.results[id] = res
				st.mu.Unlock()
			}
		}

		st.publish(nodeID, map[string]any{
			"current_item":  item,
			"current_index": i,
			"completed":     false,
		})

		if err := m.runScheduler(ctx, g, st, scoped, nodeID, parallel); err != nil {
			return err
		}

		iterationFailed := false
		tag := map[string]any{"index": i, "item": item, "for_each_node": nodeID}
		for id := range scoped {
			if res := st.result(id); res != nil {
				res[KeyIteration] = tag
				if _, ok := res[KeyError]; ok {
					iterationFailed = true
				}
			}
		}

		if iterationFailed && stopOnError {
			m.log.Warn("for_each aborted on iteration error", "node", nodeID, "index", i)
			break
		}
		if st.isStopped() {
			break
		}

		if delaySec > 0 && i < len(arrayData)-1 {
			select {
			case <-time.After(time.Duration(delaySec * float64(time.Second))):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	// The outer scheduler must not run the loop body again.
	for id := range scoped {
		st.markExecuted(id)
	}

	st.publish(nodeID, map[string]any{
		"current_item":  nil,
		"current_index": len(arrayData),
		"completed":     true,
	})
	return nil
}

// runRepeater drives full workflow cycles. interval is milliseconds
// between cycles; count 0 repeats until cancellation or a stop signal.
func (m *Manager) runRepeater(ctx context.Context, g *graph, st *execState, rep *Node) error {
	interval := time.Duration(rep.ConfigFloat("interval", 1000)) * time.Millisecond
	count := rep.ConfigInt("count", 0)
	nodeSet := setOf(g.executableNodes())

	m.log.Info("repeater loop", "node", rep.ID, "interval", interval, "count", count)

	for cycle := 0; count == 0 || cycle < count; cycle++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		st.clearAllExecuted()
		if err := m.runScheduler(ctx, g, st, nodeSet, "", false); err != nil {
			return err
		}
		if st.isStopped() {
			break
		}
		if count > 0 && cycle == count-1 {
			break
		}

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
