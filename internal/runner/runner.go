// Package runner wires the engine to its remote collaborators and
// drives one workflow invocation end to end: load from VFS, execute,
// record history, summarize.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/flowrun/flowrun/internal/client"
	"github.com/flowrun/flowrun/internal/engine"
	"github.com/flowrun/flowrun/internal/executors"
	"github.com/flowrun/flowrun/internal/proxy"
	"github.com/flowrun/flowrun/internal/storage"
	"github.com/flowrun/flowrun/internal/vfs"
)

// Config parameterizes a Runner.
type Config struct {
	ServerURL string
	Token     string
	// HistoryPath is the SQLite run-history database; empty disables
	// history recording.
	HistoryPath string
	MaxWorkers  int
	Log         *slog.Logger
}

// Runner owns the HTTP session and the engine for a sequence of runs.
type Runner struct {
	cfg     Config
	vfs     *vfs.Adapter
	manager *engine.Manager
	pool    *engine.WorkerPool
	store   storage.Store
	log     *slog.Logger
}

// Summary describes one completed invocation.
type Summary struct {
	RunID    string
	Results  []engine.RunResult
	Errors   int
	Duration time.Duration
}

// New builds a Runner and its collaborator stack.
func New(cfg Config) (*Runner, error) {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	c := client.New(cfg.ServerURL, cfg.Token)
	vfsAdapter := vfs.New(c)
	proxyAdapter := proxy.New(c)

	defs := engine.NewDefinitionCache(vfsAdapter, log)
	registry := engine.NewRegistry(log)
	executors.RegisterAll(registry, executors.Deps{
		VFS:    vfsAdapter,
		Proxy:  proxyAdapter,
		Client: c,
		Defs:   defs,
		Log:    log,
	})

	pool := engine.NewWorkerPool(cfg.MaxWorkers, log)
	manager := engine.NewManager(registry, defs, pool, log)

	var store storage.Store
	if cfg.HistoryPath != "" {
		var err error
		store, err = storage.NewSQLiteStore(cfg.HistoryPath)
		if err != nil {
			return nil, fmt.Errorf("opening run history: %w", err)
		}
	}

	return &Runner{
		cfg:     cfg,
		vfs:     vfsAdapter,
		manager: manager,
		pool:    pool,
		store:   store,
		log:     log,
	}, nil
}

// Pool exposes the worker pool so callers can share its gate with the
// cron scheduler.
func (r *Runner) Pool() *engine.WorkerPool {
	return r.pool
}

// Run loads the workflow at workflowPath from the VFS and executes it.
// Node-level errors are captured into the summary; a returned error
// means the workflow could not be loaded or was cancelled.
func (r *Runner) Run(ctx context.Context, workflowPath string) (*Summary, error) {
	started := time.Now()

	raw, err := r.vfs.Read(ctx, workflowPath)
	if err != nil {
		return nil, fmt.Errorf("loading workflow: %w", err)
	}
	wf, err := engine.ParseWorkflow([]byte(raw))
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	r.log.Info("workflow run starting", "run", runID, "path", workflowPath, "nodes", len(wf.Nodes))

	r.recordStart(ctx, runID, workflowPath)

	results, execErr := r.manager.Execute(ctx, wf)

	summary := &Summary{
		RunID:    runID,
		Results:  results,
		Duration: time.Since(started),
	}
	for _, res := range results {
		if _, ok := res.Result[engine.KeyError]; ok {
			summary.Errors++
		}
	}

	r.recordFinish(ctx, runID, results, execErr)

	if execErr != nil {
		return summary, execErr
	}
	r.log.Info("workflow run finished", "run", runID,
		"results", len(results), "errors", summary.Errors, "duration", summary.Duration)
	return summary, nil
}

// Close releases the run-history store.
func (r *Runner) Close() error {
	if r.store != nil {
		return r.store.Close()
	}
	return nil
}

func (r *Runner) recordStart(ctx context.Context, runID, workflowPath string) {
	if r.store == nil {
		return
	}
	err := r.store.CreateRun(ctx, &storage.Run{
		ID:           runID,
		WorkflowPath: workflowPath,
		ServerURL:    r.cfg.ServerURL,
		Status:       storage.RunStatusRunning,
		StartedAt:    time.Now(),
	})
	if err != nil {
		r.log.Warn("could not record run start", "run", runID, "err", err)
	}
}

func (r *Runner) recordFinish(ctx context.Context, runID string, results []engine.RunResult, execErr error) {
	if r.store == nil {
		return
	}

	for i, res := range results {
		encoded, err := json.Marshal(res.Result)
		if err != nil {
			encoded = []byte(`{"error":"unencodable result"}`)
		}
		addErr := r.store.AddNodeResult(ctx, &storage.NodeResult{
			RunID:  runID,
			NodeID: res.NodeID,
			Result: encoded,
			Seq:    i,
		})
		if addErr != nil {
			r.log.Warn("could not record node result", "run", runID, "node", res.NodeID, "err", addErr)
			break
		}
	}

	status := storage.RunStatusCompleted
	if execErr != nil {
		status = storage.RunStatusFailed
		if errors.Is(execErr, context.Canceled) || errors.Is(execErr, context.DeadlineExceeded) {
			status = storage.RunStatusCancelled
		}
	}
	if err := r.store.FinishRun(ctx, runID, status, len(results), execErr); err != nil {
		r.log.Warn("could not record run finish", "run", runID, "err", err)
	}
}
