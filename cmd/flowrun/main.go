package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flowrun/flowrun/internal/engine"
	"github.com/flowrun/flowrun/internal/logger"
	"github.com/flowrun/flowrun/internal/runner"
	"github.com/flowrun/flowrun/internal/storage"
)

const defaultServerURL = "http://127.0.0.1:5000"

func main() {
	log := logger.FromEnv()

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "run":
		if len(args) < 2 {
			fmt.Println("Usage: flowrun run <workflow_path> [server_url]")
			os.Exit(1)
		}
		os.Exit(runOnce(log, args[1], serverURL(args[2:])))
	case "schedule":
		if len(args) < 3 {
			fmt.Println("Usage: flowrun schedule <workflow_path> <cron_spec> [server_url]")
			os.Exit(1)
		}
		os.Exit(runScheduled(log, args[1], args[2], serverURL(args[3:])))
	case "history":
		os.Exit(showHistory(args[1:]))
	case "help", "-h", "--help":
		printUsage()
	default:
		// Bare invocation: treat the first argument as a workflow path.
		os.Exit(runOnce(log, args[0], serverURL(args[1:])))
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  flowrun run <workflow_path> [server_url]              Run a workflow once")
	fmt.Println("  flowrun schedule <workflow_path> <spec> [server_url]  Run on a cron spec (e.g. '@every 5m')")
	fmt.Println("  flowrun history [run_id]                              Show recorded runs")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  FLOWRUN_TOKEN      Session token sent as X-Session-Token")
	fmt.Println("  FLOWRUN_HISTORY    SQLite database path for run history")
	fmt.Println("  FLOWRUN_LOG_LEVEL  debug | info | warn | error")
	fmt.Println("  FLOWRUN_LOG_FORMAT console | json")
}

func serverURL(rest []string) string {
	if len(rest) > 0 && rest[0] != "" {
		return rest[0]
	}
	return defaultServerURL
}

func newRunner(log *slog.Logger, server string) (*runner.Runner, error) {
	return runner.New(runner.Config{
		ServerURL:   server,
		Token:       os.Getenv("FLOWRUN_TOKEN"),
		HistoryPath: os.Getenv("FLOWRUN_HISTORY"),
		Log:         log,
	})
}

func runOnce(log *slog.Logger, workflowPath, server string) int {
	r, err := newRunner(log, server)
	if err != nil {
		log.Error("startup failed", "err", err)
		return 1
	}
	defer r.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := r.Run(ctx, workflowPath)
	if err != nil {
		log.Error("workflow run failed", "err", err)
		return 1
	}

	printSummary(workflowPath, summary)
	return 0
}

func runScheduled(log *slog.Logger, workflowPath, spec, server string) int {
	r, err := newRunner(log, server)
	if err != nil {
		log.Error("startup failed", "err", err)
		return 1
	}
	defer r.Close()

	sched := engine.NewScheduler(r.Pool(), log)
	err = sched.Schedule(spec, workflowPath, func(ctx context.Context) error {
		summary, runErr := r.Run(ctx, workflowPath)
		if runErr != nil {
			return runErr
		}
		printSummary(workflowPath, summary)
		return nil
	})
	if err != nil {
		log.Error("invalid schedule spec", "spec", spec, "err", err)
		return 1
	}

	sched.Start()
	fmt.Printf("Scheduled %s on %q. Press Ctrl+C to stop.\n", workflowPath, spec)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	sched.Stop()
	return 0
}

func printSummary(workflowPath string, summary *runner.Summary) {
	fmt.Printf("\nWorkflow: %s (run %s)\n", workflowPath, summary.RunID)
	for _, res := range summary.Results {
		if errVal, ok := res.Result[engine.KeyError]; ok {
			fmt.Printf("  ✗ %s: %v\n", res.NodeID, errVal)
		} else {
			fmt.Printf("  ✓ %s\n", res.NodeID)
		}
	}
	fmt.Printf("%d results, %d errors, %s\n",
		len(summary.Results), summary.Errors, summary.Duration.Round(time.Millisecond))
}

func showHistory(args []string) int {
	historyPath := os.Getenv("FLOWRUN_HISTORY")
	if historyPath == "" {
		fmt.Println("FLOWRUN_HISTORY is not set; no run history available")
		return 1
	}

	store, err := storage.NewSQLiteStore(historyPath)
	if err != nil {
		fmt.Printf("could not open history: %v\n", err)
		return 1
	}
	defer store.Close()

	ctx := context.Background()

	if len(args) > 0 {
		return showRun(ctx, store, args[0])
	}

	runs, err := store.ListRuns(ctx, 20)
	if err != nil {
		fmt.Printf("could not list runs: %v\n", err)
		return 1
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return 0
	}
	for _, run := range runs {
		duration := ""
		if run.FinishedAt != nil {
			duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
		}
		fmt.Printf("%s  %-10s %3d nodes  %-8s %s\n",
			run.ID, run.Status, run.NodeCount, duration, run.WorkflowPath)
	}
	return 0
}

func showRun(ctx context.Context, store storage.Store, runID string) int {
	run, err := store.GetRun(ctx, runID)
	if err != nil {
		fmt.Printf("%v\n", err)
		return 1
	}

	fmt.Printf("Run %s: %s (%s)\n", run.ID, run.WorkflowPath, run.Status)
	if run.Error != nil {
		fmt.Printf("  error: %s\n", *run.Error)
	}

	results, err := store.ListNodeResults(ctx, runID)
	if err != nil {
		fmt.Printf("could not list node results: %v\n", err)
		return 1
	}
	for _, nr := range results {
		fmt.Printf("  %3d  %-24s %s\n", nr.Seq, nr.NodeID, string(nr.Result))
	}
	return 0
}
