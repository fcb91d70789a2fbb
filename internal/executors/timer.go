package executors

import (
	"context"
	"log/slog"
	"time"

	"github.com/flowrun/flowrun/internal/engine"
)

// TimerExecutor sleeps for its configured interval and then fires its
// trigger port. The sleep is cancellable.
type TimerExecutor struct {
	log *slog.Logger
}

func (e *TimerExecutor) NodeTypes() []string {
	return []string{"timer"}
}

func (e *TimerExecutor) Execute(ctx context.Context, node *engine.Node, input any, results map[string]map[string]any, parentID string) (map[string]any, error) {
	interval := time.Duration(node.ConfigFloat("interval", 1000)) * time.Millisecond

	e.log.Debug("timer", "node", node.ID, "interval", interval)
	select {
	case <-time.After(interval):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return map[string]any{"trigger": float64(time.Now().Unix())}, nil
}

// DelayExecutor waits for the configured time and then passes its input
// through unchanged.
type DelayExecutor struct {
	log *slog.Logger
}

func (e *DelayExecutor) NodeTypes() []string {
	return []string{"delay"}
}

func (e *DelayExecutor) Execute(ctx context.Context, node *engine.Node, input any, results map[string]map[string]any, parentID string) (map[string]any, error) {
	delayMs := node.ConfigFloat("delay_ms", 1000)

	var passThrough any
	if m := inputMap(input); m != nil {
		if v, ok := m["data"]; ok && v != nil {
			passThrough = v
		} else if v, ok := firstValueOf(m); ok {
			passThrough = v
		}
	} else {
		passThrough = input
	}

	e.log.Debug("delay", "node", node.ID, "delay_ms", delayMs)
	select {
	case <-time.After(time.Duration(delayMs) * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return map[string]any{
		"data":           passThrough,
		"original_data":  passThrough,
		"processed_data": passThrough,
		"delay_ms":       delayMs,
		"timestamp":      time.Now().UnixMilli(),
	}, nil
}

func firstValueOf(m map[string]any) (any, bool) {
	for _, v := range m {
		if v != nil {
			return v, true
		}
	}
	return nil, false
}
