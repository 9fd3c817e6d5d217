package observability

import (
	"context"
	"log/slog"

	"github.com/hgl-pong/baklavajs-sub000/pkg/domain"
)

// LogHooks returns hooks that write engine activity to logger. Calculations are
// logged at debug level, failures at warn.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(ctx context.Context, e *domain.RunEvent) {
			logger.DebugContext(ctx, "Run started",
				"graph", e.GraphID,
				"engine", e.Engine,
				"trigger", e.Trigger,
			)
		},
		OnRunFinish: func(ctx context.Context, e *domain.RunEvent) {
			attrs := []any{
				"graph", e.GraphID,
				"engine", e.Engine,
				"trigger", e.Trigger,
				"nodes", e.Nodes,
				"duration", e.Duration,
			}
			if e.Err != nil {
				logger.WarnContext(ctx, "Run finished with error", append(attrs, "err", e.Err)...)
				return
			}
			logger.InfoContext(ctx, "Run finished", attrs...)
		},
		OnNodeCalculated: func(ctx context.Context, e *domain.NodeEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "Calculation failed", "graph", e.GraphID, "node", e.NodeID, "err", e.Err)
				return
			}
			logger.DebugContext(ctx, "Node calculated",
				"graph", e.GraphID,
				"node", e.NodeID,
				"type", e.NodeType,
				"duration", e.Duration,
			)
		},
		OnStatusChange: func(ctx context.Context, e *domain.StatusEvent) {
			logger.InfoContext(ctx, "Engine status changed",
				"graph", e.GraphID,
				"engine", e.Engine,
				"from", e.From,
				"to", e.To,
			)
		},
	}
}

// Chain combines hooks so that each event reaches every non-nil callback, in
// argument order.
func Chain(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	var (
		runStart  []func(context.Context, *domain.RunEvent)
		runFinish []func(context.Context, *domain.RunEvent)
		node      []func(context.Context, *domain.NodeEvent)
		violation []func(context.Context, *domain.ContractViolationError)
		status    []func(context.Context, *domain.StatusEvent)
	)
	for _, h := range hooks {
		if h.OnRunStart != nil {
			runStart = append(runStart, h.OnRunStart)
		}
		if h.OnRunFinish != nil {
			runFinish = append(runFinish, h.OnRunFinish)
		}
		if h.OnNodeCalculated != nil {
			node = append(node, h.OnNodeCalculated)
		}
		if h.OnContractViolation != nil {
			violation = append(violation, h.OnContractViolation)
		}
		if h.OnStatusChange != nil {
			status = append(status, h.OnStatusChange)
		}
	}
	return domain.LifecycleHooks{
		OnRunStart:          fanOut(runStart),
		OnRunFinish:         fanOut(runFinish),
		OnNodeCalculated:    fanOut(node),
		OnContractViolation: fanOut(violation),
		OnStatusChange:      fanOut(status),
	}
}

func fanOut[E any](fns []func(context.Context, E)) func(context.Context, E) {
	switch len(fns) {
	case 0:
		return nil
	case 1:
		return fns[0]
	}
	return func(ctx context.Context, e E) {
		for _, fn := range fns {
			fn(ctx, e)
		}
	}
}
