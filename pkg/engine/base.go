package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hgl-pong/baklavajs-sub000/pkg/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// strategy is implemented by the concrete engines to react to graph changes.
type strategy interface {
	// recalculate runs after deferred changes are released by Resume. changed
	// lists the inputs that changed while paused, in order of first change.
	recalculate(ctx context.Context, changed []*domain.Interface)
	// inputChanged runs when an unconnected input receives a new value.
	inputChanged(ctx context.Context, iface *domain.Interface, value any)
}

// Base holds the lifecycle, change subscription, transform pipeline and output
// validation shared by the Dependency and Forward engines.
type Base struct {
	kind  string
	graph *domain.Graph
	self  Engine
	strat strategy

	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	tracer   trace.Tracer
	locker   RunLocker
	calcData any
	maxSteps int

	mu          sync.Mutex
	status      Status
	unsubscribe func()
	deferred    []*domain.Interface
	triggers    *triggerQueue
	stopLoop    context.CancelFunc

	stale atomic.Bool

	tfMu       sync.RWMutex
	transforms []transformEntry
	nextTf     int
}

func newBase(kind string, g *domain.Graph, self Engine, strat strategy, opts []Option) *Base {
	o := buildOptions(opts)
	b := &Base{
		kind:     kind,
		graph:    g,
		self:     self,
		strat:    strat,
		logger:   o.logger.With("graph", g.ID(), "engine", kind),
		hooks:    o.hooks,
		tracer:   o.tracer,
		locker:   o.locker,
		calcData: o.calcData,
		maxSteps: o.maxSteps,
		status:   StatusIdle,
	}
	b.stale.Store(true)
	return b
}

func (b *Base) Type() string         { return b.kind }
func (b *Base) Graph() *domain.Graph { return b.graph }

func (b *Base) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// Start subscribes to graph events and launches the trigger loop.
func (b *Base) Start() error {
	b.mu.Lock()
	from := b.status
	if from != StatusIdle && from != StatusStopped {
		b.mu.Unlock()
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, from)
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.triggers = newTriggerQueue()
	b.stopLoop = cancel
	go b.triggers.run(ctx)

	b.unsubscribe = b.graph.Subscribe(b.handleEvent)
	b.status = StatusRunning
	b.deferred = nil
	b.mu.Unlock()

	// Changes made while unsubscribed were not observed.
	b.stale.Store(true)
	b.emitStatus(from, StatusRunning)
	return nil
}

// Stop unsubscribes from the graph. Queued triggers are discarded and an
// in-flight triggered run observes cancellation between nodes.
// Stopping a stopped engine is a no-op.
func (b *Base) Stop() error {
	b.mu.Lock()
	from := b.status
	if from == StatusStopped {
		b.mu.Unlock()
		return nil
	}
	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}
	if b.stopLoop != nil {
		b.stopLoop()
		b.stopLoop = nil
	}
	b.triggers = nil
	b.deferred = nil
	b.status = StatusStopped
	b.mu.Unlock()

	b.emitStatus(from, StatusStopped)
	return nil
}

// Pause keeps the subscription but defers recalculation.
func (b *Base) Pause() error {
	b.mu.Lock()
	from := b.status
	if from != StatusRunning {
		b.mu.Unlock()
		return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, from)
	}
	b.status = StatusPaused
	b.mu.Unlock()

	b.emitStatus(from, StatusPaused)
	return nil
}

// Resume returns to Running and schedules one recalculation when changes
// arrived while paused.
func (b *Base) Resume() error {
	b.mu.Lock()
	from := b.status
	if from != StatusPaused {
		b.mu.Unlock()
		return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, from)
	}
	b.status = StatusRunning
	if changed := b.deferred; len(changed) > 0 {
		b.deferred = nil
		b.triggers.push(func(ctx context.Context) {
			b.strat.recalculate(ctx, changed)
		})
	}
	b.mu.Unlock()

	b.emitStatus(from, StatusRunning)
	return nil
}

func (b *Base) handleEvent(e domain.GraphEvent) {
	if e.IsStructural() {
		b.stale.Store(true)
		return
	}
	// Output write-backs and driven inputs do not trigger runs.
	if e.Interface == nil || !e.Interface.IsInput() || e.Interface.IsConnected() {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.status {
	case StatusRunning:
		iface, value := e.Interface, e.Value
		b.triggers.push(func(ctx context.Context) {
			b.strat.inputChanged(ctx, iface, value)
		})
	case StatusPaused:
		if !slices.Contains(b.deferred, e.Interface) {
			b.deferred = append(b.deferred, e.Interface)
		}
	}
}

func (b *Base) emitStatus(from, to Status) {
	b.logger.Debug("Engine status changed", "from", from, "to", to)
	if b.hooks.OnStatusChange != nil {
		b.hooks.OnStatusChange(context.Background(), &domain.StatusEvent{
			Timestamp: time.Now(),
			GraphID:   b.graph.ID(),
			Engine:    b.kind,
			From:      from,
			To:        to,
		})
	}
}

// run executes fn under the per-graph run lock inside an "engine.run" span.
func (b *Base) run(ctx context.Context, trigger string, fn func(context.Context) (domain.CalculationResult, error)) (domain.CalculationResult, error) {
	var (
		result domain.CalculationResult
		runErr error
	)
	err := b.locker.WithLock(ctx, b.graph.ID(), func(ctx context.Context) error {
		ctx, span := b.tracer.Start(ctx, "engine.run", trace.WithAttributes(
			attribute.String("graph.id", b.graph.ID()),
			attribute.String("engine.type", b.kind),
			attribute.String("run.trigger", trigger),
		))
		defer span.End()

		start := time.Now()
		if b.hooks.OnRunStart != nil {
			b.hooks.OnRunStart(ctx, &domain.RunEvent{
				Timestamp: start,
				GraphID:   b.graph.ID(),
				Engine:    b.kind,
				Trigger:   trigger,
			})
		}

		result, runErr = fn(ctx)

		finish := &domain.RunEvent{
			Timestamp: time.Now(),
			GraphID:   b.graph.ID(),
			Engine:    b.kind,
			Trigger:   trigger,
			Duration:  time.Since(start),
			Nodes:     len(result),
			Result:    result,
			Err:       runErr,
		}
		span.SetAttributes(attribute.Int("run.nodes", len(result)))
		if runErr != nil {
			span.RecordError(runErr)
			span.SetStatus(codes.Error, runErr.Error())
			b.logger.Warn("Run failed", "trigger", trigger, "duration", finish.Duration, "err", runErr)
		} else {
			b.logger.Debug("Run finished", "trigger", trigger, "duration", finish.Duration, "nodes", len(result))
		}
		if b.hooks.OnRunFinish != nil {
			b.hooks.OnRunFinish(ctx, finish)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("acquire run lock for graph %q: %w", b.graph.ID(), err)
	}
	return result, runErr
}

// calculate invokes the node's calculation, validates and writes back its
// outputs. The returned record holds only declared output names.
func (b *Base) calculate(ctx context.Context, n *domain.Node, inputs domain.Record, calculationData any) (domain.Record, error) {
	ctx, span := b.tracer.Start(ctx, "engine.calculate", trace.WithAttributes(
		attribute.String("node.id", n.ID()),
		attribute.String("node.type", n.Type()),
	))
	defer span.End()

	start := time.Now()
	outputs, err := n.Calculate()(ctx, inputs, domain.CalculationContext{
		GlobalValues: calculationData,
		Engine:       b.self,
	})

	event := &domain.NodeEvent{
		Timestamp: start,
		GraphID:   b.graph.ID(),
		Engine:    b.kind,
		NodeID:    n.ID(),
		NodeType:  n.Type(),
		Duration:  time.Since(start),
	}
	if err != nil {
		calcErr := &domain.CalculationError{GraphID: b.graph.ID(), NodeID: n.ID(), Err: err}
		span.RecordError(calcErr)
		span.SetStatus(codes.Error, calcErr.Error())
		event.Err = calcErr
		if b.hooks.OnNodeCalculated != nil {
			b.hooks.OnNodeCalculated(ctx, event)
		}
		return nil, calcErr
	}

	outputs = b.validate(ctx, n, outputs)
	for _, out := range n.Outputs() {
		if v, ok := outputs[out.Name()]; ok {
			out.SetValue(v)
		}
	}

	if b.hooks.OnNodeCalculated != nil {
		b.hooks.OnNodeCalculated(ctx, event)
	}
	return outputs, nil
}

// validate reports a contract violation when the returned keys differ from
// the declared outputs and keeps the declared keys that are present.
func (b *Base) validate(ctx context.Context, n *domain.Node, outputs domain.Record) domain.Record {
	declared := n.OutputNames()
	slices.Sort(declared)
	got := outputs.Keys()
	if slices.Equal(declared, got) {
		return outputs
	}

	violation := &domain.ContractViolationError{
		GraphID:  b.graph.ID(),
		NodeID:   n.ID(),
		Expected: declared,
		Got:      got,
	}
	b.logger.Warn("Calculation contract violated", "node", n.ID(), "err", violation)
	trace.SpanFromContext(ctx).AddEvent("contract_violation", trace.WithAttributes(
		attribute.StringSlice("expected", declared),
		attribute.StringSlice("got", got),
	))
	if b.hooks.OnContractViolation != nil {
		b.hooks.OnContractViolation(ctx, violation)
	}

	partial := make(domain.Record, len(declared))
	for _, name := range declared {
		if v, ok := outputs[name]; ok {
			partial[name] = v
		}
	}
	return partial
}

// inputDefault is the stored value of an input unless the caller overrides it.
func inputDefault(in *domain.Interface, overrides map[string]any) any {
	if v, ok := overrides[in.ID()]; ok {
		return v
	}
	return in.Value()
}

// upstreamValue reads the value flowing across c. A node calculated in the
// current run contributes only what it returned, so an output it dropped flows
// as nil. Stored interface values are used for nodes not calculated this run.
func upstreamValue(result domain.CalculationResult, c *domain.Connection) any {
	if rec, ok := result[c.From.Node().ID()]; ok {
		return rec[c.From.Name()]
	}
	return c.From.Value()
}
