package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hgl-pong/baklavajs-sub000/internal/logging"
	"github.com/hgl-pong/baklavajs-sub000/pkg/domain"
	"github.com/hgl-pong/baklavajs-sub000/pkg/session"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrInvalidTransition is returned when a lifecycle operation is not
	// allowed from the current status. The status is left unchanged.
	ErrInvalidTransition = errors.New("invalid engine status transition")

	// ErrPropagationLimit is returned when forward propagation exceeds its step
	// budget, which happens on cyclic graphs.
	ErrPropagationLimit = errors.New("propagation step limit exceeded")
)

// Status is the lifecycle state of an engine.
type Status = domain.EngineStatus

const (
	StatusIdle    = domain.StatusIdle
	StatusRunning = domain.StatusRunning
	StatusPaused  = domain.StatusPaused
	StatusStopped = domain.StatusStopped
)

// Engine is the call surface shared by every execution strategy.
type Engine interface {
	// Type returns the registry type tag of the strategy.
	Type() string
	Graph() *domain.Graph
	Status() Status

	Start() error
	Stop() error
	Pause() error
	Resume() error

	// RunGraph calculates the graph. Overrides are keyed by interface ID and
	// replace the stored value of unconnected inputs for this run only.
	RunGraph(ctx context.Context, overrides map[string]any, calculationData any) (domain.CalculationResult, error)

	// AddTransform appends a hook to the transform pipeline and returns a
	// function removing it.
	AddTransform(fn TransformFunc) (remove func())
}

// RunLocker serialises runs per graph. session.Manager satisfies it.
type RunLocker interface {
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

const (
	tracerName      = "github.com/hgl-pong/baklavajs-sub000/pkg/engine"
	defaultMaxSteps = 10000
)

type options struct {
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	tracer   trace.Tracer
	locker   RunLocker
	calcData any
	maxSteps int
}

// Option configures an engine.
type Option func(*options)

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *options) {
		o.hooks = hooks
	}
}

// WithTracer sets the OpenTelemetry tracer used for run and calculation spans.
// Defaults to the global tracer provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithLockManager shares a run lock between engines. Engines operating on the
// same graph should share one so their runs never overlap.
func WithLockManager(locker RunLocker) Option {
	return func(o *options) {
		o.locker = locker
	}
}

// WithCalculationData sets the global values passed to triggered runs.
func WithCalculationData(data any) Option {
	return func(o *options) {
		o.calcData = data
	}
}

// WithMaxSteps bounds the number of queue steps of one forward propagation.
// Values <= 0 keep the default of 10000.
func WithMaxSteps(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxSteps = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{maxSteps: defaultMaxSteps}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}
	if o.locker == nil {
		o.locker = session.NewManager(nil)
	}
	return o
}
