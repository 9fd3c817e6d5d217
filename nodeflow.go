package nodeflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hgl-pong/baklavajs-sub000/internal/logging"
	"github.com/hgl-pong/baklavajs-sub000/pkg/adapters/memory"
	"github.com/hgl-pong/baklavajs-sub000/pkg/document"
	"github.com/hgl-pong/baklavajs-sub000/pkg/domain"
	"github.com/hgl-pong/baklavajs-sub000/pkg/engine"
	"github.com/hgl-pong/baklavajs-sub000/pkg/nodes"
	"github.com/hgl-pong/baklavajs-sub000/pkg/ports"
	"github.com/hgl-pong/baklavajs-sub000/pkg/registry"
	"github.com/hgl-pong/baklavajs-sub000/pkg/session"
	"go.opentelemetry.io/otel/trace"
)

// Version is the release of the module.
const Version = "0.1.0"

// ErrUnknownOverride is returned when an override key does not name an input
// interface of the graph.
var ErrUnknownOverride = errors.New("override does not name an input interface")

// ErrWatchUnsupported is returned by Watch when the store cannot report changes.
var ErrWatchUnsupported = errors.New("graph store does not support watching")

// Host ties together the pieces a service needs to run stored graphs: the
// engine registry, the node catalogue and a session manager that persists
// documents and serialises runs per graph.
type Host struct {
	registry  *registry.Registry
	catalogue *nodes.Catalogue
	sessions  *session.Manager
	store     ports.GraphStore
	locker    ports.DistributedLocker
	hooks     domain.LifecycleHooks
	tracer    trace.Tracer
	logger    *slog.Logger
	maxSteps  int
	lockTTL   time.Duration
}

// Option configures a Host.
type Option func(*Host)

// WithStore sets the document store (default: in memory).
func WithStore(store ports.GraphStore) Option {
	return func(h *Host) {
		h.store = store
	}
}

// WithDistributedLocker serialises runs across processes sharing a store.
func WithDistributedLocker(locker ports.DistributedLocker) Option {
	return func(h *Host) {
		h.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(h *Host) {
		h.lockTTL = ttl
	}
}

// WithRegistry replaces the built-in engine registry.
func WithRegistry(r *registry.Registry) Option {
	return func(h *Host) {
		h.registry = r
	}
}

// WithCatalogue replaces the built-in node catalogue.
func WithCatalogue(c *nodes.Catalogue) Option {
	return func(h *Host) {
		h.catalogue = c
	}
}

// WithLifecycleHooks registers observability hooks on every engine the host creates.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(h *Host) {
		h.hooks = hooks
	}
}

// WithTracer sets the tracer handed to engines.
func WithTracer(tracer trace.Tracer) Option {
	return func(h *Host) {
		h.tracer = tracer
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		h.logger = logger
	}
}

// WithMaxSteps bounds forward propagation (see engine.WithMaxSteps).
func WithMaxSteps(n int) Option {
	return func(h *Host) {
		h.maxSteps = n
	}
}

// New creates a Host.
func New(opts ...Option) (*Host, error) {
	h := &Host{}
	for _, opt := range opts {
		opt(h)
	}

	if h.logger == nil {
		h.logger = logging.NewNop()
	}
	if h.registry == nil {
		h.registry = registry.NewWithBuiltins()
	}
	if h.catalogue == nil {
		h.catalogue = nodes.Builtin()
	}
	if h.store == nil {
		h.store = memory.NewStore()
	}

	sessionOpts := []session.Option{session.WithLogger(h.logger)}
	if h.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(h.locker), session.WithLockTTL(h.lockTTL))
	}
	h.sessions = session.NewManager(h.store, sessionOpts...)

	if h.registry.DefaultType() == "" {
		return nil, fmt.Errorf("engine registry is empty: %w", registry.ErrUnregisteredEngineType)
	}
	return h, nil
}

// Registry returns the engine registry.
func (h *Host) Registry() *registry.Registry { return h.registry }

// Catalogue returns the node catalogue.
func (h *Host) Catalogue() *nodes.Catalogue { return h.catalogue }

// Sessions returns the session manager.
func (h *Host) Sessions() *session.Manager { return h.sessions }

// Engines lists the registered engine types.
func (h *Host) Engines() []registry.Info {
	return h.registry.AvailableTypes()
}

// Graphs lists the stored graph IDs.
func (h *Host) Graphs(ctx context.Context) ([]string, error) {
	return h.sessions.List(ctx)
}

// Load returns a stored document.
func (h *Host) Load(ctx context.Context, graphID string) (*document.Document, error) {
	return h.sessions.Load(ctx, graphID)
}

// Save stores a document after checking that it materialises.
func (h *Host) Save(ctx context.Context, doc *document.Document) error {
	if _, err := h.Materialize(doc); err != nil {
		return err
	}
	return h.sessions.Save(ctx, doc)
}

// Delete removes a stored document.
func (h *Host) Delete(ctx context.Context, graphID string) error {
	return h.sessions.Delete(ctx, graphID)
}

// Watch reports IDs of graphs changed in the store by other writers.
func (h *Host) Watch(ctx context.Context) (<-chan string, error) {
	w, ok := h.store.(ports.Watchable)
	if !ok {
		return nil, ErrWatchUnsupported
	}
	return w.Watch(ctx)
}

// Materialize builds a live graph using the host's catalogue.
func (h *Host) Materialize(doc *document.Document) (*domain.Graph, error) {
	return document.Materialize(doc, h.catalogue)
}

// NewEngine creates an engine for g. An empty engineType selects the
// registry default. The engine shares the host's run lock, hooks and logger.
func (h *Host) NewEngine(engineType string, g *domain.Graph, opts ...engine.Option) (engine.Engine, error) {
	base := []engine.Option{
		engine.WithLogger(h.logger),
		engine.WithLifecycleHooks(h.hooks),
		engine.WithLockManager(h.sessions),
	}
	if h.tracer != nil {
		base = append(base, engine.WithTracer(h.tracer))
	}
	if h.maxSteps > 0 {
		base = append(base, engine.WithMaxSteps(h.maxSteps))
	}
	opts = append(base, opts...)

	if engineType == "" {
		return h.registry.CreateDefault(g, opts...)
	}
	return h.registry.Create(engineType, g, opts...)
}

// RunOptions parameterise a single run.
type RunOptions struct {
	// Engine is the engine type tag; empty selects the registry default.
	Engine string `json:"engine,omitempty"`
	// Overrides replace unconnected input values, keyed by "node:interface".
	Overrides map[string]any `json:"overrides,omitempty"`
	// Globals is passed to every calculation as CalculationContext.GlobalValues.
	Globals any `json:"globals,omitempty"`
}

// Run loads a stored graph and runs it once.
func (h *Host) Run(ctx context.Context, graphID string, opts RunOptions) (domain.CalculationResult, error) {
	doc, err := h.sessions.Load(ctx, graphID)
	if err != nil {
		return nil, err
	}
	return h.RunDocument(ctx, doc, opts)
}

// RunDocument materialises doc and runs it once. A failed run returns the
// nodes calculated before the failure together with the error.
func (h *Host) RunDocument(ctx context.Context, doc *document.Document, opts RunOptions) (domain.CalculationResult, error) {
	g, err := h.Materialize(doc)
	if err != nil {
		return nil, err
	}
	eng, err := h.NewEngine(opts.Engine, g)
	if err != nil {
		return nil, err
	}

	for key := range opts.Overrides {
		iface, ok := g.FindInterfaceByID(key)
		if !ok || !iface.IsInput() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownOverride, key)
		}
	}

	h.logger.Debug("Running graph", "graph", doc.ID, "engine", eng.Type())
	return eng.RunGraph(ctx, opts.Overrides, opts.Globals)
}
