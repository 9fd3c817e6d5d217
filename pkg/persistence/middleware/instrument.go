package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hgl-pong/baklavajs-sub000/pkg/document"
	"github.com/hgl-pong/baklavajs-sub000/pkg/domain"
	"github.com/hgl-pong/baklavajs-sub000/pkg/observability"
	"github.com/hgl-pong/baklavajs-sub000/pkg/ports"
)

type instrumentMiddleware struct {
	next    ports.GraphStore
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewInstrumentMiddleware records every store call into metrics and logs
// failures. Either argument may be nil.
func NewInstrumentMiddleware(metrics *observability.Metrics, logger *slog.Logger) Middleware {
	return func(next ports.GraphStore) ports.GraphStore {
		return &instrumentMiddleware{next: next, metrics: metrics, logger: logger}
	}
}

func (m *instrumentMiddleware) observe(ctx context.Context, op, graphID string, start time.Time, err error) {
	d := time.Since(start)
	if m.metrics != nil {
		m.metrics.ObserveStore(op, d, err)
	}
	if m.logger == nil {
		return
	}
	if err != nil && !errors.Is(err, domain.ErrGraphNotFound) {
		m.logger.WarnContext(ctx, "Graph store call failed", "op", op, "graph_id", graphID, "duration", d, "err", err)
		return
	}
	m.logger.DebugContext(ctx, "Graph store call", "op", op, "graph_id", graphID, "duration", d)
}

func (m *instrumentMiddleware) Save(ctx context.Context, doc *document.Document) error {
	start := time.Now()
	err := m.next.Save(ctx, doc)
	m.observe(ctx, "save", doc.ID, start, err)
	return err
}

func (m *instrumentMiddleware) Load(ctx context.Context, graphID string) (*document.Document, error) {
	start := time.Now()
	doc, err := m.next.Load(ctx, graphID)
	m.observe(ctx, "load", graphID, start, err)
	return doc, err
}

func (m *instrumentMiddleware) Delete(ctx context.Context, graphID string) error {
	start := time.Now()
	err := m.next.Delete(ctx, graphID)
	m.observe(ctx, "delete", graphID, start, err)
	return err
}

func (m *instrumentMiddleware) List(ctx context.Context) ([]string, error) {
	start := time.Now()
	ids, err := m.next.List(ctx)
	m.observe(ctx, "list", "", start, err)
	return ids, err
}
