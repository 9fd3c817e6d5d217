// Package http exposes stored graphs and engine runs over a JSON API.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hgl-pong/baklavajs-sub000"
	"github.com/hgl-pong/baklavajs-sub000/internal/logging"
	"github.com/hgl-pong/baklavajs-sub000/internal/presentation/graph"
	"github.com/hgl-pong/baklavajs-sub000/pkg/document"
	"github.com/hgl-pong/baklavajs-sub000/pkg/domain"
	"github.com/hgl-pong/baklavajs-sub000/pkg/engine"
	"github.com/hgl-pong/baklavajs-sub000/pkg/nodes"
	"github.com/hgl-pong/baklavajs-sub000/pkg/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Host is the part of nodeflow.Host the server needs.
type Host interface {
	Engines() []registry.Info
	Graphs(ctx context.Context) ([]string, error)
	Load(ctx context.Context, graphID string) (*document.Document, error)
	Save(ctx context.Context, doc *document.Document) error
	Delete(ctx context.Context, graphID string) error
	Run(ctx context.Context, graphID string, opts nodeflow.RunOptions) (domain.CalculationResult, error)
	Watch(ctx context.Context) (<-chan string, error)
}

// Server serves the API described by openapi.yaml.
type Server struct {
	Host    Host
	Streams *StreamManager

	limiter  *rate.Limiter
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithStreams sets the manager whose hooks feed GET /events. Its Hooks must be
// registered on the host for run events to arrive.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithRateLimit allows perSecond runs on average with the given burst.
// Zero disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		if perSecond <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithGatherer sets the metrics source for GET /metrics (default: the
// Prometheus default registry).
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler. It fails if the embedded OpenAPI
// document does not validate.
func NewHandler(host Host, opts ...Option) (http.Handler, error) {
	s := &Server{
		Host:     host,
		gatherer: prometheus.DefaultGatherer,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}

	swagger, err := GetSwagger()
	if err != nil {
		return nil, err
	}
	router, err := newRouter(swagger)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(requestValidator(router))

		r.Get("/healthz", s.GetHealth)
		r.Get("/engines", s.ListEngines)
		r.Get("/events", s.SubscribeEvents)
		r.Get("/graphs", s.ListGraphs)
		r.Route("/graphs/{id}", func(r chi.Router) {
			r.Get("/", s.GetGraph)
			r.Put("/", s.PutGraph)
			r.Delete("/", s.DeleteGraph)
			r.Get("/diagram", s.GetGraphDiagram)
			r.With(s.rateLimit).Post("/run", s.RunGraph)
		})
	})

	return r, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, errors.New("run rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>nodeflow API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// GetHealth handles GET /healthz.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": nodeflow.Version})
}

// ListEngines handles GET /engines.
func (s *Server) ListEngines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Host.Engines())
}

// ListGraphs handles GET /graphs.
func (s *Server) ListGraphs(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Host.Graphs(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"graphs": ids})
}

// GetGraph handles GET /graphs/{id}.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Host.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// PutGraph handles PUT /graphs/{id}. The body's id may be omitted; if present
// it must match the path.
func (s *Server) PutGraph(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	doc, err := document.Decode(data, document.FormatJSON)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if doc.ID == "" {
		doc.ID = id
	}
	if doc.ID != id {
		writeError(w, http.StatusBadRequest, fmt.Errorf("document id %q does not match path %q", doc.ID, id))
		return
	}

	if err := s.Host.Save(r.Context(), doc); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteGraph handles DELETE /graphs/{id}.
func (s *Server) DeleteGraph(w http.ResponseWriter, r *http.Request) {
	if err := s.Host.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetGraphDiagram handles GET /graphs/{id}/diagram.
func (s *Server) GetGraphDiagram(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Host.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, graph.GenerateMermaid(doc, nil))
}

// RunResponse is the body of POST /graphs/{id}/run.
type RunResponse struct {
	GraphID string                   `json:"graph_id"`
	Engine  string                   `json:"engine,omitempty"`
	Result  domain.CalculationResult `json:"result"`
	Error   string                   `json:"error,omitempty"`
}

// RunGraph handles POST /graphs/{id}/run.
func (s *Server) RunGraph(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var opts nodeflow.RunOptions
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(bytes.TrimSpace(data)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&opts); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}
	}

	result, err := s.Host.Run(r.Context(), id, opts)
	resp := RunResponse{GraphID: id, Engine: opts.Engine, Result: result}
	if resp.Result == nil {
		resp.Result = domain.CalculationResult{}
	}
	if err != nil {
		status := statusFor(err)
		if status != http.StatusUnprocessableEntity {
			s.fail(w, r, err)
			return
		}
		s.logger.Warn("Run failed", "graph", id, "err", err)
		resp.Error = err.Error()
		writeJSON(w, status, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// SubscribeEvents handles GET /events (SSE). With ?graph=ID it streams run
// events for that graph; without it, IDs of graphs changed in the store.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming not supported"))
		return
	}

	var events <-chan string
	if graphID := r.URL.Query().Get("graph"); graphID != "" {
		ch, cancel := s.Streams.Subscribe(graphID)
		defer cancel()
		events = ch
	} else {
		ch, err := s.Host.Watch(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		events = ch
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// -- Helpers --

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeError(w, status, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrGraphNotFound):
		return http.StatusNotFound
	case errors.Is(err, document.ErrInvalidDocument),
		errors.Is(err, domain.ErrInvalidConnection),
		errors.Is(err, domain.ErrDuplicateNode),
		errors.Is(err, nodes.ErrUnknownNodeType),
		errors.Is(err, nodes.ErrUndeclaredInterface),
		errors.Is(err, registry.ErrUnregisteredEngineType),
		errors.Is(err, nodeflow.ErrUnknownOverride):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrCycleDetected),
		errors.Is(err, domain.ErrCalculationFailure),
		errors.Is(err, engine.ErrPropagationLimit):
		return http.StatusUnprocessableEntity
	case errors.Is(err, nodeflow.ErrWatchUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
