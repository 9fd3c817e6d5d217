package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/hgl-pong/baklavajs-sub000/internal/logging"
	"github.com/hgl-pong/baklavajs-sub000/pkg/domain"
)

// RunMessage is the payload streamed to subscribers after each run.
type RunMessage struct {
	GraphID  string                   `json:"graph_id"`
	Engine   string                   `json:"engine"`
	Trigger  string                   `json:"trigger"`
	Duration string                   `json:"duration"`
	Result   domain.CalculationResult `json:"result,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

// StreamManager fans run events out to SSE subscribers, per graph.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // GraphID -> Set of Channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty StreamManager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a listener for graphID. The returned func unsubscribes
// and closes the channel.
func (sm *StreamManager) Subscribe(graphID string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[graphID]; !ok {
		sm.subscribers[graphID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[graphID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[graphID]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(sm.subscribers, graphID)
				}
			}
			close(ch)
		})
	}
}

// Broadcast sends msg to every subscriber of graphID. Slow clients lose messages.
func (sm *StreamManager) Broadcast(graphID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[graphID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: Client buffer full, dropping message", "graph", graphID)
		}
	}
}

// Hooks returns lifecycle hooks that broadcast every finished run.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunFinish: func(_ context.Context, e *domain.RunEvent) {
			msg := RunMessage{
				GraphID:  e.GraphID,
				Engine:   e.Engine,
				Trigger:  e.Trigger,
				Duration: e.Duration.Round(time.Microsecond).String(),
				Result:   e.Result,
			}
			if e.Err != nil {
				msg.Error = e.Err.Error()
			}
			data, err := json.Marshal(msg)
			if err != nil {
				sm.logger.Warn("SSE: Failed to encode run event", "graph", e.GraphID, "err", err)
				return
			}
			sm.Broadcast(e.GraphID, string(data))
		},
	}
}
