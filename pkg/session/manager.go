package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hgl-pong/baklavajs-sub000/internal/logging"
	"github.com/hgl-pong/baklavajs-sub000/pkg/document"
	"github.com/hgl-pong/baklavajs-sub000/pkg/ports"
)

// ErrNoStore is returned by document operations on a lock-only Manager.
var ErrNoStore = errors.New("session manager has no graph store")

const defaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager serialises access to graphs: document reads and writes, and engine
// runs. It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.GraphStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks (default 30s).
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager. A nil store yields a lock-only Manager, which
// is what engines use when no shared Manager is configured.
func NewManager(store ports.GraphStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: defaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(graphID) after unlocking.
func (m *Manager) acquire(graphID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[graphID]
	if !exists {
		entry = &lockEntry{}
		m.locks[graphID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(graphID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[graphID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, graphID)
	}
}

// Load retrieves a graph document.
func (m *Manager) Load(ctx context.Context, graphID string) (*document.Document, error) {
	if m.store == nil {
		return nil, ErrNoStore
	}
	var doc *document.Document
	err := m.WithLock(ctx, graphID, func(ctx context.Context) error {
		var err error
		doc, err = m.store.Load(ctx, graphID)
		return err
	})
	return doc, err
}

// Save validates and persists a graph document.
func (m *Manager) Save(ctx context.Context, doc *document.Document) error {
	if m.store == nil {
		return ErrNoStore
	}
	if err := doc.Validate(); err != nil {
		return err
	}
	return m.WithLock(ctx, doc.ID, func(ctx context.Context) error {
		return m.store.Save(ctx, doc)
	})
}

// Delete removes a graph document.
func (m *Manager) Delete(ctx context.Context, graphID string) error {
	if m.store == nil {
		return ErrNoStore
	}
	return m.WithLock(ctx, graphID, func(ctx context.Context) error {
		return m.store.Delete(ctx, graphID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	if m.store == nil {
		return nil, ErrNoStore
	}
	return m.store.List(ctx)
}

// Store returns the underlying graph store, which may be nil.
func (m *Manager) Store() ports.GraphStore {
	return m.store
}

// WithLock executes fn while holding the lock for the graph. Concurrent callers
// for the same graph wait for each other.
func (m *Manager) WithLock(ctx context.Context, graphID string, fn func(context.Context) error) error {
	entry := m.acquire(graphID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(graphID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, graphID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"graph_id", graphID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
