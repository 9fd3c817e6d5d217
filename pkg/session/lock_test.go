package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/hgl-pong/baklavajs-sub000/pkg/document"
)

// nopStore accepts everything and stores nothing.
type nopStore struct{}

func (nopStore) Save(context.Context, *document.Document) error { return nil }
func (nopStore) Load(context.Context, string) (*document.Document, error) {
	return nil, nil
}
func (nopStore) Delete(context.Context, string) error   { return nil }
func (nopStore) List(context.Context) ([]string, error) { return nil, nil }

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(nopStore{})
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		id := fmt.Sprintf("graph-%d", i)
		_ = mgr.Save(ctx, &document.Document{ID: id})
		_ = mgr.Delete(ctx, id)
	}

	lockCount := len(mgr.locks)
	t.Logf("Graphs Created: %d, Locks Leaked: %d", count, lockCount)

	if lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Delete", lockCount)
	}
}
