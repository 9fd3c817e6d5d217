// Package middleware decorates a ports.GraphStore with cross-cutting behaviour:
// value encryption, redaction of sensitive values and instrumentation.
package middleware

import (
	"context"

	"github.com/hgl-pong/baklavajs-sub000/pkg/ports"
)

// Middleware allows wrapping a GraphStore to add behavior.
type Middleware func(ports.GraphStore) ports.GraphStore

// Chain wraps store with mws so that the first middleware is the outermost.
// The result keeps implementing ports.Watchable when store does.
func Chain(store ports.GraphStore, mws ...Middleware) ports.GraphStore {
	out := store
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	if w, ok := store.(ports.Watchable); ok && out != store {
		return &watchable{GraphStore: out, inner: w}
	}
	return out
}

type watchable struct {
	ports.GraphStore
	inner ports.Watchable
}

func (w *watchable) Watch(ctx context.Context) (<-chan string, error) {
	return w.inner.Watch(ctx)
}
