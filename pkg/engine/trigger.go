package engine

import (
	"context"
	"sync"
)

// triggerQueue is an unbounded FIFO of triggered runs drained by one goroutine.
// Pushing never blocks, so graph event handlers can enqueue from any goroutine.
type triggerQueue struct {
	mu      sync.Mutex
	pending []func(context.Context)
	wake    chan struct{}
}

func newTriggerQueue() *triggerQueue {
	return &triggerQueue{wake: make(chan struct{}, 1)}
}

func (q *triggerQueue) push(fn func(context.Context)) {
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *triggerQueue) pop() (func(context.Context), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil, false
	}
	fn := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	return fn, true
}

func (q *triggerQueue) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.wake:
		}
		for {
			if ctx.Err() != nil {
				return
			}
			fn, ok := q.pop()
			if !ok {
				break
			}
			fn(ctx)
		}
	}
}
