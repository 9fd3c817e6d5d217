package engine

import "github.com/hgl-pong/baklavajs-sub000/pkg/domain"

// TransformFunc converts the value flowing across a connection before it is
// delivered to the target input.
type TransformFunc func(value any, c *domain.Connection) any

type transformEntry struct {
	id int
	fn TransformFunc
}

// AddTransform appends fn to the pipeline. Transforms run in registration order,
// each receiving the previous one's result.
func (b *Base) AddTransform(fn TransformFunc) (remove func()) {
	b.tfMu.Lock()
	defer b.tfMu.Unlock()
	b.nextTf++
	id := b.nextTf
	b.transforms = append(b.transforms, transformEntry{id: id, fn: fn})

	return func() {
		b.tfMu.Lock()
		defer b.tfMu.Unlock()
		for i, t := range b.transforms {
			if t.id == id {
				b.transforms = append(b.transforms[:i:i], b.transforms[i+1:]...)
				return
			}
		}
	}
}

// transform passes value through the pipeline once for connection c.
// An empty pipeline is the identity.
func (b *Base) transform(value any, c *domain.Connection) any {
	b.tfMu.RLock()
	pipeline := b.transforms
	b.tfMu.RUnlock()

	for _, t := range pipeline {
		value = t.fn(value, c)
	}
	return value
}
