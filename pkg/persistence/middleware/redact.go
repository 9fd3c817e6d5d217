package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/hgl-pong/baklavajs-sub000/pkg/document"
	"github.com/hgl-pong/baklavajs-sub000/pkg/ports"
)

// RedactedValue replaces masked interface values.
const RedactedValue = "***"

type redactMiddleware struct {
	ports.GraphStore
	patterns []*regexp.Regexp
}

// NewRedactMiddleware creates a middleware that masks, on save, the values of
// node interfaces whose name matches one of the patterns. Nested maps are
// masked by key as well.
func NewRedactMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("redact pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.GraphStore) ports.GraphStore {
		return &redactMiddleware{GraphStore: next, patterns: patterns}
	}, nil
}

func (m *redactMiddleware) Save(ctx context.Context, doc *document.Document) error {
	// Clone so the caller's document keeps its real values.
	masked := doc.Clone()
	for i := range masked.Nodes {
		masked.Nodes[i].Inputs = m.mask(masked.Nodes[i].Inputs)
		masked.Nodes[i].Outputs = m.mask(masked.Nodes[i].Outputs)
	}
	return m.GraphStore.Save(ctx, masked)
}

func (m *redactMiddleware) mask(values map[string]any) map[string]any {
	if values == nil {
		return nil
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		switch {
		case m.matches(k):
			out[k] = RedactedValue
		case isMap(v):
			out[k] = m.mask(v.(map[string]any))
		default:
			out[k] = v
		}
	}
	return out
}

func (m *redactMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

func isMap(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}
