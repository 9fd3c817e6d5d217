package ports

import (
	"context"

	"github.com/hgl-pong/baklavajs-sub000/pkg/document"
)

// GraphStore persists graph documents.
type GraphStore interface {
	// Save creates or replaces the document stored under doc.ID.
	Save(ctx context.Context, doc *document.Document) error

	// Load retrieves a document.
	// Returns domain.ErrGraphNotFound if the document does not exist.
	Load(ctx context.Context, graphID string) (*document.Document, error)

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, graphID string) error

	// List returns the stored graph IDs.
	List(ctx context.Context) ([]string, error)
}

// Watchable is implemented by stores that can report backend changes, for
// hot reload.
type Watchable interface {
	// Watch emits the ID of each graph changed outside the process.
	// The channel is closed when ctx is done.
	Watch(ctx context.Context) (<-chan string, error)
}
