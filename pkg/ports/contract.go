package ports

import (
	"context"
	"testing"
	"time"

	"github.com/hgl-pong/baklavajs-sub000/pkg/document"
	"github.com/hgl-pong/baklavajs-sub000/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunGraphStoreContract runs a suite of tests to verify that a GraphStore
// implementation adheres to the interface contract.
func RunGraphStoreContract(t *testing.T, store GraphStore) {
	ctx := context.Background()
	graphID := "contract-graph-" + time.Now().Format("20060102150405")

	sample := func(id string) *document.Document {
		return &document.Document{
			ID:   id,
			Name: "contract",
			Nodes: []document.Node{
				{ID: "n1", Type: "sum-diff", Inputs: map[string]any{"a": 10, "b": 5}},
				{ID: "n2", Type: "double"},
			},
			Connections: []document.Connection{{ID: "c1", From: "n1:c", To: "n2:value"}},
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sample(graphID)), "Save should not return error")

		loaded, err := store.Load(ctx, graphID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, graphID, loaded.ID)
		assert.Equal(t, "contract", loaded.Name)
		require.Len(t, loaded.Nodes, 2)
		assert.Equal(t, "sum-diff", loaded.Nodes[0].Type)
		// Numbers may come back as another numeric type after serialisation.
		assert.NotNil(t, loaded.Nodes[0].Inputs["a"])
		assert.Equal(t, []document.Connection{{ID: "c1", From: "n1:c", To: "n2:value"}}, loaded.Connections)
	})

	t.Run("Save replaces", func(t *testing.T) {
		doc := sample(graphID)
		doc.Name = "replaced"
		require.NoError(t, store.Save(ctx, doc))

		loaded, err := store.Load(ctx, graphID)
		require.NoError(t, err)
		assert.Equal(t, "replaced", loaded.Name)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+graphID)
		assert.ErrorIs(t, err, domain.ErrGraphNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sample(graphID)))
		require.NoError(t, store.Delete(ctx, graphID), "Delete should not return error")

		_, err := store.Load(ctx, graphID)
		assert.ErrorIs(t, err, domain.ErrGraphNotFound, "Load after Delete should return ErrGraphNotFound")
		assert.NoError(t, store.Delete(ctx, graphID), "Delete is idempotent")
	})

	t.Run("List", func(t *testing.T) {
		id1 := graphID + "-1"
		id2 := graphID + "-2"
		require.NoError(t, store.Save(ctx, sample(id1)))
		require.NoError(t, store.Save(ctx, sample(id2)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
