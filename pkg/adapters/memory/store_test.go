package memory_test

import (
	"context"
	"testing"

	"github.com/hgl-pong/baklavajs-sub000/pkg/adapters/memory"
	"github.com/hgl-pong/baklavajs-sub000/pkg/document"
	"github.com/hgl-pong/baklavajs-sub000/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunGraphStoreContract(t, store)
}

func TestMemoryStore_Isolation(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	doc := &document.Document{
		ID:    "iso",
		Nodes: []document.Node{{ID: "n1", Type: "value", Inputs: map[string]any{"value": 1}}},
	}
	require.NoError(t, store.Save(ctx, doc))

	doc.Nodes[0].Inputs["value"] = 99
	loaded, err := store.Load(ctx, "iso")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Nodes[0].Inputs["value"])

	loaded.Nodes[0].ID = "changed"
	again, err := store.Load(ctx, "iso")
	require.NoError(t, err)
	assert.Equal(t, "n1", again.Nodes[0].ID)
}
