package nodeflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/hgl-pong/baklavajs-sub000"
	"github.com/hgl-pong/baklavajs-sub000/pkg/adapters/file"
	"github.com/hgl-pong/baklavajs-sub000/pkg/document"
	"github.com/hgl-pong/baklavajs-sub000/pkg/domain"
	"github.com/hgl-pong/baklavajs-sub000/pkg/engine"
	"github.com/hgl-pong/baklavajs-sub000/pkg/nodes"
	"github.com/hgl-pong/baklavajs-sub000/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() *document.Document {
	return &document.Document{
		ID: "sample",
		Nodes: []document.Node{
			{ID: "n1", Type: nodes.TypeSumDiff, Inputs: map[string]any{"a": 10, "b": 5}},
			{ID: "n2", Type: nodes.TypeDouble},
		},
		Connections: []document.Connection{{From: "n1:c", To: "n2:value"}},
	}
}

func TestHost_RunStored(t *testing.T) {
	host, err := nodeflow.New()
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, host.Save(ctx, sampleDocument()))
	ids, err := host.Graphs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sample"}, ids)

	result, err := host.Run(ctx, "sample", nodeflow.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 15.0, result["n1"]["c"])
	assert.Equal(t, 30.0, result["n2"]["result"])

	result, err = host.Run(ctx, "sample", nodeflow.RunOptions{
		Engine:    engine.TypeForward,
		Overrides: map[string]any{"n1:a": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 6.0, result["n1"]["c"])
	assert.Equal(t, 12.0, result["n2"]["result"])
}

func TestHost_Errors(t *testing.T) {
	host, err := nodeflow.New()
	require.NoError(t, err)
	ctx := context.Background()

	_, err = host.Run(ctx, "missing", nodeflow.RunOptions{})
	assert.ErrorIs(t, err, domain.ErrGraphNotFound)

	_, err = host.RunDocument(ctx, sampleDocument(), nodeflow.RunOptions{Engine: "bogus"})
	assert.ErrorIs(t, err, registry.ErrUnregisteredEngineType)

	_, err = host.RunDocument(ctx, sampleDocument(), nodeflow.RunOptions{Overrides: map[string]any{"n1:c": 1}})
	assert.ErrorIs(t, err, nodeflow.ErrUnknownOverride)

	bad := sampleDocument()
	bad.Nodes[1].Type = "unknown"
	assert.ErrorIs(t, host.Save(ctx, bad), nodes.ErrUnknownNodeType)

	_, err = nodeflow.New(nodeflow.WithRegistry(registry.New()))
	assert.ErrorIs(t, err, registry.ErrUnregisteredEngineType)
}

func TestHost_HooksReachEngines(t *testing.T) {
	var runs int
	host, err := nodeflow.New(nodeflow.WithLifecycleHooks(domain.LifecycleHooks{
		OnRunFinish: func(context.Context, *domain.RunEvent) { runs++ },
	}))
	require.NoError(t, err)

	_, err = host.RunDocument(context.Background(), sampleDocument(), nodeflow.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, runs)
}

func TestHost_Watch(t *testing.T) {
	host, err := nodeflow.New()
	require.NoError(t, err)
	_, err = host.Watch(context.Background())
	assert.ErrorIs(t, err, nodeflow.ErrWatchUnsupported)

	dir := t.TempDir()
	host, err = nodeflow.New(nodeflow.WithStore(file.New(dir)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes, err := host.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, host.Save(ctx, sampleDocument()))
	select {
	case id := <-changes:
		assert.Equal(t, "sample", id)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a change notification")
	}
}
