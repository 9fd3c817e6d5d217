package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hgl-pong/baklavajs-sub000/pkg/adapters/file"
	"github.com/hgl-pong/baklavajs-sub000/pkg/document"
	"github.com/hgl-pong/baklavajs-sub000/pkg/domain"
	"github.com/hgl-pong/baklavajs-sub000/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	store := file.New(t.TempDir())
	ports.RunGraphStoreContract(t, store)
}

func TestFileStore_DefaultDir(t *testing.T) {
	store := file.New("")
	assert.Equal(t, filepath.Join(".nodeflow", "graphs"), store.BasePath)
}

func TestFileStore_ReadsHandWrittenFiles(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	raw := `{"nodes":[{"id":"n1","type":"value","inputs":{"value":3}}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hand.json"), []byte(raw), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	doc, err := store.Load(ctx, "hand")
	require.NoError(t, err)
	assert.Equal(t, "hand", doc.ID, "ID defaults to the file name")
	require.Len(t, doc.Nodes, 1)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"hand"}, ids)

	// Saving replaces the JSON copy with YAML.
	require.NoError(t, store.Save(ctx, doc))
	_, err = os.Stat(filepath.Join(dir, "hand.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(filepath.Join(dir, "hand.yaml"))
	assert.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "hand"))
	_, err = store.Load(ctx, "hand")
	assert.ErrorIs(t, err, domain.ErrGraphNotFound)
}

func TestFileStore_ListMissingDir(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "missing"))
	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFileStore_Watch(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := store.Watch(ctx)
	require.NoError(t, err)

	doc := &document.Document{ID: "watched", Nodes: []document.Node{{ID: "n1", Type: "value"}}}
	require.NoError(t, store.Save(ctx, doc))

	select {
	case id := <-changes:
		assert.Equal(t, "watched", id)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a change notification")
	}

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-changes:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond, "channel closes when the context ends")
}
