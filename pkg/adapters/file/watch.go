package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

// Watch reports the IDs of graphs whose files change. Bursts of events are
// coalesced, so an editor's save sequence yields one notification per graph.
// The channel is closed when ctx is done.
func (s *Store) Watch(ctx context.Context) (<-chan string, error) {
	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure graph directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	// The directory, not the files, so atomic replaces are seen.
	if err := watcher.Add(s.BasePath); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", s.BasePath, err)
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer watcher.Close()

		pending := make(map[string]struct{})
		var flush <-chan time.Time

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
					continue
				}
				id, ok := graphID(filepath.Base(event.Name))
				if !ok {
					continue
				}
				pending[id] = struct{}{}
				flush = time.After(watchDebounce)

			case <-flush:
				flush = nil
				ids := make([]string, 0, len(pending))
				for id := range pending {
					ids = append(ids, id)
				}
				clear(pending)
				sort.Strings(ids)
				for _, id := range ids {
					s.logger.Debug("Graph file changed", "graph", id)
					select {
					case out <- id:
					case <-ctx.Done():
						return
					}
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("Graph watcher error", "err", err)

			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
