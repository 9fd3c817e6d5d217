// Package file stores graph documents as files in a local directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hgl-pong/baklavajs-sub000/internal/logging"
	"github.com/hgl-pong/baklavajs-sub000/pkg/document"
	"github.com/hgl-pong/baklavajs-sub000/pkg/domain"
)

// DefaultDir is used when New receives an empty directory.
var DefaultDir = filepath.Join(".nodeflow", "graphs")

// extensions recognised on Load and List, in lookup order.
var extensions = []string{".yaml", ".yml", ".json"}

const tmpPrefix = "tmp-"

// Store implements ports.GraphStore using the local filesystem.
// Documents are written as YAML; hand-written .yml and .json files are read too.
type Store struct {
	BasePath string
	logger   *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger used by Watch.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a Store rooted at basePath.
func New(basePath string, opts ...Option) *Store {
	if basePath == "" {
		basePath = DefaultDir
	}
	s := &Store{BasePath: basePath, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes the document atomically: temp file, fsync, rename.
func (s *Store) Save(ctx context.Context, doc *document.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("graph id cannot be empty")
	}
	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure graph directory: %w", err)
	}

	data, err := document.Encode(doc, document.FormatYAML)
	if err != nil {
		return err
	}

	// Same directory keeps the rename on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, tmpPrefix+doc.ID+"-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows refuses to rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	destPath := s.path(doc.ID, ".yaml")
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing graph file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	// Drop copies in other formats so they can't resurface after a Delete of the .yaml.
	for _, ext := range extensions[1:] {
		_ = os.Remove(s.path(doc.ID, ext))
	}
	return nil
}

// Load reads the document for graphID.
func (s *Store) Load(ctx context.Context, graphID string) (*document.Document, error) {
	if graphID == "" {
		return nil, fmt.Errorf("graph id cannot be empty")
	}
	for _, ext := range extensions {
		path := s.path(graphID, ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read graph file: %w", err)
		}
		doc, err := document.Decode(data, document.FormatFromPath(path))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if doc.ID == "" {
			doc.ID = graphID
		}
		return doc, nil
	}
	return nil, domain.ErrGraphNotFound
}

// Delete removes every file stored for graphID.
func (s *Store) Delete(ctx context.Context, graphID string) error {
	if graphID == "" {
		return fmt.Errorf("graph id cannot be empty")
	}
	for _, ext := range extensions {
		err := os.Remove(s.path(graphID, ext))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to delete graph file: %w", err)
		}
	}
	return nil
}

// List returns the IDs of all stored graphs, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}

	seen := make(map[string]bool)
	ids := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, ok := graphID(entry.Name())
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) path(graphID, ext string) string {
	return filepath.Join(s.BasePath, graphID+ext)
}

// graphID maps a file name to the graph it stores. Temp files are ignored.
func graphID(name string) (string, bool) {
	if strings.HasPrefix(name, tmpPrefix) {
		return "", false
	}
	ext := filepath.Ext(name)
	for _, known := range extensions {
		if strings.EqualFold(ext, known) {
			return strings.TrimSuffix(name, ext), true
		}
	}
	return "", false
}
