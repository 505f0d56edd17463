package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileStore is a catalog store persisted as a JSON file.
// The whole catalog is loaded at startup and rewritten on every mutation;
// a personal library is small enough that this is fine.
type FileStore struct {
	mu   sync.RWMutex
	path string
	docs map[string]*Document
}

var _ Store = (*FileStore)(nil)

// NewFileStore loads (or creates) the catalog file at path.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, docs: make(map[string]*Document)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var docs []*Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	for _, d := range docs {
		s.docs[d.BlobName] = d
	}
	return s, nil
}

// save writes the catalog atomically via a temp file rename.
// Caller must hold the write lock.
func (s *FileStore) save() error {
	docs := make([]*Document, 0, len(s.docs))
	for _, d := range s.docs {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].BlobName < docs[j].BlobName })

	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) Put(ctx context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[doc.BlobName]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, doc.BlobName)
	}
	s.docs[doc.BlobName] = doc
	if err := s.save(); err != nil {
		// Keep memory and disk in agreement: a record that never made it
		// to the file must not be served until a later save succeeds.
		delete(s.docs, doc.BlobName)
		return err
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, blobName string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[blobName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, blobName)
	}
	return doc, nil
}

func (s *FileStore) List(ctx context.Context) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]*Document, 0, len(s.docs))
	for _, d := range s.docs {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].BlobName < docs[j].BlobName })
	return docs, nil
}

func (s *FileStore) Delete(ctx context.Context, blobName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.docs[blobName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, blobName)
	}
	delete(s.docs, blobName)
	if err := s.save(); err != nil {
		s.docs[blobName] = prev
		return err
	}
	return nil
}
