package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-memory catalog store.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*Document)}
}

func (s *MemoryStore) Put(ctx context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[doc.BlobName]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, doc.BlobName)
	}
	s.docs[doc.BlobName] = doc
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, blobName string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[blobName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, blobName)
	}
	return doc, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]*Document, 0, len(s.docs))
	for _, d := range s.docs {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].BlobName < docs[j].BlobName })
	return docs, nil
}

func (s *MemoryStore) Delete(ctx context.Context, blobName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[blobName]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, blobName)
	}
	delete(s.docs, blobName)
	return nil
}
