package blobstore

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// Memory is an in-memory Store implementation.
// Used by tests and by local mode when no S3 endpoint is configured.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

func (m *Memory) Put(ctx context.Context, name string, r io.Reader) error {
	if name == "" {
		return ErrInvalidName
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.blobs[name] = data
	m.mu.Unlock()
	return nil
}

func (m *Memory) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	m.mu.RLock()
	data, ok := m.blobs[name]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *Memory) OpenRange(ctx context.Context, name string, off, length int64) (io.ReadCloser, error) {
	m.mu.RLock()
	data, ok := m.blobs[name]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if off < 0 || off > int64(len(data)) {
		return nil, io.ErrUnexpectedEOF
	}
	end := off + length
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	return io.NopCloser(bytes.NewReader(data[off:end])), nil
}

func (m *Memory) Stat(ctx context.Context, name string) (int64, error) {
	m.mu.RLock()
	data, ok := m.blobs[name]
	m.mu.RUnlock()
	if !ok {
		return 0, ErrNotFound
	}
	return int64(len(data)), nil
}

func (m *Memory) Exists(ctx context.Context, name string) (bool, error) {
	m.mu.RLock()
	_, ok := m.blobs[name]
	m.mu.RUnlock()
	return ok, nil
}

func (m *Memory) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	delete(m.blobs, name)
	m.mu.Unlock()
	return nil
}

// Names returns the names of all stored blobs. Test helper.
func (m *Memory) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.blobs))
	for name := range m.blobs {
		names = append(names, name)
	}
	return names
}
