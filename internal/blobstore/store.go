// Package blobstore provides named binary object storage with byte-range reads.
//
// Documents and their pre-split page ranges are stored as blobs. The Store
// interface is satisfied by an S3-compatible backend for production and an
// in-memory backend for tests and local development.
package blobstore

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNotFound is returned when a named blob does not exist.
	ErrNotFound = errors.New("blob not found")

	// ErrInvalidName is returned for empty or path-escaping blob names.
	ErrInvalidName = errors.New("invalid blob name")
)

// Store is the blob store client used by the streaming core.
type Store interface {
	// Put writes the blob under the given name, replacing any existing blob.
	Put(ctx context.Context, name string, r io.Reader) error

	// Open returns a reader over the whole blob.
	// Returns ErrNotFound if the blob does not exist.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// OpenRange returns a reader over length bytes starting at off.
	// The caller is responsible for validating the range against Stat.
	OpenRange(ctx context.Context, name string, off, length int64) (io.ReadCloser, error)

	// Stat returns the byte length of the named blob.
	// Returns ErrNotFound if the blob does not exist.
	Stat(ctx context.Context, name string) (int64, error)

	// Exists reports whether the named blob exists.
	Exists(ctx context.Context, name string) (bool, error)

	// Delete removes the named blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
}
