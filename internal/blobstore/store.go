// Package blobstore defines the object-store boundary for rendered chunk
// audio and the mastered output. Keys are content hashes, so blobs are
// shared across renders and concurrent writers for the same key write
// identical bytes.
package blobstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports that no blob exists at the key. Callers treat absence
// and backend failure differently: absence is a plain cache miss, failure is
// a degraded miss.
var ErrNotFound = errors.New("blob not found")

// Metadata describes a stored blob without fetching its bytes.
type Metadata struct {
	Size    int64
	ModTime time.Time
}

// Store is the minimal object-store contract the pipeline depends on.
type Store interface {
	Put(ctx context.Context, key string, data []byte) (ref string, err error)
	Get(ctx context.Context, key string) ([]byte, error)
	Head(ctx context.Context, key string) (Metadata, error)
}
