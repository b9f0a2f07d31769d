package blobstore

import (
	"context"
	"sync"
	"time"
)

// MemStore is an in-memory Store for tests and development.
type MemStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	times map[string]time.Time

	// FailAll simulates an unavailable backend; every call errors.
	FailAll bool
}

// errUnavailable distinguishes simulated backend failure from absence.
type errUnavailable struct{}

func (errUnavailable) Error() string { return "blob store unavailable" }

func NewMemStore() *MemStore {
	return &MemStore{
		blobs: make(map[string][]byte),
		times: make(map[string]time.Time),
	}
}

func (s *MemStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll {
		return "", errUnavailable{}
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.blobs[key] = cp
	s.times[key] = time.Now()
	return "mem://" + key, nil
}

func (s *MemStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailAll {
		return nil, errUnavailable{}
	}
	data, ok := s.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (s *MemStore) Head(ctx context.Context, key string) (Metadata, error) {
	if err := ctx.Err(); err != nil {
		return Metadata{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailAll {
		return Metadata{}, errUnavailable{}
	}
	data, ok := s.blobs[key]
	if !ok {
		return Metadata{}, ErrNotFound
	}
	return Metadata{Size: int64(len(data)), ModTime: s.times[key]}, nil
}

// Len reports the number of stored blobs.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
