package storage

import (
	"context"
	"sync"

	"probata/pkg/platform/sentinel"
)

// InMemoryBlobStore keeps rendered documents in process memory. It
// intentionally favors clarity over performance.
type InMemoryBlobStore struct {
	mu      sync.RWMutex
	objects map[string]Object
}

func NewInMemoryBlobStore() *InMemoryBlobStore {
	return &InMemoryBlobStore{objects: make(map[string]Object)}
}

func (s *InMemoryBlobStore) Put(_ context.Context, obj Object) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := obj
	stored.Data = make([]byte, len(obj.Data))
	copy(stored.Data, obj.Data)
	s.objects[obj.Key] = stored
	return nil
}

func (s *InMemoryBlobStore) Get(_ context.Context, key string) (Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return Object{}, sentinel.ErrNotFound
	}
	out := obj
	out.Data = make([]byte, len(obj.Data))
	copy(out.Data, obj.Data)
	return out, nil
}
