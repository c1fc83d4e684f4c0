package repository

import (
	"context"
	"sync"

	"homepage/pkg/models"
)

type memoryStore struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryStore keeps the encoded board in process memory.
func NewMemoryStore() PostStore {
	return &memoryStore{}
}

func (s *memoryStore) ReadAll(ctx context.Context) ([]models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return decodePosts("memory", s.data), nil
}

func (s *memoryStore) WriteAll(ctx context.Context, posts []models.Post) error {
	data, err := encodePosts(posts)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Mutate(ctx context.Context, fn MutateFunc) ([]models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(decodePosts("memory", s.data))
	if err != nil {
		return nil, err
	}
	data, err := encodePosts(next)
	if err != nil {
		return nil, err
	}
	s.data = data
	return next, nil
}

func (s *memoryStore) Close() error { return nil }
