package repository

import (
	"context"
	"errors"

	"homepage/pkg/metrics"
	"homepage/pkg/models"
)

type instrumentedStore struct {
	next   PostStore
	driver string
}

// Instrument wraps a store with per-operation counters labelled by driver.
func Instrument(driver string, next PostStore) PostStore {
	return &instrumentedStore{next: next, driver: driver}
}

func (s *instrumentedStore) ReadAll(ctx context.Context) ([]models.Post, error) {
	metrics.StoreOp(s.driver, "read")
	posts, err := s.next.ReadAll(ctx)
	if err != nil {
		metrics.StoreError(s.driver, "read")
	}
	return posts, err
}

func (s *instrumentedStore) WriteAll(ctx context.Context, posts []models.Post) error {
	metrics.StoreOp(s.driver, "write")
	err := s.next.WriteAll(ctx, posts)
	if err != nil {
		metrics.StoreError(s.driver, "write")
	}
	return err
}

func (s *instrumentedStore) Mutate(ctx context.Context, fn MutateFunc) ([]models.Post, error) {
	metrics.StoreOp(s.driver, "mutate")
	var rejected bool
	posts, err := s.next.Mutate(ctx, func(current []models.Post) ([]models.Post, error) {
		next, err := fn(current)
		rejected = err != nil
		return next, err
	})
	switch {
	case errors.Is(err, ErrConflict):
		metrics.StoreConflict(s.driver)
		metrics.StoreError(s.driver, "mutate")
	case err != nil && !rejected:
		metrics.StoreError(s.driver, "mutate")
	}
	return posts, err
}

func (s *instrumentedStore) Close() error {
	return s.next.Close()
}
