package repository

import (
	"context"
	"errors"
	"fmt"

	"homepage/pkg/models"

	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore keeps the board as one JSON string under key.
func NewRedisStore(client *redis.Client, key string) PostStore {
	return &redisStore{client: client, key: key}
}

func (s *redisStore) ReadAll(ctx context.Context) ([]models.Post, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return make([]models.Post, 0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return decodePosts("redis:"+s.key, raw), nil
}

func (s *redisStore) WriteAll(ctx context.Context, posts []models.Post) error {
	data, err := encodePosts(posts)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

// Mutate is an optimistic WATCH/MULTI cycle. A write from another client
// between the read and EXEC aborts the transaction and the cycle restarts.
func (s *redisStore) Mutate(ctx context.Context, fn MutateFunc) ([]models.Post, error) {
	var result []models.Post

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, s.key).Bytes()
		if err != nil && err != redis.Nil {
			return err
		}

		next, err := fn(decodePosts("redis:"+s.key, raw))
		if err != nil {
			return err
		}
		data, err := encodePosts(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, data, 0)
			return nil
		})
		if err == nil {
			result = next
		}
		return err
	}

	for i := 0; i < maxMutateRetries; i++ {
		err := s.client.Watch(ctx, txf, s.key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, ErrConflict
}

func (s *redisStore) Close() error { return nil }
