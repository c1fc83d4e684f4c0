package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"homepage/pkg/models"
)

// ErrConflict is returned when an optimistic write keeps losing the race.
var ErrConflict = errors.New("store: concurrent modification, retries exhausted")

const maxMutateRetries = 16

// MutateFunc receives the current collection and returns the one to persist.
// Returning an error aborts the write.
type MutateFunc func(posts []models.Post) ([]models.Post, error)

// PostStore keeps the whole board as a single JSON array under one key.
type PostStore interface {
	ReadAll(ctx context.Context) ([]models.Post, error)
	WriteAll(ctx context.Context, posts []models.Post) error
	Mutate(ctx context.Context, fn MutateFunc) ([]models.Post, error)
	Close() error
}

// decodePosts never fails: blank or corrupt content reads as an empty board.
func decodePosts(source string, raw []byte) []models.Post {
	posts := make([]models.Post, 0)
	if len(raw) == 0 {
		return posts
	}
	if err := json.Unmarshal(raw, &posts); err != nil {
		log.Printf("[STORE] %s: corrupt data, treating as empty: %v", source, err)
		return make([]models.Post, 0)
	}
	if posts == nil {
		posts = make([]models.Post, 0)
	}
	return posts
}

func encodePosts(posts []models.Post) ([]byte, error) {
	if posts == nil {
		posts = make([]models.Post, 0)
	}
	return json.Marshal(posts)
}
