package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"homepage/pkg/models"

	"github.com/puzpuzpuz/xsync/v3"
)

// fileLocks serializes writers per path across every fileStore in the process.
var fileLocks = xsync.NewMapOf[string, *sync.Mutex]()

func lockFor(path string) *sync.Mutex {
	mu, _ := fileLocks.LoadOrCompute(path, func() *sync.Mutex { return &sync.Mutex{} })
	return mu
}

type fileStore struct {
	path string
}

// NewFileStore persists the board as an indented JSON array at path.
func NewFileStore(path string) PostStore {
	return &fileStore{path: filepath.Clean(path)}
}

func (s *fileStore) ReadAll(ctx context.Context) ([]models.Post, error) {
	mu := lockFor(s.path)
	mu.Lock()
	defer mu.Unlock()
	return s.load()
}

func (s *fileStore) WriteAll(ctx context.Context, posts []models.Post) error {
	mu := lockFor(s.path)
	mu.Lock()
	defer mu.Unlock()
	return s.save(posts)
}

func (s *fileStore) Mutate(ctx context.Context, fn MutateFunc) ([]models.Post, error) {
	mu := lockFor(s.path)
	mu.Lock()
	defer mu.Unlock()

	current, err := s.load()
	if err != nil {
		return nil, err
	}
	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	if err := s.save(next); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *fileStore) Close() error { return nil }

// load creates the file holding an empty array the first time it is read.
func (s *fileStore) load() ([]models.Post, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := s.save(nil); err != nil {
			return nil, err
		}
		return make([]models.Post, 0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return decodePosts(s.path, raw), nil
}

func (s *fileStore) save(posts []models.Post) error {
	if posts == nil {
		posts = make([]models.Post, 0)
	}
	data, err := json.MarshalIndent(posts, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}
