package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"homepage/pkg/cache"
	"homepage/pkg/metrics"
	"homepage/pkg/models"
	"homepage/pkg/repository"

	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ActionPostCreated = "post.created"
	ActionPostUpdated = "post.updated"
	ActionPostDeleted = "post.deleted"

	statsCacheKey = "board:stats"
	statsCacheTTL = 30 * time.Second
)

// Notifier receives every persisted board change.
type Notifier interface {
	Notify(action string, data interface{})
}

type PostsService interface {
	List(ctx context.Context) ([]models.Post, error)
	Create(ctx context.Context, req models.CreatePostRequest) (models.Post, error)
	Update(ctx context.Context, req models.UpdatePostRequest) (models.Post, error)
	// Delete removes a post. admin lifts the same-author restriction.
	Delete(ctx context.Context, req models.DeletePostRequest, admin bool) error
	CheckNickname(ctx context.Context, nickname string) error
	Overview(ctx context.Context) (models.AdminOverview, error)
}

type PostsOptions struct {
	MaxContentLength int
	Now              func() time.Time
}

type postsService struct {
	store    repository.PostStore
	redis    *cache.Redis
	notifier Notifier
	maxLen   int
	now      func() time.Time
}

// NewPostsService wires the board logic. redis and notifier may be nil.
func NewPostsService(store repository.PostStore, redis *cache.Redis, notifier Notifier, opts PostsOptions) PostsService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &postsService{
		store:    store,
		redis:    redis,
		notifier: notifier,
		maxLen:   opts.MaxContentLength,
		now:      now,
	}
}

func (s *postsService) List(ctx context.Context) ([]models.Post, error) {
	return s.store.ReadAll(ctx)
}

func (s *postsService) Create(ctx context.Context, req models.CreatePostRequest) (models.Post, error) {
	author := strings.TrimSpace(req.Author)
	content := strings.TrimSpace(req.Content)
	if author == "" || content == "" {
		return models.Post{}, clientError(ErrValidation, "Author and content are required.")
	}
	if err := s.checkLength(content); err != nil {
		return models.Post{}, err
	}

	var created models.Post
	_, err := s.store.Mutate(ctx, func(posts []models.Post) ([]models.Post, error) {
		now := s.now()
		created = models.Post{
			ID:        nextID(posts, now.UnixMilli()),
			Author:    author,
			Content:   content,
			Timestamp: models.FormatTimestamp(now),
		}
		return append(posts, created), nil
	})
	if err != nil {
		return models.Post{}, fmt.Errorf("create post: %w", err)
	}

	s.written(ActionPostCreated, created)
	return created, nil
}

func (s *postsService) Update(ctx context.Context, req models.UpdatePostRequest) (models.Post, error) {
	content := strings.TrimSpace(req.Content)
	if req.ID == 0 || content == "" {
		return models.Post{}, clientError(ErrValidation, "Post ID and content are required.")
	}
	if err := s.checkLength(content); err != nil {
		return models.Post{}, err
	}

	var updated models.Post
	_, err := s.store.Mutate(ctx, func(posts []models.Post) ([]models.Post, error) {
		idx := models.IndexOf(posts, req.ID)
		if idx < 0 {
			return nil, clientError(ErrNotFound, "Post not found.")
		}
		posts[idx].Content = content
		posts[idx].Edited = true
		posts[idx].EditedAt = models.FormatTimestamp(s.now())
		updated = posts[idx]
		return posts, nil
	})
	if err != nil {
		return models.Post{}, wrapStoreErr("update post", err)
	}

	s.written(ActionPostUpdated, updated)
	return updated, nil
}

func (s *postsService) Delete(ctx context.Context, req models.DeletePostRequest, admin bool) error {
	if req.ID == 0 {
		return clientError(ErrValidation, "Post ID is required.")
	}

	_, err := s.store.Mutate(ctx, func(posts []models.Post) ([]models.Post, error) {
		idx := models.IndexOf(posts, req.ID)
		if idx < 0 {
			return nil, clientError(ErrNotFound, "Post not found.")
		}
		if !admin && posts[idx].Author != req.Author {
			return nil, clientError(ErrForbidden, "You can only delete your own posts.")
		}
		return append(posts[:idx], posts[idx+1:]...), nil
	})
	if err != nil {
		return wrapStoreErr("delete post", err)
	}

	if admin {
		log.Printf("[ADMIN] deleted post %d", req.ID)
	}
	s.written(ActionPostDeleted, map[string]int64{"id": req.ID})
	return nil
}

func (s *postsService) CheckNickname(ctx context.Context, nickname string) error {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return clientError(ErrValidation, "Nickname is required.")
	}

	posts, err := s.store.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("check nickname: %w", err)
	}
	for _, p := range posts {
		if strings.EqualFold(p.Author, nickname) {
			return clientError(ErrNicknameTaken, "This nickname is already taken. Please choose another one.")
		}
	}
	return nil
}

func (s *postsService) Overview(ctx context.Context) (models.AdminOverview, error) {
	posts, err := s.store.ReadAll(ctx)
	if err != nil {
		return models.AdminOverview{}, fmt.Errorf("admin overview: %w", err)
	}

	// Cached stats only count when they were computed from this exact board.
	snapshot := fingerprint(posts)
	var cached structpb.Struct
	if snapshot != "" && s.redis.GetProto(statsCacheKey, &cached) {
		if stats, ok := statsFromStruct(&cached, snapshot); ok {
			return models.AdminOverview{Posts: posts, Stats: stats}, nil
		}
	}

	stats := models.StatsFor(posts)
	if snapshot != "" {
		if msg, err := statsToStruct(stats, snapshot); err == nil {
			s.redis.SetProto(statsCacheKey, msg, statsCacheTTL)
		}
	}
	return models.AdminOverview{Posts: posts, Stats: stats}, nil
}

func (s *postsService) checkLength(content string) error {
	if s.maxLen > 0 && utf8.RuneCountInString(content) > s.maxLen {
		return clientError(ErrValidation, fmt.Sprintf("Content must be at most %d characters.", s.maxLen))
	}
	return nil
}

// written runs after a successful persist.
func (s *postsService) written(action string, data interface{}) {
	s.redis.Del(statsCacheKey)
	metrics.BoardEvent(action)
	if s.notifier != nil {
		s.notifier.Notify(action, data)
	}
}

// nextID uses the creation millisecond unless a post already holds it.
func nextID(posts []models.Post, candidate int64) int64 {
	var maxID int64
	taken := false
	for _, p := range posts {
		if p.ID == candidate {
			taken = true
		}
		if p.ID > maxID {
			maxID = p.ID
		}
	}
	if taken {
		return maxID + 1
	}
	return candidate
}

// wrapStoreErr leaves client errors untouched so their message survives.
func wrapStoreErr(op string, err error) error {
	var ce *ClientError
	if errors.As(err, &ce) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

// fingerprint identifies a board snapshot; "" when it cannot be encoded.
func fingerprint(posts []models.Post) string {
	raw, err := json.Marshal(posts)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func statsToStruct(stats models.Stats, snapshot string) (*structpb.Struct, error) {
	authors := make([]interface{}, len(stats.Authors))
	for i, a := range stats.Authors {
		authors[i] = a
	}
	return structpb.NewStruct(map[string]interface{}{
		"totalPosts": stats.TotalPosts,
		"totalUsers": stats.TotalUsers,
		"authors":    authors,
		"snapshot":   snapshot,
	})
}

func statsFromStruct(msg *structpb.Struct, snapshot string) (models.Stats, bool) {
	fields := msg.GetFields()
	if fields["snapshot"].GetStringValue() != snapshot {
		return models.Stats{}, false
	}
	list := fields["authors"].GetListValue()
	if list == nil || fields["totalPosts"] == nil {
		return models.Stats{}, false
	}
	authors := make([]string, 0, len(list.GetValues()))
	for _, v := range list.GetValues() {
		authors = append(authors, v.GetStringValue())
	}
	return models.Stats{
		TotalPosts: int(fields["totalPosts"].GetNumberValue()),
		TotalUsers: int(fields["totalUsers"].GetNumberValue()),
		Authors:    authors,
	}, true
}
