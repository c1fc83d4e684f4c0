package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/protobuf/proto"
)

// Connect parses url, sizes the pool and pings the server.
func Connect(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	opt.PoolSize = 10
	opt.MinIdleConns = 3

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// Redis is a best-effort cache. A nil *Redis is valid and caches nothing.
type Redis struct {
	client *redis.Client
	ctx    context.Context
}

func New(client *redis.Client) *Redis {
	if client == nil {
		return nil
	}
	return &Redis{client: client, ctx: context.Background()}
}

// GetProto retrieves protobuf-encoded value from cache
func (r *Redis) GetProto(key string, dest proto.Message) bool {
	if r == nil {
		return false
	}
	val, err := r.client.Get(r.ctx, key).Bytes()
	if err != nil {
		return false
	}
	return proto.Unmarshal(val, dest) == nil
}

// SetProto stores protobuf-encoded value in cache
func (r *Redis) SetProto(key string, msg proto.Message, ttl time.Duration) {
	if r == nil {
		return
	}
	data, err := proto.Marshal(msg)
	if err != nil {
		return
	}
	if err := r.client.Set(r.ctx, key, data, ttl).Err(); err != nil {
		log.Printf("[CACHE] set %s: %v", key, err)
	}
}

func (r *Redis) Del(keys ...string) {
	if r == nil {
		return
	}
	if err := r.client.Del(r.ctx, keys...).Err(); err != nil {
		log.Printf("[CACHE] del %v: %v", keys, err)
	}
}
