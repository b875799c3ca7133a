// Package credentials persists the shared yt-dlp cookie jar in Redis.
package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vidvault/backend/internal/videos"
)

// cookieKey is the fixed name of the single shared credential slot. The
// extraction tool may rotate session cookies, so the slot is overwritten
// after every successful download.
const cookieKey = "yt-dlp:cookies"

// RedisStore implements videos.CredentialStore on a single Redis key with
// last-write-wins semantics.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore parses the Redis URL and verifies the server is reachable.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Load reads the cookie jar. An empty slot fails with
// videos.ErrMissingCredentials rather than returning nil bytes.
func (s *RedisStore) Load(ctx context.Context) ([]byte, error) {
	blob, err := s.client.Get(ctx, cookieKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, videos.ErrMissingCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	return blob, nil
}

// Store replaces the cookie jar. No TTL: the slot lives until the next write.
func (s *RedisStore) Store(ctx context.Context, blob []byte) error {
	if err := s.client.Set(ctx, cookieKey, blob, 0).Err(); err != nil {
		return fmt.Errorf("store credentials: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ videos.CredentialStore = (*RedisStore)(nil)
