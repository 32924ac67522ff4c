package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultRedisKey is the hash holding cache metadata when none is configured.
const DefaultRedisKey = "fintrack:cache:metadata"

// RedisSettingsConfig holds configuration for the Redis settings store.
type RedisSettingsConfig struct {
	Addr     string
	Password string
	DB       int
	// Key is the Redis hash that holds every setting.
	Key string
}

// RedisSettingsStore keeps settings as fields of a single Redis hash.
type RedisSettingsStore struct {
	client *redis.Client
	key    string
}

// NewRedisSettingsStore connects to Redis and verifies the connection.
func NewRedisSettingsStore(cfg RedisSettingsConfig, logger zerolog.Logger) (*RedisSettingsStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	key := cfg.Key
	if key == "" {
		key = DefaultRedisKey
	}

	logger.Info().
		Str("component", "redis_settings").
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Str("key", key).
		Msg("redis settings store connected")

	return NewRedisSettingsStoreFromClient(client, key), nil
}

// NewRedisSettingsStoreFromClient wraps an existing client.
func NewRedisSettingsStoreFromClient(client *redis.Client, key string) *RedisSettingsStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisSettingsStore{client: client, key: key}
}

// GetLong returns the value for key or def.
func (s *RedisSettingsStore) GetLong(ctx context.Context, key string, def int64) (int64, error) {
	raw, err := s.client.HGet(ctx, s.key, key).Result()
	if errors.Is(err, redis.Nil) {
		return def, nil
	}
	if err != nil {
		return def, fmt.Errorf("failed to get setting %s: %w", key, err)
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def, fmt.Errorf("setting %s is not an integer: %w", key, err)
	}
	return v, nil
}

// PutLong stores value under key.
func (s *RedisSettingsStore) PutLong(ctx context.Context, key string, value int64) error {
	if err := s.client.HSet(ctx, s.key, key, value).Err(); err != nil {
		return fmt.Errorf("failed to put setting %s: %w", key, err)
	}
	return nil
}

// Remove deletes key.
func (s *RedisSettingsStore) Remove(ctx context.Context, key string) error {
	if err := s.client.HDel(ctx, s.key, key).Err(); err != nil {
		return fmt.Errorf("failed to remove setting %s: %w", key, err)
	}
	return nil
}

// AllKeys returns every field of the hash.
func (s *RedisSettingsStore) AllKeys(ctx context.Context) ([]string, error) {
	keys, err := s.client.HKeys(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	return keys, nil
}

// Clear deletes the whole hash.
func (s *RedisSettingsStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear settings: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (s *RedisSettingsStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *RedisSettingsStore) Close() error {
	return s.client.Close()
}

var _ SettingsStore = (*RedisSettingsStore)(nil)
