// Package redis keeps key-value entries in a Redis database under a prefix.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/vytor/quizflash/internal/logger"
	"github.com/vytor/quizflash/internal/store"
)

type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type Store struct {
	client goredis.Cmdable
	closer func() error
	prefix string
}

// Dial connects to Redis and verifies the connection with a PING.
func Dial(ctx context.Context, opts Options) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.FromContext(ctx).WithPrefix("kv_redis").Info("connected to %s (db %d)", opts.Addr, opts.DB)
	s := New(client, opts.Prefix)
	s.closer = client.Close
	return s, nil
}

// New wraps an existing client. Every key is stored as prefix+key.
func New(client goredis.Cmdable, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", store.ErrNotFound
	}
	if err != nil {
		logger.FromContext(ctx).WithPrefix("kv_redis").WithField("key", key).Error("failed to read entry: %v", err)
		return "", err
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		logger.FromContext(ctx).WithPrefix("kv_redis").WithField("key", key).Error("failed to write entry: %v", err)
		return err
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

// SetMany writes all values with a single MSET, which Redis applies atomically.
func (s *Store) SetMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	pairs := make([]any, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, s.key(k), v)
	}
	if err := s.client.MSet(ctx, pairs...).Err(); err != nil {
		logger.FromContext(ctx).WithPrefix("kv_redis").Error("failed to write %d entries: %v", len(values), err)
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	if s.closer != nil {
		return s.closer()
	}
	return nil
}

var (
	_ store.Store   = (*Store)(nil)
	_ store.Batcher = (*Store)(nil)
	_ store.Pinger  = (*Store)(nil)
)
