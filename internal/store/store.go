// Package store is the local key-value persistence used for subjects, MCQ
// collections and the in-progress exam snapshot.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("store: key not found")

// Store is a string-keyed store of string values.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Batcher is implemented by stores that can write several keys atomically.
type Batcher interface {
	SetMany(ctx context.Context, values map[string]string) error
}

// SetMany writes every value, atomically when s supports it.
func SetMany(ctx context.Context, s Store, values map[string]string) error {
	if b, ok := s.(Batcher); ok {
		return b.SetMany(ctx, values)
	}
	for k, v := range values {
		if err := s.Set(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}

// Pinger is implemented by stores with a reachable backend.
type Pinger interface {
	Ping(ctx context.Context) error
}
