package redis_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/quizflash/internal/store"
	"github.com/vytor/quizflash/internal/store/redis"
)

// dial connects to the Redis named by REDIS_TEST_ADDR, or skips.
func dial(t *testing.T) *redis.Store {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	prefix := "quizflash-test:" + uuid.NewString() + ":"
	s, err := redis.Dial(context.Background(), redis.Options{Addr: addr, Prefix: prefix})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	s := dial(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "examState")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Set(ctx, "examState", `{"isActive":true}`))
	value, err := s.Get(ctx, "examState")
	require.NoError(t, err)
	assert.Equal(t, `{"isActive":true}`, value)

	require.NoError(t, s.Remove(ctx, "examState"))
	_, err = s.Get(ctx, "examState")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_SetMany(t *testing.T) {
	s := dial(t)
	ctx := context.Background()

	require.NoError(t, store.SetMany(ctx, s, map[string]string{"mcq_subjects": "[]", "mcq_data": "{}"}))
	t.Cleanup(func() {
		_ = s.Remove(context.Background(), "mcq_subjects")
		_ = s.Remove(context.Background(), "mcq_data")
	})

	subjects, err := s.Get(ctx, "mcq_subjects")
	require.NoError(t, err)
	assert.Equal(t, "[]", subjects)

	data, err := s.Get(ctx, "mcq_data")
	require.NoError(t, err)
	assert.Equal(t, "{}", data)
}

func TestDial_Unreachable(t *testing.T) {
	_, err := redis.Dial(context.Background(), redis.Options{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
