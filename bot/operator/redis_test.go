package operator

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisHistory(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	h := NewRedisHistory(client, time.Minute)
	const uid = int64(-424242)
	require.NoError(t, h.Clear(ctx, uid))

	turns, err := h.Load(ctx, uid)
	require.NoError(t, err)
	assert.Empty(t, turns)

	want := []Turn{{Role: RoleUser, Content: "привет"}, {Role: RoleAssistant, Content: "здравствуйте"}}
	require.NoError(t, h.Save(ctx, uid, want))
	got, err := h.Load(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	ttl, err := client.TTL(ctx, historyKey(uid)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, h.Clear(ctx, uid))
	got, err = h.Load(ctx, uid)
	require.NoError(t, err)
	assert.Empty(t, got)
}
