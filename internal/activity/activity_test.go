package activity

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(3)
	for i := 1; i <= 5; i++ {
		require.NoError(t, m.Append(ctx, Entry{Tone: ToneNeon, Text: fmt.Sprintf("entry %d", i)}))
	}

	got, err := m.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "entry 5", got[0].Text)
	assert.Equal(t, "entry 3", got[2].Text)

	got, err = m.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	got[0].Text = "changed"
	again, _ := m.Recent(ctx, 1)
	assert.Equal(t, "entry 5", again[0].Text)
}

func TestRedisCappedList(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	require.NoError(t, client.Del(ctx, redisKey).Err())

	r := NewRedis(client, 2)
	at := time.Date(2026, 10, 18, 18, 0, 0, 0, time.UTC)
	for i := 1; i <= 3; i++ {
		require.NoError(t, r.Append(ctx, Entry{At: at, Tone: ToneInfo, Text: fmt.Sprintf("entry %d", i)}))
	}

	got, err := r.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "entry 3", got[0].Text)
	assert.True(t, at.Equal(got[0].At))
}
