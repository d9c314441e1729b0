package activity

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const redisKey = "spinroom:activity"

// Redis is a Log shared by every server instance, kept as a capped list.
type Redis struct {
	client *redis.Client
	size   int64
}

func NewRedis(client *redis.Client, size int) *Redis {
	if size <= 0 {
		size = Capacity
	}
	return &Redis{client: client, size: int64(size)}
}

func (r *Redis) Append(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode activity entry: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, redisKey, data)
		p.LTrim(ctx, redisKey, 0, r.size-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append activity entry: %w", err)
	}
	return nil
}

func (r *Redis) Recent(ctx context.Context, n int) ([]Entry, error) {
	stop := int64(n) - 1
	if n <= 0 || int64(n) > r.size {
		stop = r.size - 1
	}
	raw, err := r.client.LRange(ctx, redisKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("read activity: %w", err)
	}
	out := make([]Entry, 0, len(raw))
	for _, s := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
