package operator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const historyPrefix = "restobot:operator:history:"

// RedisHistory keeps histories in Redis so they survive restarts.
// Every save refreshes the key TTL.
type RedisHistory struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisHistory wraps an existing client.
func NewRedisHistory(client *redis.Client, ttl time.Duration) *RedisHistory {
	return &RedisHistory{client: client, ttl: ttl}
}

func historyKey(userID int64) string {
	return historyPrefix + strconv.FormatInt(userID, 10)
}

func (s *RedisHistory) Load(ctx context.Context, userID int64) ([]Turn, error) {
	data, err := s.client.Get(ctx, historyKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("operator: load history: %w", err)
	}
	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("operator: decode history: %w", err)
	}
	return turns, nil
}

func (s *RedisHistory) Save(ctx context.Context, userID int64, turns []Turn) error {
	b, err := json.Marshal(turns)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, historyKey(userID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("operator: save history: %w", err)
	}
	return nil
}

func (s *RedisHistory) Clear(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, historyKey(userID)).Err()
}
