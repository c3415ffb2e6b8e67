package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/amintahir16/lpg-gas-app-sub000/ledger"
)

// RedisCheckpointCache stores checkpoints in Redis so multiple server
// instances share the same warm state.
type RedisCheckpointCache struct {
	client *redis.Client
}

func NewRedisCheckpointCache(addr string, password string, db int) *RedisCheckpointCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisCheckpointCache{client: client}
}

func (c *RedisCheckpointCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCheckpointCache) Close() error {
	return c.client.Close()
}

func checkpointKey(id ledger.CustomerID) string {
	return "ledger:checkpoint:" + string(id)
}

func (c *RedisCheckpointCache) Get(ctx context.Context, id ledger.CustomerID) (*ledger.Checkpoint, bool, error) {
	val, err := c.client.Get(ctx, checkpointKey(id)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var cp ledger.Checkpoint
	if err := json.Unmarshal([]byte(val), &cp); err != nil {
		return nil, false, err
	}
	cp.Rehydrate()
	return &cp, true, nil
}

func (c *RedisCheckpointCache) Set(ctx context.Context, cp ledger.Checkpoint, ttl time.Duration) error {
	payload, err := json.Marshal(cp)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, checkpointKey(cp.CustomerID), payload, ttl).Err()
}

func (c *RedisCheckpointCache) Delete(ctx context.Context, id ledger.CustomerID) error {
	return c.client.Del(ctx, checkpointKey(id)).Err()
}
