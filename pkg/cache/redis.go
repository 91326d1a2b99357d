package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/zen-systems/unigate/pkg/schema"
)

const redisKeyPrefix = "unigate:response:"

// RedisStore keeps unified responses in Redis so multiple gateway
// instances share one cache. Expiry is native; Sweep is a no-op.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// Get fetches and decodes a cached response.
func (s *RedisStore) Get(ctx context.Context, key string) (*schema.UnifiedResponse, bool) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("[cache] redis get failed: %v", err)
		return nil, false
	}

	var resp schema.UnifiedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		log.Printf("[cache] corrupt redis entry %s: %v", key, err)
		s.client.Del(ctx, redisKeyPrefix+key)
		return nil, false
	}
	return &resp, true
}

// Put stores a response with Redis-managed expiry.
func (s *RedisStore) Put(ctx context.Context, key string, resp *schema.UnifiedResponse, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		log.Printf("[cache] marshal failed: %v", err)
		return
	}
	if err := s.client.Set(ctx, redisKeyPrefix+key, raw, ttl).Err(); err != nil {
		log.Printf("[cache] redis set failed: %v", err)
	}
}

// Sweep is a no-op; Redis expires keys itself.
func (s *RedisStore) Sweep(context.Context) {}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
