package redisclient

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"pawnshop-service/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

//go:embed scripts/release_lock.lua
var releaseLockScript string

//go:embed scripts/extend_lock.lua
var extendLockScript string

type Client struct {
	rdb           *redis.Client
	releaseScript *redis.Script
	extendScript  *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:           rdb,
		releaseScript: redis.NewScript(releaseLockScript),
		extendScript:  redis.NewScript(extendLockScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// PricingKey is the cache key of a pricing lookup
func PricingKey(query string, category models.Category) string {
	q := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	return fmt.Sprintf("pricing:%s:%s", strings.ToLower(string(category)), q)
}

// GetPricing returns a cached pricing result; ok is false on a miss
func (c *Client) GetPricing(ctx context.Context, query string, category models.Category) (models.PricingResult, bool, error) {
	raw, err := c.rdb.Get(ctx, PricingKey(query, category)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.PricingResult{}, false, nil
	}
	if err != nil {
		return models.PricingResult{}, false, fmt.Errorf("pricing cache get failed: %w", err)
	}

	var result models.PricingResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return models.PricingResult{}, false, fmt.Errorf("pricing cache decode failed: %w", err)
	}
	return result, true, nil
}

// SetPricing caches a pricing result with TTL
func (c *Client) SetPricing(ctx context.Context, query string, category models.Category, result models.PricingResult, ttl time.Duration) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("pricing cache encode failed: %w", err)
	}
	return c.rdb.Set(ctx, PricingKey(query, category), raw, ttl).Err()
}

// MarkNotified records that the alert armed at armedAt has notified. It
// returns false when that arming was already recorded.
func (c *Client) MarkNotified(ctx context.Context, alertID string, armedAt time.Time, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("notified:%s:%d", alertID, armedAt.UnixNano())
	return c.rdb.SetNX(ctx, key, "1", ttl).Result()
}

// AcquireLock takes a distributed lock and returns the owner token needed
// to release it. ok is false when another owner holds the lock.
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (token string, ok bool, err error) {
	token = uuid.NewString()
	ok, err = c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire lock failed: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// ExtendLock pushes the lock expiry out while token still owns it
func (c *Client) ExtendLock(ctx context.Context, lockKey, token string, ttl time.Duration) (bool, error) {
	res, err := c.extendScript.Run(ctx, c.rdb, []string{fmt.Sprintf("lock:%s", lockKey)}, token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("extend lock script failed: %w", err)
	}
	return res == 1, nil
}

// ReleaseLock deletes the lock only if token still owns it
func (c *Client) ReleaseLock(ctx context.Context, lockKey, token string) error {
	_, err := c.releaseScript.Run(ctx, c.rdb, []string{fmt.Sprintf("lock:%s", lockKey)}, token).Result()
	if err != nil {
		return fmt.Errorf("release lock script failed: %w", err)
	}
	return nil
}
