package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/reserve_stock.lua
var reserveStockScript string

//go:embed scripts/release_stock.lua
var releaseStockScript string

//go:embed scripts/fulfill_stock.lua
var fulfillStockScript string

type Client struct {
	rdb           *redis.Client
	reserveScript *redis.Script
	releaseScript *redis.Script
	fulfillScript *redis.Script
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
		reserveScript: redis.NewScript(reserveStockScript),
		releaseScript: redis.NewScript(releaseStockScript),
		fulfillScript: redis.NewScript(fulfillStockScript),
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

func stockKey(warehouseID, productID int64, variant string) string {
	return fmt.Sprintf("stock:%d:%d:%s", warehouseID, productID, variant)
}

// ReserveStock atomically reserves stock using a Lua script.
// Returns true if reservation succeeded, false on insufficient stock.
func (c *Client) ReserveStock(ctx context.Context, warehouseID, productID int64, variant string, qty float64) (bool, error) {
	key := stockKey(warehouseID, productID, variant)

	result, err := c.reserveScript.Run(ctx, c.rdb, []string{key}, qty).Result()
	if err != nil {
		return false, fmt.Errorf("reserve stock script failed: %w", err)
	}

	success, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected script result type")
	}

	return success == 1, nil
}

// ReleaseStock atomically releases reserved stock (compensation)
func (c *Client) ReleaseStock(ctx context.Context, warehouseID, productID int64, variant string, qty float64) error {
	key := stockKey(warehouseID, productID, variant)

	if _, err := c.releaseScript.Run(ctx, c.rdb, []string{key}, qty).Result(); err != nil {
		return fmt.Errorf("release stock script failed: %w", err)
	}
	return nil
}

// FulfillStock atomically converts a reservation into a deduction
func (c *Client) FulfillStock(ctx context.Context, warehouseID, productID int64, variant string, qty float64) error {
	key := stockKey(warehouseID, productID, variant)

	if _, err := c.fulfillScript.Run(ctx, c.rdb, []string{key}, qty).Result(); err != nil {
		return fmt.Errorf("fulfill stock script failed: %w", err)
	}
	return nil
}

// AddStock increases availability (incoming cylinders)
func (c *Client) AddStock(ctx context.Context, warehouseID, productID int64, variant string, qty float64) error {
	key := stockKey(warehouseID, productID, variant)
	return c.rdb.HIncrByFloat(ctx, key, "available", qty).Err()
}

// InitStock initializes stock counters for one row
func (c *Client) InitStock(ctx context.Context, warehouseID, productID int64, variant string, available, reserved float64) error {
	key := stockKey(warehouseID, productID, variant)

	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, key, "available", available)
	pipe.HSet(ctx, key, "reserved", reserved)

	_, err := pipe.Exec(ctx)
	return err
}

// GetStock retrieves current stock counters
func (c *Client) GetStock(ctx context.Context, warehouseID, productID int64, variant string) (available, reserved float64, err error) {
	key := stockKey(warehouseID, productID, variant)

	result, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}

	if len(result) == 0 {
		return 0, 0, fmt.Errorf("stock not found for %s", key)
	}

	fmt.Sscanf(result["available"], "%f", &available)
	fmt.Sscanf(result["reserved"], "%f", &reserved)
	return available, reserved, nil
}

// BeginIdempotent atomically marks an idempotency key as in flight.
// A single SETNX closes the check-then-set race: only one concurrent
// request per key can observe true.
func (c *Client) BeginIdempotent(ctx context.Context, keyHash string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("idempotency:%s", keyHash), "1", ttl).Result()
}

// ClearIdempotent removes an in-flight marker so a failed request can
// be retried.
func (c *Client) ClearIdempotent(ctx context.Context, keyHash string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("idempotency:%s", keyHash)).Err()
}
