package redisclient

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/adjust_stock.lua
var adjustStockScript string

// Session is the profile cached against a bearer token
type Session struct {
	StaffID int64  `json:"staff_id"`
	Name    string `json:"name"`
	Role    string `json:"role"`
}

type Client struct {
	rdb          *redis.Client
	adjustScript *redis.Script
}

// NewClient creates a new Redis client with the stock script loaded
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
		rdb:          rdb,
		adjustScript: redis.NewScript(adjustStockScript),
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

func stockKey(productID int64) string {
	return fmt.Sprintf("stock:%d", productID)
}

// InitStock seeds the cached stock count for a product
func (c *Client) InitStock(ctx context.Context, productID int64, stock int) error {
	return c.rdb.Set(ctx, stockKey(productID), stock, 0).Err()
}

// GetStock retrieves the cached stock count. The bool is false when the key
// is absent and the caller should fall back to the database.
func (c *Client) GetStock(ctx context.Context, productID int64) (int, bool, error) {
	val, err := c.rdb.Get(ctx, stockKey(productID)).Int()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return val, true, nil
}

// AdjustStock atomically applies a signed adjustment (positive = consumed)
// with the result clamped at zero. Returns the new stock; ok is false when
// the key was absent.
func (c *Client) AdjustStock(ctx context.Context, productID int64, adjustment int) (int, bool, error) {
	result, err := c.adjustScript.Run(ctx, c.rdb, []string{stockKey(productID)}, adjustment).Result()
	if err != nil {
		return 0, false, fmt.Errorf("adjust stock script failed: %w", err)
	}

	newStock, ok := result.(int64)
	if !ok {
		return 0, false, fmt.Errorf("unexpected script result type")
	}
	if newStock < 0 {
		return 0, false, nil
	}
	return int(newStock), true, nil
}

// DeleteStock drops the cached stock count (product deleted)
func (c *Client) DeleteStock(ctx context.Context, productID int64) error {
	return c.rdb.Del(ctx, stockKey(productID)).Err()
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

// StoreSession stores the session payload for a bearer token with TTL
func (c *Client) StoreSession(ctx context.Context, token string, sess *Session, ttl time.Duration) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, sessionKey(token), payload, ttl).Err()
}

// GetSession resolves a bearer token. Returns nil when the token is unknown
// or expired.
func (c *Client) GetSession(ctx context.Context, token string) (*Session, error) {
	payload, err := c.rdb.Get(ctx, sessionKey(token)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("corrupt session payload: %w", err)
	}
	return &sess, nil
}

// DeleteSession revokes a bearer token
func (c *Client) DeleteSession(ctx context.Context, token string) error {
	return c.rdb.Del(ctx, sessionKey(token)).Err()
}
