package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Cache defines the interface for cache backends. Values are opaque bytes;
// GetJSON and SetJSON cover the common encode/decode step.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Clear(ctx context.Context)
}

// GetJSON decodes the cached value at key into a T. A miss or an
// undecodable value reports false.
func GetJSON[T any](ctx context.Context, c Cache, key string) (T, bool) {
	var out T
	if c == nil {
		return out, false
	}

	data, ok := c.Get(ctx, key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, false
	}
	return out, true
}

// SetJSON encodes value and stores it for ttl (the backend default when ttl is 0).
func SetJSON(ctx context.Context, c Cache, key string, value interface{}, ttl time.Duration) error {
	if c == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		c.Set(ctx, key, data)
		return nil
	}
	c.SetWithTTL(ctx, key, data, ttl)
	return nil
}
