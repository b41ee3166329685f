package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// StatusCache absorbs aggressive UI polling of the payment-status endpoint.
// Entries are short-lived; the store stays the source of truth.
type StatusCache struct {
	c   *Client
	ttl time.Duration
}

func NewStatusCache(c *Client, ttl time.Duration) *StatusCache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &StatusCache{c: c, ttl: ttl}
}

func statusKey(requestID string) string { return "spotlight:status:" + requestID }

func (sc *StatusCache) Get(ctx context.Context, requestID string, dst interface{}) (bool, error) {
	raw, err := sc.c.Get(ctx, statusKey(requestID))
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, err
	}
	return true, nil
}

func (sc *StatusCache) Put(ctx context.Context, requestID string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return sc.c.Set(ctx, statusKey(requestID), raw, sc.ttl)
}

// Invalidate drops the cached view after a state-changing action.
func (sc *StatusCache) Invalidate(ctx context.Context, requestID string) error {
	return sc.c.Del(ctx, statusKey(requestID))
}
