package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"applicant-intake/internal/common/logger"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// EmailCache keeps booking emails in Redis for a TTL. Concurrent misses for
// the same booking share one fetch.
type EmailCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	group  singleflight.Group
	log    logger.Logger
}

func NewEmailCache(client *redis.Client, prefix string, ttl time.Duration, log logger.Logger) *EmailCache {
	return &EmailCache{client: client, prefix: prefix, ttl: ttl, log: log}
}

func (c *EmailCache) key(bookingID string) string {
	return fmt.Sprintf("%s:booking-email:%s", c.prefix, bookingID)
}

// Get returns the cached email or calls fetch and caches its result. Redis
// errors are logged and treated as a miss.
func (c *EmailCache) Get(ctx context.Context, bookingID string, fetch func(ctx context.Context) (string, error)) (string, error) {
	email, err := c.client.Get(ctx, c.key(bookingID)).Result()
	switch {
	case err == nil && email != "":
		return email, nil
	case err != nil && !errors.Is(err, redis.Nil):
		c.log.Warn("email cache read failed", map[string]interface{}{"bookingId": bookingID, "error": err.Error()})
	}

	v, err, _ := c.group.Do(bookingID, func() (interface{}, error) {
		email, err := fetch(ctx)
		if err != nil {
			return "", err
		}
		if err := c.client.Set(ctx, c.key(bookingID), email, c.ttl).Err(); err != nil {
			c.log.Warn("email cache write failed", map[string]interface{}{"bookingId": bookingID, "error": err.Error()})
		}
		return email, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Forget drops the cached email for a booking.
func (c *EmailCache) Forget(ctx context.Context, bookingID string) error {
	return c.client.Del(ctx, c.key(bookingID)).Err()
}
