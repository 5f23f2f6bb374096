package rdx

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a thin wrapper over the redis client used for the featured
// catalog cache and for order-event pub/sub. A nil *Cache is valid and
// disables caching, which keeps redis optional in tests.
type Cache struct {
	Conn *redis.Client
}

func New(addr string) *Cache {
	return &Cache{Conn: redis.NewClient(&redis.Options{Addr: addr})}
}

func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	if c == nil {
		return "", false
	}
	val, err := c.Conn.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("redis GET %s: %v", key, err)
		}
		return "", false
	}
	return val, true
}

func (c *Cache) Set(ctx context.Context, key, val string, ttl time.Duration) {
	if c == nil {
		return
	}
	if err := c.Conn.Set(ctx, key, val, ttl).Err(); err != nil {
		log.Printf("redis SET %s: %v", key, err)
	}
}

func (c *Cache) Del(ctx context.Context, keys ...string) {
	if c == nil {
		return
	}
	if err := c.Conn.Del(ctx, keys...).Err(); err != nil {
		log.Printf("redis DEL %v: %v", keys, err)
	}
}

func (c *Cache) Publish(ctx context.Context, channel string, payload []byte) error {
	if c == nil {
		return nil
	}
	return c.Conn.Publish(ctx, channel, payload).Err()
}

func (c *Cache) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	return c.Conn.Subscribe(ctx, channel)
}
