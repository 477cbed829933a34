// Package redis backs the query cache with a shared Redis instance so every
// replica sees the same availability answers.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"hotelres/internal/app/middleware"
)

const defaultPrefix = "hotelres:q:"

type Cache struct {
	client *goredis.Client
	prefix string
}

type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// New connects and pings Redis; a failed ping closes the client.
func New(ctx context.Context, opts Options) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return NewWithClient(client, opts.Prefix), nil
}

func NewWithClient(client *goredis.Client, prefix string) *Cache {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Cache{client: client, prefix: prefix}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}

var _ middleware.Cache = (*Cache)(nil)
