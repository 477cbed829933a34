package middleware

import (
	"context"
	"log/slog"
	"time"

	"hotelres/internal/app/queries"
)

// Cache stores encoded query results for a short time.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// QueryCache answers queries.Cacheable queries from cache. Cache failures degrade
// to a direct read and are never returned to the caller.
func QueryCache(cache Cache, ttl time.Duration, codec ResultCodec, logger *slog.Logger) QueryMiddleware {
	if cache == nil || ttl <= 0 {
		return nil
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			cq, ok := q.(queries.Cacheable)
			if !ok || cq.CacheKey() == "" {
				return nextFn(ctx, q)
			}
			key := "q:" + q.Key() + ":" + cq.CacheKey()
			if data, found, err := cache.Get(ctx, key); err == nil && found {
				proto := cq.ResultPrototype()
				if proto != nil && codec.Decode(data, proto) == nil {
					return normalizePrototype(proto), nil
				}
			} else if err != nil && logger != nil {
				logger.Warn("query cache read failed", "query", q.Key(), "error", err)
			}
			res, err := nextFn(ctx, q)
			if err != nil {
				return nil, err
			}
			if data, encErr := codec.Encode(res); encErr == nil {
				if setErr := cache.Set(ctx, key, data, ttl); setErr != nil && logger != nil {
					logger.Warn("query cache write failed", "query", q.Key(), "error", setErr)
				}
			}
			return res, nil
		})
	}
}
