package match

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL bounds how long a ranked page may be served without
// recomputation. Candidate-side staleness inside this window is tolerated.
const DefaultCacheTTL = 30 * time.Second

// Cache is a short-lived Redis cache for match results, keyed by requester
// plus a fingerprint of the request parameters. All Redis failures fail
// open: the engine recomputes and the error is only logged.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache creates a match result cache with the given TTL.
func NewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the cached result for the request, or false on a miss.
func (c *Cache) Get(ctx context.Context, req Request) (*Result, bool) {
	data, err := c.client.Get(ctx, resultKey(req)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("match cache read failed", "error", err)
		}
		return nil, false
	}

	var res Result
	if err := cbor.Unmarshal(data, &res); err != nil {
		c.logger.Warn("match cache payload corrupt", "error", err)
		return nil, false
	}
	return &res, true
}

// Set stores the result and tracks the key in the requester's key set so
// requester-side writes can invalidate every cached page at once.
func (c *Cache) Set(ctx context.Context, req Request, res *Result) {
	data, err := cbor.Marshal(res)
	if err != nil {
		c.logger.Warn("match cache encode failed", "error", err)
		return
	}

	key := resultKey(req)
	pipe := c.client.Pipeline()
	pipe.Set(ctx, key, data, c.ttl)
	pipe.SAdd(ctx, requesterKeysKey(req.RequesterID), key)
	pipe.Expire(ctx, requesterKeysKey(req.RequesterID), 2*c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("match cache write failed", "error", err)
	}
}

// InvalidateRequester drops every cached result for one requester. Called
// after requester-side writes (profile update, new block, new decision).
func (c *Cache) InvalidateRequester(ctx context.Context, requesterID string) error {
	setKey := requesterKeysKey(requesterID)
	keys, err := c.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return fmt.Errorf("failed to list cache keys: %w", err)
	}
	keys = append(keys, setKey)
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache keys: %w", err)
	}
	return nil
}

// resultKey builds the Redis key for one request: requester ID plus an FNV
// fingerprint of every parameter that changes the ranked page.
func resultKey(req Request) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%d|%d|%d|%d|%g|%t|%t",
		req.Preset,
		req.Limit,
		req.Offset,
		req.Filters.MinAge,
		req.Filters.MaxAge,
		req.Filters.MaxDistanceKm,
		req.Filters.OnlineOnly,
		req.Filters.NewUsersOnly,
	)
	return fmt.Sprintf("match:result:%s:%x", req.RequesterID, h.Sum64())
}

func requesterKeysKey(requesterID string) string {
	return "match:keys:" + requesterID
}
