package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/squad-optimizer/internal/optimizer"
)

// Key prefixes.
const (
	ComparisonPrefix  = "comparison"
	FormationPrefix   = "formation"
	EnumerationPrefix = "enumeration"
)

var ErrCacheMiss = errors.New("cache miss")

// ResultCache keeps solved comparisons and enumeration results in redis,
// keyed by a hash of the request that produced them.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Entry
}

// NewRedisClient parses a redis:// URL and checks the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func NewResultCache(client *redis.Client, ttl time.Duration, logger *logrus.Entry) *ResultCache {
	return &ResultCache{client: client, ttl: ttl, logger: logger}
}

// Key hashes any JSON-encodable request into a cache key under prefix.
func Key(prefix string, request interface{}) (string, error) {
	data, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to encode cache key: %w", err)
	}
	sum := md5.Sum(data)
	return prefix + ":" + hex.EncodeToString(sum[:]), nil
}

func (c *ResultCache) set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cached value: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	c.logger.WithFields(logrus.Fields{
		"cache_key":  key,
		"expiration": c.ttl,
	}).Debug("Cached result")
	return nil
}

func (c *ResultCache) get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("failed to read cache: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	c.logger.WithField("cache_key", key).Debug("Cache hit")
	return nil
}

func (c *ResultCache) SetComparison(ctx context.Context, key string, cmp *optimizer.Comparison) error {
	return c.set(ctx, key, cmp)
}

func (c *ResultCache) GetComparison(ctx context.Context, key string) (*optimizer.Comparison, error) {
	var cmp optimizer.Comparison
	if err := c.get(ctx, key, &cmp); err != nil {
		return nil, err
	}
	return &cmp, nil
}

func (c *ResultCache) SetGroups(ctx context.Context, key string, groups []optimizer.Group) error {
	return c.set(ctx, key, groups)
}

func (c *ResultCache) GetGroups(ctx context.Context, key string) ([]optimizer.Group, error) {
	var groups []optimizer.Group
	if err := c.get(ctx, key, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (c *ResultCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// Ping reports whether redis is reachable.
func (c *ResultCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
