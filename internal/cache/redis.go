package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/Domenick1991/outdoorcamp/config"
	"github.com/Domenick1991/outdoorcamp/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client      *redis.Client
	productsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, productsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:      redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		productsTTL: productsTTL,
	}
}

// Client exposes the underlying connection for components sharing it, such
// as the rate limiter store.
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// ProductsVersion returns the current catalog version, 0 before the first
// invalidation.
func (c *RedisCache) ProductsVersion(ctx context.Context) (int64, error) {
	version, err := c.client.Get(ctx, productsVersionKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return version, err
}

// GetProducts returns the catalog cached under version, or nil on a cache
// miss.
func (c *RedisCache) GetProducts(ctx context.Context, version int64) ([]domain.Product, error) {
	data, err := c.client.Get(ctx, productsKey(version)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var products []domain.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *RedisCache) SetProducts(ctx context.Context, version int64, products []domain.Product) error {
	payload, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, productsKey(version), payload, c.productsTTL).Err()
}

// InvalidateProducts drops the cached catalog. Stock changes on every booking
// create and cancel, so the engine calls this after each commit.
// Bumping the version orphans any list still being written for the old one;
// orphaned keys expire with the products TTL.
func (c *RedisCache) InvalidateProducts(ctx context.Context) error {
	return c.client.Incr(ctx, productsVersionKey()).Err()
}

// IsProcessed reports whether eventID was already marked.
func (c *RedisCache) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	n, err := c.client.Exists(ctx, processedEventKey(eventID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkProcessed records eventID and reports whether it was seen for the
// first time.
func (c *RedisCache) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, processedEventKey(eventID), "1", ttl).Result()
}

func productsVersionKey() string {
	return "cache:products:version"
}

func productsKey(version int64) string {
	return "cache:products:v" + strconv.FormatInt(version, 10)
}

func processedEventKey(eventID string) string {
	return "dedup:event:" + eventID
}
