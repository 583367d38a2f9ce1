package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gigmarket/internal/domain/listing"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "listing:"

// ListingCache keeps serialized listings (owner included) in redis.
type ListingCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewListingCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*ListingCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &ListingCache{client: client, ttl: ttl}, nil
}

// Get returns nil, nil on a cache miss.
func (c *ListingCache) Get(ctx context.Context, id int64) (*listing.Listing, error) {
	data, err := c.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var l listing.Listing
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (c *ListingCache) Set(ctx context.Context, l *listing.Listing) error {
	data, err := json.Marshal(l)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key(l.ID), data, c.ttl).Err()
}

func (c *ListingCache) Delete(ctx context.Context, id int64) error {
	return c.client.Del(ctx, key(id)).Err()
}

func (c *ListingCache) Close() error {
	return c.client.Close()
}

func key(id int64) string {
	return keyPrefix + strconv.FormatInt(id, 10)
}
