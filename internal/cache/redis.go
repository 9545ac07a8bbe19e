// Package cache keeps hot links in Redis so redirects skip the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Lucasvitorkkx/UTM/internal"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "link:"

// ErrMiss is returned by Get when the slug is not cached.
var ErrMiss = errors.New("cache miss")

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

type Redis struct {
	rdb *redis.Client
}

// Connect dials Redis and pings it once.
func Connect(ctx context.Context, opts RedisOptions) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}

	return &Redis{rdb: rdb}, nil
}

func (c *Redis) Get(ctx context.Context, slug string) (*internal.Link, error) {
	data, err := c.rdb.Get(ctx, key(slug)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	return decode(data)
}

func (c *Redis) Set(ctx context.Context, link *internal.Link, ttl time.Duration) error {
	data, err := encode(link)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key(link.Slug), data, ttl).Err()
}

func (c *Redis) Delete(ctx context.Context, slug string) error {
	return c.rdb.Del(ctx, key(slug)).Err()
}

func (c *Redis) Close() error {
	return c.rdb.Close()
}

func key(slug string) string {
	return keyPrefix + slug
}

// cachedLink is the JSON shape stored under each key.
type cachedLink struct {
	ID             string       `json:"id"`
	ProjectID      string       `json:"projectId"`
	Slug           string       `json:"slug"`
	DestinationURL string       `json:"destinationUrl"`
	UTM            internal.UTM `json:"utm"`
	CreatedAt      time.Time    `json:"createdAt"`
}

func encode(link *internal.Link) ([]byte, error) {
	return json.Marshal(cachedLink{
		ID:             link.ID,
		ProjectID:      link.ProjectID,
		Slug:           link.Slug,
		DestinationURL: link.DestinationURL,
		UTM:            link.UTM,
		CreatedAt:      link.CreatedAt,
	})
}

func decode(data []byte) (*internal.Link, error) {
	var c cachedLink
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode cached link: %w", err)
	}
	return &internal.Link{
		ID:             c.ID,
		ProjectID:      c.ProjectID,
		Slug:           c.Slug,
		DestinationURL: c.DestinationURL,
		UTM:            c.UTM,
		CreatedAt:      c.CreatedAt,
	}, nil
}
