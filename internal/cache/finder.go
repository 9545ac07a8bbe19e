package cache

import (
	"context"
	"errors"
	"time"

	"github.com/Lucasvitorkkx/UTM/internal"
	"github.com/rs/zerolog/log"
)

// DefaultTTL applies when NewFinder is given a non-positive ttl.
const DefaultTTL = 10 * time.Minute

type LinkCache interface {
	Get(ctx context.Context, slug string) (*internal.Link, error)
	Set(ctx context.Context, link *internal.Link, ttl time.Duration) error
}

type LinkStore interface {
	GetBySlug(ctx context.Context, slug string) (*internal.Link, error)
}

// Finder reads through the cache to the store. A broken cache degrades to
// store lookups. Missing slugs are not cached, so a link created after a miss
// resolves immediately.
type Finder struct {
	cache LinkCache
	store LinkStore
	ttl   time.Duration
}

func NewFinder(cache LinkCache, store LinkStore, ttl time.Duration) *Finder {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Finder{cache: cache, store: store, ttl: ttl}
}

func (f *Finder) GetBySlug(ctx context.Context, slug string) (*internal.Link, error) {
	link, err := f.cache.Get(ctx, slug)
	if err == nil {
		return link, nil
	}
	if !errors.Is(err, ErrMiss) {
		log.Warn().Err(err).Str("slug", slug).Msg("link cache read failed")
	}

	link, err = f.store.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if err := f.cache.Set(ctx, link, f.ttl); err != nil {
		log.Warn().Err(err).Str("slug", slug).Msg("failed to warm up link cache")
	}
	return link, nil
}
