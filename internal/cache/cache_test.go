package cache

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Lucasvitorkkx/UTM/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	mu      sync.Mutex
	links   map[string]*internal.Link
	ttls    map[string]time.Duration
	readErr error
	setErr  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{links: map[string]*internal.Link{}, ttls: map[string]time.Duration{}}
}

func (c *memoryCache) Get(_ context.Context, slug string) (*internal.Link, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return nil, c.readErr
	}
	link, ok := c.links[slug]
	if !ok {
		return nil, ErrMiss
	}
	return link, nil
}

func (c *memoryCache) Set(_ context.Context, link *internal.Link, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.links[link.Slug] = link
	c.ttls[link.Slug] = ttl
	return nil
}

type countingStore struct {
	links map[string]*internal.Link
	calls int
}

func (s *countingStore) GetBySlug(_ context.Context, slug string) (*internal.Link, error) {
	s.calls++
	if link, ok := s.links[slug]; ok {
		return link, nil
	}
	return nil, internal.ErrLinkNotFound
}

func newStore() *countingStore {
	return &countingStore{links: map[string]*internal.Link{
		"promo": {ID: "l1", Slug: "promo", DestinationURL: "https://example.com"},
	}}
}

func TestFinder_ReadsThrough(t *testing.T) {
	ctx := context.Background()
	cache, store := newMemoryCache(), newStore()
	finder := NewFinder(cache, store, time.Minute)

	for range 3 {
		link, err := finder.GetBySlug(ctx, "promo")
		require.NoError(t, err)
		assert.Equal(t, "l1", link.ID)
	}

	assert.Equal(t, 1, store.calls)
	assert.Equal(t, time.Minute, cache.ttls["promo"])
}

func TestFinder_DoesNotCacheMisses(t *testing.T) {
	ctx := context.Background()
	cache, store := newMemoryCache(), newStore()
	finder := NewFinder(cache, store, 0)

	_, err := finder.GetBySlug(ctx, "later")
	assert.ErrorIs(t, err, internal.ErrLinkNotFound)
	assert.Empty(t, cache.links)

	store.links["later"] = &internal.Link{ID: "l2", Slug: "later"}
	link, err := finder.GetBySlug(ctx, "later")
	require.NoError(t, err)
	assert.Equal(t, "l2", link.ID)
	assert.Equal(t, DefaultTTL, cache.ttls["later"])
}

func TestFinder_FallsBackWhenCacheIsDown(t *testing.T) {
	ctx := context.Background()
	cache, store := newMemoryCache(), newStore()
	cache.readErr = errors.New("dial tcp: connection refused")
	cache.setErr = cache.readErr
	finder := NewFinder(cache, store, time.Minute)

	link, err := finder.GetBySlug(ctx, "promo")
	require.NoError(t, err)
	assert.Equal(t, "l1", link.ID)

	_, err = finder.GetBySlug(ctx, "promo")
	require.NoError(t, err)
	assert.Equal(t, 2, store.calls)
}

func TestEncodeDecode(t *testing.T) {
	link := &internal.Link{
		ID:             "l1",
		ProjectID:      "p1",
		Slug:           "promo",
		DestinationURL: "https://example.com/?a=1",
		UTM:            internal.UTM{Source: "newsletter", Campaign: "spring"},
		CreatedAt:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := encode(link)
	require.NoError(t, err)

	got, err := decode(data)
	require.NoError(t, err)
	assert.Equal(t, link, got)

	_, err = decode([]byte("not json"))
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "link:promo", key("promo"))
}

func TestRedis_Live(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()

	rdb, err := Connect(ctx, RedisOptions{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })

	slug := "test-" + time.Now().Format("150405.000000")
	t.Cleanup(func() { rdb.Delete(ctx, slug) })

	_, err = rdb.Get(ctx, slug)
	assert.ErrorIs(t, err, ErrMiss)

	link := &internal.Link{ID: "l1", Slug: slug, DestinationURL: "https://example.com"}
	require.NoError(t, rdb.Set(ctx, link, time.Minute))

	got, err := rdb.Get(ctx, slug)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got.DestinationURL)
}
