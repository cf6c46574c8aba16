package protocol

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Default cache settings.
const (
	DefaultCacheSize = 256
	DefaultCacheTTL  = 5 * time.Minute
)

// CachingTransport serves repeated requests from an expiring LRU cache.
// Only successful responses are cached.
//
// Thread-safety: safe for concurrent use; expirable.LRU is synchronized.
type CachingTransport struct {
	next  Transport
	cache *expirable.LRU[string, *Response]
}

// NewCachingTransport wraps next. A size <= 0 or ttl <= 0 selects the
// default.
func NewCachingTransport(next Transport, size int, ttl time.Duration) *CachingTransport {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachingTransport{
		next:  next,
		cache: expirable.NewLRU[string, *Response](size, nil, ttl),
	}
}

func cacheKey(location, query string, opts Options) string {
	return strings.Join([]string{location, opts.accept(), opts.Authentication, query}, "\x00")
}

// Get implements Transport.
func (c *CachingTransport) Get(ctx context.Context, location, query string, opts Options) (*Response, error) {
	key := cacheKey(location, query, opts)
	if resp, ok := c.cache.Get(key); ok {
		return resp, nil
	}
	resp, err := c.next.Get(ctx, location, query, opts)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, resp)
	return resp, nil
}

// Purge drops every cached response.
func (c *CachingTransport) Purge() {
	c.cache.Purge()
}

// Len returns the number of cached responses.
func (c *CachingTransport) Len() int {
	return c.cache.Len()
}
