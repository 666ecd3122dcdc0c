package ostack

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// DefaultExpiryMargin is how long before expiry a cached token stops being reused.
const DefaultExpiryMargin = 5 * time.Minute

type cachedAuth struct {
	token   Token
	catalog *Catalog
}

// TokenCache keeps one token and catalog per credential set. Concurrent misses
// for the same credentials share a single authentication.
type TokenCache struct {
	items  *gocache.Cache
	group  singleflight.Group
	margin time.Duration
}

func NewTokenCache(margin time.Duration) *TokenCache {
	if margin <= 0 {
		margin = DefaultExpiryMargin
	}
	return &TokenCache{
		items:  gocache.New(gocache.NoExpiration, time.Minute),
		margin: margin,
	}
}

type fetchFunc func(ctx context.Context) (Token, *Catalog, error)

// Fetch returns the cached token for opts, or calls fetch once per key and
// caches its result until margin before expiry. hit reports a cache hit.
// Cancelling ctx releases only this caller; a fetch in flight keeps running for
// the other callers waiting on the same credentials.
func (c *TokenCache) Fetch(ctx context.Context, opts Options, now time.Time, fetch fetchFunc) (tok Token, catalog *Catalog, hit bool, err error) {
	key := credentialKey(opts)
	if e, ok := c.get(key, now); ok {
		return e.token, e.catalog, true, nil
	}
	// the shared fetch outlives any single caller; the transport timeout bounds it
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		if e, ok := c.get(key, now); ok {
			return e, nil
		}
		t, cat, err := fetch(shared)
		if err != nil {
			return nil, err
		}
		e := cachedAuth{token: t, catalog: cat}
		if ttl := t.TTL(now) - c.margin; ttl > 0 {
			c.items.Set(key, e, ttl)
		}
		return e, nil
	})
	select {
	case <-ctx.Done():
		return Token{}, nil, false, &AuthError{URL: opts.AuthURL, Err: ctx.Err()}
	case r := <-ch:
		if r.Err != nil {
			return Token{}, nil, false, r.Err
		}
		e := r.Val.(cachedAuth)
		return e.token, e.catalog, false, nil
	}
}

// Forget drops the cached token for opts.
func (c *TokenCache) Forget(opts Options) {
	c.items.Delete(credentialKey(opts))
}

func (c *TokenCache) Len() int { return c.items.ItemCount() }

func (c *TokenCache) get(key string, now time.Time) (cachedAuth, bool) {
	v, ok := c.items.Get(key)
	if !ok {
		return cachedAuth{}, false
	}
	e := v.(cachedAuth)
	if !e.token.Valid(now.Add(c.margin)) {
		return cachedAuth{}, false
	}
	return e, true
}

func credentialKey(opts Options) string {
	parts := []string{
		strconv.Itoa(opts.identityVersion()),
		opts.AuthURL,
		opts.Username,
		opts.Password,
		opts.TenantID,
		opts.TenantName,
		opts.domain(),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}
