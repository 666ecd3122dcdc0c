package ostack

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFetch struct {
	calls int
	tok   Token
	err   error
}

func (f *countingFetch) fetch(context.Context) (Token, *Catalog, error) {
	f.calls++
	if f.err != nil {
		return Token{}, nil, f.err
	}
	return f.tok, sampleCatalog(), nil
}

func TestTokenCache_HitAndMiss(t *testing.T) {
	now := time.Now()
	c := NewTokenCache(DefaultExpiryMargin)
	f := &countingFetch{tok: Token{ID: "foo", ExpiresAt: now.Add(time.Hour)}}

	tok, catalog, hit, err := c.Fetch(context.Background(), testOptions(), now, f.fetch)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "foo", tok.ID)
	assert.Equal(t, sampleCatalog().Len(), catalog.Len())

	_, _, hit, err = c.Fetch(context.Background(), testOptions(), now.Add(time.Minute), f.fetch)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, f.calls)
	assert.Equal(t, 1, c.Len())

	other := testOptions()
	other.Password = "different"
	_, _, hit, err = c.Fetch(context.Background(), other, now, f.fetch)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, f.calls)
}

func TestTokenCache_StopsReusingWithinMargin(t *testing.T) {
	now := time.Now()
	c := NewTokenCache(10 * time.Minute)
	f := &countingFetch{tok: Token{ID: "foo", ExpiresAt: now.Add(time.Hour)}}

	_, _, _, err := c.Fetch(context.Background(), testOptions(), now, f.fetch)
	require.NoError(t, err)

	_, _, hit, err := c.Fetch(context.Background(), testOptions(), now.Add(55*time.Minute), f.fetch)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, f.calls)
}

func TestTokenCache_ShortLivedTokensAreNotStored(t *testing.T) {
	now := time.Now()
	c := NewTokenCache(DefaultExpiryMargin)
	f := &countingFetch{tok: Token{ID: "foo", ExpiresAt: now.Add(time.Minute)}}

	_, _, _, err := c.Fetch(context.Background(), testOptions(), now, f.fetch)
	require.NoError(t, err)
	assert.Zero(t, c.Len())
}

func TestTokenCache_ErrorsAreNotCached(t *testing.T) {
	c := NewTokenCache(0)
	f := &countingFetch{err: errors.New("boom")}

	for i := 0; i < 2; i++ {
		_, _, _, err := c.Fetch(context.Background(), testOptions(), time.Now(), f.fetch)
		assert.EqualError(t, err, "boom")
	}
	assert.Equal(t, 2, f.calls)
	assert.Zero(t, c.Len())
}

func TestTokenCache_Forget(t *testing.T) {
	now := time.Now()
	c := NewTokenCache(DefaultExpiryMargin)
	f := &countingFetch{tok: Token{ID: "foo", ExpiresAt: now.Add(time.Hour)}}

	_, _, _, err := c.Fetch(context.Background(), testOptions(), now, f.fetch)
	require.NoError(t, err)
	c.Forget(testOptions())
	assert.Zero(t, c.Len())

	_, _, hit, err := c.Fetch(context.Background(), testOptions(), now, f.fetch)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, f.calls)
}

func TestTokenCache_ContextCancelled(t *testing.T) {
	c := NewTokenCache(DefaultExpiryMargin)
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, _, err := c.Fetch(ctx, testOptions(), time.Now(), func(context.Context) (Token, *Catalog, error) {
		<-release
		return Token{}, nil, errors.New("released")
	})

	var aerr *AuthError
	require.ErrorAs(t, err, &aerr)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "4", aerr.URL)
}

func TestCredentialKey(t *testing.T) {
	a := testOptions()
	b := testOptions()
	b.Region = "elsewhere"
	assert.Equal(t, credentialKey(a), credentialKey(b))

	b.IdentityVersion = IdentityV3
	assert.NotEqual(t, credentialKey(a), credentialKey(b))
}

func TestTokenCache_CancelledCallerDoesNotFailOthers(t *testing.T) {
	c := NewTokenCache(DefaultExpiryMargin)
	now := time.Now()
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	fetch := func(ctx context.Context) (Token, *Catalog, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		if err := ctx.Err(); err != nil {
			return Token{}, nil, err
		}
		return Token{ID: "foo", ExpiresAt: now.Add(time.Hour)}, sampleCatalog(), nil
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, _, err := c.Fetch(firstCtx, testOptions(), now, fetch)
		firstErr <- err
	}()
	<-started

	type result struct {
		tok Token
		err error
	}
	second := make(chan result, 1)
	go func() {
		tok, _, _, err := c.Fetch(context.Background(), testOptions(), now, fetch)
		second <- result{tok, err}
	}()

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	time.Sleep(20 * time.Millisecond)
	close(release)

	r := <-second
	require.NoError(t, r.err)
	assert.Equal(t, "foo", r.tok.ID)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, c.Len())
}
