package security

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	calls int32
	ttl   time.Duration
}

func (p *countingProvider) GetToken(_ context.Context, scopes []string) (Token, error) {
	atomic.AddInt32(&p.calls, 1)
	ttl := p.ttl
	if ttl == 0 {
		ttl = time.Hour
	}
	return Token{Value: "tok", ExpiresAt: time.Now().Add(ttl)}, nil
}

func TestGetTokenCachesWithinLifetime(t *testing.T) {
	p := &countingProvider{}
	c := NewTokenCache(p)

	_, err := c.GetToken(context.Background(), []string{"a"})
	require.NoError(t, err)
	_, err = c.GetToken(context.Background(), []string{"a"})
	require.NoError(t, err)

	assert.EqualValues(t, 1, atomic.LoadInt32(&p.calls))
}

func TestGetTokenRefreshesWhenNearExpiry(t *testing.T) {
	p := &countingProvider{ttl: 1 * time.Minute} // below refreshThreshold
	c := NewTokenCache(p)

	_, err := c.GetToken(context.Background(), []string{"a"})
	require.NoError(t, err)
	_, err = c.GetToken(context.Background(), []string{"a"})
	require.NoError(t, err)

	assert.EqualValues(t, 2, atomic.LoadInt32(&p.calls))
}

func TestGetTokenIsolatesDistinctScopes(t *testing.T) {
	p := &countingProvider{}
	c := NewTokenCache(p)

	_, err := c.GetToken(context.Background(), []string{"a"})
	require.NoError(t, err)
	_, err = c.GetToken(context.Background(), []string{"b"})
	require.NoError(t, err)

	assert.EqualValues(t, 2, atomic.LoadInt32(&p.calls))
}

func TestGetTokenConcurrentSameScopeIsSerialized(t *testing.T) {
	p := &countingProvider{ttl: 1 * time.Minute}
	c := NewTokenCache(p)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.GetToken(context.Background(), []string{"a"})
		}()
	}
	wg.Wait()

	// With a 1-minute TTL every call is individually "stale" relative to
	// the 5-minute threshold, so refreshes do happen; the assertion here
	// is only that access is serialized per-scope and doesn't race/panic.
	assert.True(t, atomic.LoadInt32(&p.calls) > 0)
}

func TestNoneCredentialProviderTokenIsFresh(t *testing.T) {
	tok, err := NoneCredentialProvider{}.GetToken(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, tok.Expired(time.Now()))
}
