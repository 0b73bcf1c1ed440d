// Package security provides the credential/token caching used by the
// scheduler channel to attach "Authorization: Bearer <token>" headers
// without re-authenticating on every outbound call.
package security

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// refreshThreshold is the remaining-lifetime cutoff below which a cached
// token is considered stale and must be refreshed before use.
const refreshThreshold = 5 * time.Minute

// Token is a credential token with its absolute expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Expired reports whether the token has less than refreshThreshold left,
// as of now.
func (t Token) Expired(now time.Time) bool {
	return t.ExpiresAt.Sub(now) < refreshThreshold
}

// CredentialProvider acquires a token for a set of scopes. Implementations
// are expected to do their own network I/O; TokenCache only decides when
// to call GetToken again.
type CredentialProvider interface {
	GetToken(ctx context.Context, scopes []string) (Token, error)
}

// NoneCredentialProvider is the `Authentication=None` test/local path: it
// never calls out and always returns an empty token valid for 24 hours, mirroring
// the teacher's insecure.NewCredentials() bootstrap for unauthenticated
// connections.
type NoneCredentialProvider struct{}

func (NoneCredentialProvider) GetToken(_ context.Context, _ []string) (Token, error) {
	return Token{ExpiresAt: time.Now().Add(24 * time.Hour)}, nil
}

// StaticTokenCredentialProvider always returns a fixed token value; used in
// tests and for credential modes this process does not implement end to end.
type StaticTokenCredentialProvider struct {
	Value string
	TTL   time.Duration
}

func (p StaticTokenCredentialProvider) GetToken(_ context.Context, _ []string) (Token, error) {
	ttl := p.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return Token{Value: p.Value, ExpiresAt: time.Now().Add(ttl)}, nil
}

type cacheKey string

func scopeKey(scopes []string) cacheKey {
	return cacheKey(strings.Join(scopes, ","))
}

type cacheEntry struct {
	mu    sync.Mutex // serializes refresh for this one scope set
	token Token
}

// TokenCache caches tokens per (credential, scopes), refreshing under a
// per-scope lock when the cached token's remaining lifetime drops below
// refreshThreshold. Distinct scope sets refresh independently and never
// block each other.
type TokenCache struct {
	provider CredentialProvider

	mu      sync.Mutex // guards entries map structure only
	entries map[cacheKey]*cacheEntry
}

// NewTokenCache builds a cache around provider. provider must be non-nil.
func NewTokenCache(provider CredentialProvider) *TokenCache {
	return &TokenCache{
		provider: provider,
		entries:  make(map[cacheKey]*cacheEntry),
	}
}

// GetToken returns a fresh token for scopes, refreshing via the underlying
// CredentialProvider if the cached value (if any) is stale. Concurrent
// callers for the same scopes compare-and-swap on a per-scope mutex so at
// most one refresh is in flight per scope set at a time; callers for
// different scope sets never contend.
func (c *TokenCache) GetToken(ctx context.Context, scopes []string) (Token, error) {
	if c.provider == nil {
		return Token{}, fmt.Errorf("security: token cache has no credential provider configured")
	}

	key := scopeKey(scopes)

	c.mu.Lock()
	entry, ok := c.entries[key]
	if !ok {
		entry = &cacheEntry{}
		c.entries[key] = entry
	}
	c.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.token.Value != "" && !entry.token.Expired(time.Now()) {
		return entry.token, nil
	}

	tok, err := c.provider.GetToken(ctx, scopes)
	if err != nil {
		return Token{}, fmt.Errorf("security: token refresh failed: %w", err)
	}
	entry.token = tok
	return tok, nil
}
