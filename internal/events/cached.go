package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jbaudry/chronotrace/internal/cache"
)

// CachedProvider wraps a Provider with a response cache. Clinical corpora
// are stable between tuning runs, so re-classifying identical text is pure
// waste for remote providers.
type CachedProvider struct {
	inner Provider
	store cache.Cache
	ttl   time.Duration
}

// NewCachedProvider wraps the inner provider with the given cache
func NewCachedProvider(inner Provider, store cache.Cache, ttl time.Duration) *CachedProvider {
	return &CachedProvider{inner: inner, store: store, ttl: ttl}
}

// Name returns the inner provider name
func (p *CachedProvider) Name() string {
	return p.inner.Name()
}

// ExtractEvents serves from cache when the same provider saw the same text
// with the same type set; otherwise delegates and stores the response.
// Errors are never cached.
func (p *CachedProvider) ExtractEvents(ctx context.Context, req Request) (*Response, error) {
	key := cache.Key(p.inner.Name(), string(typeFingerprint(req)), req.Text)

	if data, found := p.store.Get(key); found {
		var resp Response
		if err := json.Unmarshal(data, &resp); err == nil {
			return &resp, nil
		}
		// corrupt entry: fall through to the provider
		_ = p.store.Delete(key)
	}

	resp, err := p.inner.ExtractEvents(ctx, req)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(resp); err == nil {
		_ = p.store.Set(key, data, p.ttl)
	}
	return resp, nil
}

// typeFingerprint makes the requested type set part of the cache key
func typeFingerprint(req Request) []byte {
	var b []byte
	for _, t := range req.EventTypes {
		b = append(b, t...)
		b = append(b, '|')
	}
	return b
}
