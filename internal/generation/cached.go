package generation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/cache"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/observability"
)

// DefaultCacheTTL is how long a cached answer stays valid.
const DefaultCacheTTL = 24 * time.Hour

// CachedGenerator serves repeated requests from a cache. Only successful,
// non-empty answers are stored. Cache failures are logged and never fail a
// request.
type CachedGenerator struct {
	next   Generator
	cache  cache.Client
	ttl    time.Duration
	logger *observability.Logger
}

// NewCachedGenerator wraps next with a response cache.
func NewCachedGenerator(next Generator, c cache.Client, ttl time.Duration, logger *observability.Logger) *CachedGenerator {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = observability.DefaultLogger()
	}
	return &CachedGenerator{next: next, cache: c, ttl: ttl, logger: logger}
}

// Generate returns the cached answer for req, or calls the wrapped generator
// and caches its answer.
func (g *CachedGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	key, err := RequestKey(req)
	if err != nil {
		return g.next.Generate(ctx, req)
	}

	data, err := g.cache.Get(ctx, key)
	switch {
	case err == nil:
		var resp Response
		if jsonErr := json.Unmarshal(data, &resp); jsonErr == nil && resp.Text != "" {
			resp.Cached = true
			return &resp, nil
		}
		g.logger.Warn().Str("key", key).Msg("Discarding unreadable cache entry")
	case !errors.Is(err, cache.ErrCacheMiss):
		g.logger.Warn().Err(err).Msg("Response cache read failed")
	}

	resp, err := g.next.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.Text != "" {
		if data, err := json.Marshal(resp); err == nil {
			if err := g.cache.Set(ctx, key, data, g.ttl); err != nil {
				g.logger.Warn().Err(err).Msg("Response cache write failed")
			}
		}
	}

	return resp, nil
}

// RequestKey derives the cache key for a request from its full contents.
func RequestKey(req Request) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return cache.Key("gen", hex.EncodeToString(sum[:])), nil
}
