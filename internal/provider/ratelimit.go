package provider

import (
	"context"

	"golang.org/x/time/rate"
)

// rateLimited throttles outbound requests so long batches stay under a
// provider's request-per-second ceiling instead of tripping 429s.
type rateLimited struct {
	inner   Translator
	limiter *rate.Limiter
}

func withRateLimit(inner Translator, rps float64) Translator {
	return &rateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (r *rateLimited) Name() string { return r.inner.Name() }

func (r *rateLimited) Translate(ctx context.Context, req Request) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.inner.Translate(ctx, req)
}
