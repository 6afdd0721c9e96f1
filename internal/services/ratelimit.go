package services

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/Fraol-12/encore/internal/models"
)

// RateLimitedProvider throttles searches against a [CandidateProvider].
// Worker goroutines share one limiter so the aggregate request rate stays
// under the provider's quota regardless of concurrency.
type RateLimitedProvider struct {
	inner   CandidateProvider
	limiter *rate.Limiter
}

// NewRateLimitedProvider wraps inner with a token bucket of perSecond
// requests. perSecond <= 0 disables throttling.
func NewRateLimitedProvider(inner CandidateProvider, perSecond float64) *RateLimitedProvider {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}

	return &RateLimitedProvider{
		inner:   inner,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Search blocks until the limiter grants a token, then delegates to the
// wrapped provider. Context cancellation interrupts the wait.
func (p *RateLimitedProvider) Search(ctx context.Context, query Query) ([]models.CandidateTrack, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.inner.Search(ctx, query)
}
