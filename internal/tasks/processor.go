package tasks

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/Fraol-12/encore/internal/matching"
	"github.com/Fraol-12/encore/internal/models"
	"github.com/Fraol-12/encore/internal/services"
	"github.com/Fraol-12/encore/internal/shared"
)

// RetryPolicy controls per-item retries of transient provider failures.
// Delays grow exponentially from BaseDelay, capped at MaxDelay, with
// ±Jitter randomization so retry bursts from concurrent workers spread out.
type RetryPolicy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	Jitter         float64
	AttemptTimeout time.Duration
}

// DefaultRetryPolicy mirrors the values shipped in the example config.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:    3,
	BaseDelay:      500 * time.Millisecond,
	MaxDelay:       10 * time.Second,
	Jitter:         0.2,
	AttemptTimeout: 10 * time.Second,
}

// PolicyFromConfig builds a policy from config, falling back to
// [DefaultRetryPolicy] for unset fields.
func PolicyFromConfig(cfg shared.RetryConfig) RetryPolicy {
	policy := RetryPolicy{
		MaxAttempts:    cfg.MaxAttempts,
		BaseDelay:      cfg.BaseDelay.Std(),
		MaxDelay:       cfg.MaxDelay.Std(),
		Jitter:         cfg.Jitter,
		AttemptTimeout: cfg.AttemptTimeout.Std(),
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = DefaultRetryPolicy.BaseDelay
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = DefaultRetryPolicy.MaxDelay
	}
	if policy.Jitter <= 0 {
		policy.Jitter = DefaultRetryPolicy.Jitter
	}
	if policy.AttemptTimeout <= 0 {
		policy.AttemptTimeout = DefaultRetryPolicy.AttemptTimeout
	}
	return policy
}

// Delay computes the backoff before the next attempt. attempt is the
// 1-based number of attempts already made.
func (p RetryPolicy) Delay(attempt int, jitter func() float64) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			delay = p.MaxDelay
			break
		}
	}

	if p.Jitter > 0 && jitter != nil {
		// Scale by a factor in [1-Jitter, 1+Jitter].
		factor := 1 + p.Jitter*(2*jitter()-1)
		delay = time.Duration(float64(delay) * factor)
	}

	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// ItemProcessor resolves a single source entry to an [models.ItemResult].
//
// Safe for concurrent use; the engine shares one processor across workers.
type ItemProcessor struct {
	provider    services.CandidateProvider
	matcher     *matching.Matcher
	threshold   float64
	searchLimit int
	policy      RetryPolicy

	// Injectable for deterministic tests.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// NewItemProcessor creates a processor. searchLimit <= 0 defaults to 5.
func NewItemProcessor(provider services.CandidateProvider, matcher *matching.Matcher, threshold float64, searchLimit int, policy RetryPolicy) *ItemProcessor {
	if searchLimit <= 0 {
		searchLimit = 5
	}
	return &ItemProcessor{
		provider:    provider,
		matcher:     matcher,
		threshold:   threshold,
		searchLimit: searchLimit,
		policy:      policy,
		sleep:       sleepContext,
		jitter:      rand.Float64,
	}
}

// Process resolves one entry: search, rank, retry transient failures.
//
// Usually returns a result; a non-nil error leaves the entry unresolved
// so a later resume can pick it up. That happens when the context was
// cancelled, or when the provider reported a fatal condition (revoked
// credentials) that no per-item retry can fix — the latter is wrapped in
// [shared.ErrAuthFailed] so the engine can abort the run. Permanent
// failures never retry; transient failures retry up to the policy's
// MaxAttempts, then record a failed result carrying the attempt count
// and last error.
func (p *ItemProcessor) Process(ctx context.Context, entry models.SourceEntry) (models.ItemResult, error) {
	var lastErr error

	for attempt := 1; attempt <= p.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return models.ItemResult{}, err
		}

		candidates, err := p.search(ctx, entry)
		if err == nil {
			return p.matcher.Match(entry, candidates, p.threshold), nil
		}

		// Parent cancellation aborts; a per-attempt deadline does not.
		if ctx.Err() != nil {
			return models.ItemResult{}, ctx.Err()
		}

		lastErr = err
		kind := services.ErrorKindOf(err)
		if kind == models.ErrorKindFatal {
			return models.ItemResult{}, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
		}
		if kind != models.ErrorKindTransient {
			return models.FailedResult(entry.ExternalID, kind, attempt, err.Error()), nil
		}

		if attempt < p.policy.MaxAttempts {
			if err := p.sleep(ctx, p.policy.Delay(attempt, p.jitter)); err != nil {
				return models.ItemResult{}, err
			}
		}
	}

	return models.FailedResult(entry.ExternalID, models.ErrorKindTransient, p.policy.MaxAttempts, lastErr.Error()), nil
}

// search runs one provider attempt under the per-attempt timeout.
func (p *ItemProcessor) search(ctx context.Context, entry models.SourceEntry) ([]models.CandidateTrack, error) {
	if p.policy.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.policy.AttemptTimeout)
		defer cancel()
	}

	return p.provider.Search(ctx, services.Query{
		Title:      entry.Title,
		ArtistHint: entry.ChannelName,
		Limit:      p.searchLimit,
	})
}

// sleepContext blocks for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
