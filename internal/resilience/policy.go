package resilience

import "context"

// Policy combines retries with per-operation circuit breakers. A nil
// *Policy calls fn once, unprotected.
type Policy struct {
	Retry    RetryConfig
	Breakers *Breakers
}

// NewPolicy builds a Policy from the two configs.
func NewPolicy(retry RetryConfig, breaker BreakerConfig) *Policy {
	return &Policy{Retry: retry, Breakers: NewBreakers(breaker)}
}

// Call runs fn for operation. Each attempt goes through the operation's
// breaker; an open circuit ends the retries immediately.
func Call[T any](ctx context.Context, p *Policy, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	if p == nil {
		return fn(ctx)
	}

	retry := p.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = RetryLogger(operation)
	}

	if p.Breakers == nil {
		return Do(ctx, retry, fn)
	}
	b := p.Breakers.Get(operation)
	return Do(ctx, retry, func(ctx context.Context) (T, error) {
		return Execute(ctx, b, fn)
	})
}
