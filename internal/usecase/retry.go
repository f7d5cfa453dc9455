package usecase

import "context"

// withRetry runs operation through the configured retrier. A nil
// retrier runs the operation exactly once. Each attempt must be
// self-contained: the closure rebuilds all per-attempt state, because
// a failed attempt rolls back and leaves nothing behind.
func withRetry(ctx context.Context, r Retrier, operation func() error) error {
	if r == nil {
		return operation()
	}
	return r.Retry(ctx, operation)
}
