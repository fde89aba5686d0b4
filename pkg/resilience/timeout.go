package resilience

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/wordindex/pkg/errors"
)

// WithTimeout runs fn with a derived context that is cancelled after
// timeout. A call that overruns is reported as an unavailable dependency
// wrapping context.DeadlineExceeded.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- fn(timeoutCtx)
	}()
	select {
	case err := <-done:
		if err == nil || timeoutCtx.Err() == nil {
			return err
		}
	case <-timeoutCtx.Done():
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%s: parent context cancelled: %w", name, ctx.Err())
	}
	return &apperrors.Error{
		Err:     fmt.Errorf("%w: %w", apperrors.ErrSinkUnavailable, context.DeadlineExceeded),
		Kind:    apperrors.KindDependency,
		Message: fmt.Sprintf("%s exceeded %v", name, timeout),
	}
}
