package sweep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"todo-overs-backend/internal/habitica"
)

const (
	// backoffStep is added to the delay counter on every recoverable
	// failure; the counter value itself is the sleep before the next try.
	backoffStep = 90 * time.Second
	// backoffLimit caps the counter; once it would be exceeded the
	// operation is abandoned for this pass.
	backoffLimit = 500 * time.Second
)

func recoverable(err error) bool {
	return errors.Is(err, habitica.ErrRateLimited) || errors.Is(err, habitica.ErrTransient)
}

// withBackoff retries one logical operation on rate-limit and transient
// failures, sleeping 90s, 180s, ... between attempts. The counter is
// scoped to this single call; it never carries across tasks or passes.
// Hard failures return immediately.
func (s *Sweeper) withBackoff(ctx context.Context, op func() error) error {
	var delay time.Duration
	for {
		err := op()
		if err == nil || !recoverable(err) {
			return err
		}

		delay += backoffStep
		if delay > backoffLimit {
			return fmt.Errorf("retries exhausted: %w", err)
		}

		s.sleep(delay)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
