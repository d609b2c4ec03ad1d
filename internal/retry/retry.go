package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/juju/clock"
	jujuretry "github.com/juju/retry"
)

// immediate is the pause between attempts. juju/retry rejects a zero delay.
const immediate = time.Nanosecond

// ErrAttemptsExhausted is returned when every attempt failed.
var ErrAttemptsExhausted = errors.New("attempts exhausted")

// Policy describes how many times to try.
type Policy struct {
	// Attempts is the total number of tries, at least one.
	Attempts int
	// Notify is called after each failed attempt with the 1-based attempt number.
	Notify func(err error, attempt int)
	// Clock drives the inter-attempt delay. Defaults to the wall clock.
	Clock clock.Clock
}

// Do calls fn until it succeeds or the policy runs out of attempts.
// The returned error wraps both ErrAttemptsExhausted and the last failure.
// A cancelled ctx stops the loop and returns the context error.
func Do[T any](ctx context.Context, policy Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var (
		result  T
		lastErr error
	)

	attempts := max(policy.Attempts, 1)

	clk := policy.Clock
	if clk == nil {
		clk = clock.WallClock
	}

	err := jujuretry.Call(jujuretry.CallArgs{
		Func: func() error {
			value, err := fn(ctx)
			if err != nil {
				lastErr = err
				return err
			}

			result = value

			return nil
		},
		IsFatalError: func(error) bool {
			return ctx.Err() != nil
		},
		NotifyFunc: func(err error, attempt int) {
			if policy.Notify != nil {
				policy.Notify(err, attempt)
			}
		},
		Attempts: attempts,
		Delay:    immediate,
		Clock:    clk,
		Stop:     ctx.Done(),
	})
	if err == nil {
		return result, nil
	}

	var zero T

	if ctxErr := ctx.Err(); ctxErr != nil {
		return zero, ctxErr
	}

	if lastErr == nil {
		return zero, err
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, attempts, lastErr)
}
