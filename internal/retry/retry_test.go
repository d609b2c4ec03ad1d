package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky")

// TestDo_SucceedsOnLastAttempt fails twice then succeeds with a budget of three.
func TestDo_SucceedsOnLastAttempt(t *testing.T) {
	t.Parallel()

	var (
		calls    int
		notified []int
	)

	policy := Policy{
		Attempts: 3,
		Notify: func(_ error, attempt int) {
			notified = append(notified, attempt)
		},
	}

	got, err := Do(context.Background(), policy, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errFlaky
		}

		return "ok", nil
	})

	require.NoError(t, err)
	require.Equal(t, "ok", got)
	require.Equal(t, 3, calls)
	require.Equal(t, []int{1, 2}, notified)
}

// TestDo_ReportsLastError keeps the failure of the final attempt.
func TestDo_ReportsLastError(t *testing.T) {
	t.Parallel()

	var calls int

	_, err := Do(context.Background(), Policy{Attempts: 3}, func(context.Context) (int, error) {
		calls++
		return 0, fmt.Errorf("attempt %d: %w", calls, errFlaky)
	})

	require.Error(t, err)
	require.Equal(t, 3, calls)
	require.ErrorIs(t, err, ErrAttemptsExhausted)
	require.ErrorIs(t, err, errFlaky)
	require.Contains(t, err.Error(), "attempt 3")
}

// TestDo_AtLeastOneAttempt treats a zero budget as a single try.
func TestDo_AtLeastOneAttempt(t *testing.T) {
	t.Parallel()

	var calls int

	_, err := Do(context.Background(), Policy{}, func(context.Context) (int, error) {
		calls++
		return 0, errFlaky
	})

	require.ErrorIs(t, err, errFlaky)
	require.Equal(t, 1, calls)
}

// TestDo_StopsOnCancel returns the context error instead of retrying.
func TestDo_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	var calls int

	_, err := Do(ctx, Policy{Attempts: 5}, func(context.Context) (int, error) {
		calls++
		cancel()

		return 0, errFlaky
	})

	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}
