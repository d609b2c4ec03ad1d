package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

var errStalled = errors.New("no data received within timeout")

// idleWatchdog cancels an attempt when no bytes arrive for timeout.
// Every successful read re-arms it.
type idleWatchdog struct {
	timeout time.Duration
	timer   *time.Timer
	fired   atomic.Bool
}

// newIdleWatchdog derives a cancellable attempt context from ctx and arms the
// watchdog on it. stop must be called once the transfer is over.
func newIdleWatchdog(ctx context.Context, timeout time.Duration) (context.Context, *idleWatchdog, func()) {
	ctx, cancel := context.WithCancel(ctx)

	w := &idleWatchdog{timeout: timeout}
	w.timer = time.AfterFunc(timeout, func() {
		w.fired.Store(true)
		cancel()
	})

	return ctx, w, func() {
		w.timer.Stop()
		cancel()
	}
}

// wrap returns r with reads feeding the watchdog.
func (w *idleWatchdog) wrap(r io.Reader) io.Reader {
	return &idleReader{r: r, watchdog: w}
}

// explain replaces the cancellation error caused by the watchdog with errStalled.
func (w *idleWatchdog) explain(err error) error {
	if err == nil || !w.fired.Load() {
		return err
	}

	return fmt.Errorf("%w (%s): %w", errStalled, w.timeout, err)
}

type idleReader struct {
	r        io.Reader
	watchdog *idleWatchdog
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 && !r.watchdog.fired.Load() {
		r.watchdog.timer.Reset(r.watchdog.timeout)
	}

	return n, err
}
