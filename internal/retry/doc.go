// Package retry provides a bounded-attempt combinator on top of
// github.com/juju/retry.
//
// Attempts are re-run immediately; the terminal error wraps the failure of
// the last attempt so callers can report what actually went wrong.
package retry
