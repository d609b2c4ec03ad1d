package publicip

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// stub serves a fixed body and status and counts hits.
func stub(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv, &hits
}

// slow never answers before the request is abandoned.
func slow(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	return srv
}

// TestResolve_FirstPlausibleWins skips failing and malformed providers.
func TestResolve_FirstPlausibleWins(t *testing.T) {
	t.Parallel()

	broken, brokenHits := stub(t, http.StatusBadGateway, "203.0.113.1")
	ipv6, ipv6Hits := stub(t, http.StatusOK, "2001:db8::1")
	good, goodHits := stub(t, http.StatusOK, " 203.0.113.5\n")
	unused, unusedHits := stub(t, http.StatusOK, "198.51.100.7")

	r := NewResolver([]string{broken.URL, ipv6.URL, good.URL, unused.URL})

	ip, err := r.Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, "203.0.113.5", ip)

	require.EqualValues(t, 1, brokenHits.Load())
	require.EqualValues(t, 1, ipv6Hits.Load())
	require.EqualValues(t, 1, goodHits.Load())
	require.Zero(t, unusedHits.Load())
}

// TestResolve_AllFail returns ErrUnresolvable after trying every provider once.
func TestResolve_AllFail(t *testing.T) {
	t.Parallel()

	empty, emptyHits := stub(t, http.StatusOK, "   ")
	notFound, notFoundHits := stub(t, http.StatusNotFound, "")
	hanging := slow(t)

	r := NewResolver([]string{empty.URL, notFound.URL, hanging.URL}, WithTimeout(50*time.Millisecond))

	start := time.Now()
	ip, err := r.Resolve(context.Background())

	require.ErrorIs(t, err, ErrUnresolvable)
	require.Empty(t, ip)
	require.Less(t, time.Since(start), 5*time.Second)
	require.EqualValues(t, 1, emptyHits.Load())
	require.EqualValues(t, 1, notFoundHits.Load())
}

// TestResolve_NoProviders fails immediately.
func TestResolve_NoProviders(t *testing.T) {
	t.Parallel()

	_, err := NewResolver(nil).Resolve(context.Background())
	require.ErrorIs(t, err, ErrUnresolvable)
}

// TestResolve_Cancelled stops at the first provider once the context is done.
func TestResolve_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	good, hits := stub(t, http.StatusOK, "203.0.113.5")

	_, err := NewResolver([]string{good.URL, good.URL}).Resolve(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, hits.Load())
}
