package publicip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oshokin/hy2-bootstrap/internal/logger"
)

const (
	// DefaultTimeout bounds each provider request.
	DefaultTimeout = 5 * time.Second

	// maxBodySize caps how much of a provider response is read.
	maxBodySize = 256
)

var (
	// ErrUnresolvable is returned when no provider produced an address.
	ErrUnresolvable = errors.New("public IP lookup failed")

	errBadHTTPStatus = errors.New("unexpected http status")
	errNotAnAddress  = errors.New("response does not look like an IPv4 address")
)

// Resolver queries providers in order and returns the first plausible answer.
type Resolver struct {
	providers []string
	timeout   time.Duration
	client    *http.Client
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTimeout sets the per-provider timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Resolver) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) {
		if client != nil {
			r.client = client
		}
	}
}

// NewResolver creates a Resolver over the given provider URLs.
func NewResolver(providers []string, opts ...Option) *Resolver {
	r := &Resolver{
		providers: providers,
		timeout:   DefaultTimeout,
		client:    http.DefaultClient,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve returns the first non-empty answer containing a dot.
// Providers are tried once each; an exhausted list yields ErrUnresolvable.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	var lastErr error

	for _, provider := range r.providers {
		ip, err := r.lookup(ctx, provider)
		if err == nil {
			logger.InfoKV(ctx, "🌐 Detected public IP", "ip", ip, "provider", provider)
			return ip, nil
		}

		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		logger.DebugKV(ctx, "Public IP provider failed", "provider", provider, "error", err)
		lastErr = err
	}

	if lastErr == nil {
		return "", ErrUnresolvable
	}

	return "", fmt.Errorf("%w: %w", ErrUnresolvable, lastErr)
}

// lookup asks a single provider.
func (r *Resolver) lookup(ctx context.Context, provider string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, provider, http.NoBody)
	if err != nil {
		return "", err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("%s: %w", resp.Status, errBadHTTPStatus)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", err
	}

	ip := strings.TrimSpace(string(body))
	if !plausible(ip) {
		return "", fmt.Errorf("%q: %w", ip, errNotAnAddress)
	}

	return ip, nil
}

// plausible is a loose IPv4 shape check.
func plausible(ip string) bool {
	return ip != "" && strings.Contains(ip, ".")
}
