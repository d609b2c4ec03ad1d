package fetcher

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	goupdate "github.com/doitdistributed/go-update"
	"github.com/dustin/go-humanize"

	"github.com/oshokin/hy2-bootstrap/internal/logger"
	"github.com/oshokin/hy2-bootstrap/internal/platform"
	"github.com/oshokin/hy2-bootstrap/internal/retry"
)

const (
	// DefaultTimeout bounds connecting, waiting for response headers and every
	// pause between body chunks on each attempt.
	DefaultTimeout = 30 * time.Second

	// ExecutableMode is applied to the installed binary.
	ExecutableMode os.FileMode = 0o755

	// chunkSize is the buffer used to stream the response body to disk.
	chunkSize = 8 * 1024
)

var (
	// ErrDownloadExhausted is returned when every download attempt failed.
	ErrDownloadExhausted = errors.New("binary download failed")

	errBadHTTPStatus    = errors.New("unexpected http status")
	errEmptyURL         = errors.New("download URL must be provided")
	errEmptyTarget      = errors.New("destination path must be provided")
	errInvalidChecksum  = errors.New("checksum must be a hex encoded SHA-256 digest")
	errChecksumMismatch = errors.New("downloaded binary has wrong checksum")
)

// Options configures a single Fetch call.
type Options struct {
	// Destination is where the executable ends up.
	Destination string
	// URL is the release asset to download.
	URL string
	// Retries is the number of extra attempts after the first one.
	Retries int
	// Timeout bounds connection setup, response headers and body stalls per attempt.
	Timeout time.Duration
	// SHA256 is an optional hex digest the download must match.
	SHA256 string
	// Client overrides the HTTP client built from Timeout.
	Client *http.Client
}

// ReleaseURL builds the asset URL for a release tag and architecture.
func ReleaseURL(baseURL, version string, arch platform.Arch) string {
	return fmt.Sprintf("%s/app/%s/%s", strings.TrimRight(baseURL, "/"), version, arch.BinaryName())
}

// Fetch makes sure an executable exists at opts.Destination, downloading it
// with up to opts.Retries+1 attempts when it is missing.
func Fetch(ctx context.Context, opts *Options) error {
	if opts.Destination == "" {
		return errEmptyTarget
	}

	_, err := os.Stat(opts.Destination)
	switch {
	case err == nil:
		logger.InfoKV(ctx, "✅ Binary already present, skipping download", "path", opts.Destination)
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("stat binary: %w", err)
	}

	if opts.URL == "" {
		return errEmptyURL
	}

	checksum, err := decodeChecksum(opts.SHA256)
	if err != nil {
		return err
	}

	// Fail before touching the network when the binary could not be placed.
	preflight := goupdate.Options{TargetPath: opts.Destination, TargetMode: ExecutableMode}
	if err = preflight.CheckPermissions(); err != nil {
		return fmt.Errorf("binary directory is not writable: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := opts.Client
	if client == nil {
		client = newHTTPClient(timeout)
	}

	logger.InfoKV(ctx, "⏳ Downloading", "url", opts.URL)

	policy := retry.Policy{
		Attempts: opts.Retries + 1,
		Notify: func(err error, attempt int) {
			logger.WarnKV(ctx, "Download failed", "attempt", attempt, "error", err)
		},
	}

	size, err := retry.Do(ctx, policy, func(ctx context.Context) (int64, error) {
		return download(ctx, client, timeout, opts.URL, opts.Destination, checksum)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDownloadExhausted, err)
	}

	logger.InfoKV(ctx, "✅ Download complete, marked executable",
		"path", opts.Destination, "size", humanize.Bytes(uint64(size))) //nolint:gosec // Size is never negative.

	return nil
}

// newHTTPClient returns a client whose dial, TLS handshake and response
// header waits are bounded by timeout. Body stalls are bounded per attempt
// by download, so a slow but steady link still finishes a large binary.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	dialer := &net.Dialer{Timeout: timeout}

	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // Always *http.Transport.
	transport.DialContext = dialer.DialContext
	transport.TLSHandshakeTimeout = timeout
	transport.ResponseHeaderTimeout = timeout

	return &http.Client{Transport: transport}
}

// download performs one attempt and returns the number of bytes installed.
// The attempt is abandoned once timeout passes without any body bytes.
func download(
	ctx context.Context,
	client *http.Client,
	timeout time.Duration,
	url, destination string,
	checksum []byte,
) (int64, error) {
	ctx, watchdog, stop := newIdleWatchdog(ctx, timeout)
	defer stop()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return 0, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, watchdog.explain(err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return 0, fmt.Errorf("%s: %w", resp.Status, errBadHTTPStatus)
	}

	staging, err := os.CreateTemp(filepath.Dir(destination), "."+filepath.Base(destination)+".download-*")
	if err != nil {
		return 0, fmt.Errorf("create staging file: %w", err)
	}

	defer func() {
		_ = staging.Close()
		_ = os.Remove(staging.Name())
	}()

	hash := sha256.New()

	size, err := io.CopyBuffer(io.MultiWriter(staging, hash), watchdog.wrap(resp.Body), make([]byte, chunkSize))
	if err != nil {
		return 0, fmt.Errorf("stream body: %w", watchdog.explain(err))
	}

	stop()

	if checksum != nil && !bytes.Equal(checksum, hash.Sum(nil)) {
		return 0, fmt.Errorf("%w: expected %x, got %x", errChecksumMismatch, checksum, hash.Sum(nil))
	}

	if err = install(staging, destination); err != nil {
		return 0, err
	}

	return size, nil
}

// install makes the staged file executable and renames it over destination.
// The binary never passes through memory as a whole.
func install(staging *os.File, destination string) error {
	if err := staging.Sync(); err != nil {
		return fmt.Errorf("sync binary: %w", err)
	}

	if err := staging.Chmod(ExecutableMode); err != nil {
		return fmt.Errorf("mark binary executable: %w", err)
	}

	if err := staging.Close(); err != nil {
		return fmt.Errorf("close binary: %w", err)
	}

	if err := os.Rename(staging.Name(), destination); err != nil {
		return fmt.Errorf("install binary: %w", err)
	}

	return nil
}

func decodeChecksum(digest string) ([]byte, error) {
	digest = strings.TrimSpace(digest)
	if digest == "" {
		return nil, nil
	}

	checksum, err := hex.DecodeString(digest)
	if err != nil || len(checksum) != sha256.Size {
		return nil, fmt.Errorf("%w: %q", errInvalidChecksum, digest)
	}

	return checksum, nil
}
