package certs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/oshokin/hy2-bootstrap/internal/logger"
)

const (
	// DefaultTool is the certificate generator looked up in PATH.
	DefaultTool = "openssl"

	validityDays = "3650"
	subject      = "/CN=localhost"
)

var (
	// ErrToolMissing is returned when the certificate tool cannot be found.
	ErrToolMissing = errors.New("certificate tool not found")
	// ErrGenerationFailed is returned when the tool ran but did not produce a pair.
	ErrGenerationFailed = errors.New("certificate generation failed")

	errPairIncomplete = errors.New("tool exited cleanly but the certificate pair is incomplete")
)

// Options names the pair and the tool that generates it.
type Options struct {
	// CertFile is the certificate path.
	CertFile string
	// KeyFile is the private key path.
	KeyFile string
	// Tool is the generator executable. Defaults to DefaultTool.
	Tool string
}

// Args returns the generator arguments for a self-signed P-256 certificate
// valid for ten years.
func Args(certFile, keyFile string) []string {
	return []string{
		"req", "-x509", "-nodes",
		"-newkey", "ec", "-pkeyopt", "ec_paramgen_curve:prime256v1",
		"-days", validityDays,
		"-keyout", keyFile,
		"-out", certFile,
		"-subj", subject,
	}
}

// Ensure leaves an existing pair alone and otherwise runs the generator.
func Ensure(ctx context.Context, opts *Options) error {
	if exists(opts.CertFile) && exists(opts.KeyFile) {
		logger.Info(ctx, "✅ Found existing certificate and key")
		return nil
	}

	tool := opts.Tool
	if tool == "" {
		tool = DefaultTool
	}

	logger.InfoKV(ctx, "🔑 No certificate found, generating a self-signed ECDSA pair", "tool", tool)

	path, err := exec.LookPath(tool)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrToolMissing, tool, err)
	}

	//nolint:gosec // The tool is operator configuration, arguments are fixed.
	cmd := exec.CommandContext(ctx, path, Args(opts.CertFile, opts.KeyFile)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err = cmd.Run(); err != nil {
		return fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	if !exists(opts.CertFile) || !exists(opts.KeyFile) {
		return fmt.Errorf("%w: %w", ErrGenerationFailed, errPairIncomplete)
	}

	logger.InfoKV(ctx, "✅ Certificate generated", "cert", opts.CertFile, "key", opts.KeyFile)

	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
