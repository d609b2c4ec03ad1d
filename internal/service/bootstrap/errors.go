package bootstrap

import (
	"errors"
	"fmt"

	"github.com/oshokin/hy2-bootstrap/internal/service/certs"
	"github.com/oshokin/hy2-bootstrap/internal/service/fetcher"
	"github.com/oshokin/hy2-bootstrap/internal/service/launcher"
	"github.com/oshokin/hy2-bootstrap/internal/service/publicip"
)

// Fatal conditions. Every one of them ends the run.
var (
	ErrUnsupportedArchitecture     = errors.New("unsupported CPU architecture")
	ErrDownloadExhausted           = fetcher.ErrDownloadExhausted
	ErrCertificateToolMissing      = certs.ErrToolMissing
	ErrCertificateGenerationFailed = certs.ErrGenerationFailed
	ErrPublicIPUnresolvable        = publicip.ErrUnresolvable
	ErrProcessReplaceFailed        = launcher.ErrReplaceFailed
)

// Diagnose turns a pipeline error into the line shown to the operator.
func Diagnose(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedArchitecture):
		return fmt.Sprintf("❌ Cannot recognise the CPU architecture: %v", err)
	case errors.Is(err, ErrDownloadExhausted):
		return fmt.Sprintf("❌ Download failed, last error: %v", err)
	case errors.Is(err, ErrCertificateToolMissing):
		return fmt.Sprintf("❌ Certificate tool not found, generate cert.pem and key.pem on another machine "+
			"and copy them here: %v", err)
	case errors.Is(err, ErrCertificateGenerationFailed):
		return fmt.Sprintf("❌ Certificate generation failed: %v", err)
	case errors.Is(err, ErrPublicIPUnresolvable):
		return fmt.Sprintf("❌ Could not detect the public IP, set it manually with --public-ip or PUBLIC_IP: %v", err)
	case errors.Is(err, ErrProcessReplaceFailed):
		return fmt.Sprintf("❌ Failed to start the server: %v", err)
	default:
		return fmt.Sprintf("❌ %v", err)
	}
}
