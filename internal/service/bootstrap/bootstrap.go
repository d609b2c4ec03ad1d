package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/oshokin/hy2-bootstrap/internal/config"
	"github.com/oshokin/hy2-bootstrap/internal/domain/node"
	"github.com/oshokin/hy2-bootstrap/internal/logger"
	"github.com/oshokin/hy2-bootstrap/internal/platform"
	"github.com/oshokin/hy2-bootstrap/internal/service/certs"
	"github.com/oshokin/hy2-bootstrap/internal/service/fetcher"
	"github.com/oshokin/hy2-bootstrap/internal/service/publicip"
	"github.com/oshokin/hy2-bootstrap/internal/service/serverconfig"
)

const bannerRule = "============================================"

var errConfigRequired = errors.New("configuration is required")

// Options are inputs accepted by Run.
type Options struct {
	// Config is the validated bootstrap configuration.
	Config *config.Config
	// Machine overrides the detected hardware name.
	Machine string
	// Out receives the URI banner. Defaults to stdout.
	Out io.Writer
	// HTTPClient is used for the public IP lookup. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// Result is what a completed pipeline produced.
type Result struct {
	// Arch is the resolved architecture tag.
	Arch platform.Arch
	// PublicIP is the address put into URI.
	PublicIP string
	// URI is the client connection string.
	URI string
	// Launch is the server process to hand over to.
	Launch *node.Launch
}

// Run executes every stage up to printing the URI, in order, stopping at the first failure.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	if opts == nil || opts.Config == nil {
		return nil, errConfigRequired
	}

	cfg := opts.Config

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	logger.Info(ctx, "🚀 Bootstrapping Hysteria 2 node")

	machine := opts.Machine
	if machine == "" {
		machine = platform.Machine()
	}

	arch := platform.ResolveArch(machine)
	if arch == platform.ArchUnknown {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedArchitecture, machine)
	}

	logger.InfoKV(ctx, "Detected architecture", "machine", machine, "arch", arch)

	// Every later stage logs against this architecture.
	ctx = logger.WithKV(ctx, "arch", arch)

	binary := arch.BinaryName()

	err := fetcher.Fetch(logger.WithName(ctx, "fetcher"), &fetcher.Options{
		Destination: binary,
		URL:         fetcher.ReleaseURL(cfg.ReleaseBaseURL, cfg.Version, arch),
		Retries:     cfg.Retries,
		Timeout:     fetcher.DefaultTimeout,
		SHA256:      cfg.BinarySHA256,
	})
	if err != nil {
		return nil, err
	}

	err = certs.Ensure(logger.WithName(ctx, "certs"), &certs.Options{
		CertFile: cfg.CertFile,
		KeyFile:  cfg.KeyFile,
		Tool:     cfg.CertTool,
	})
	if err != nil {
		return nil, err
	}

	if err = writeServerConfig(ctx, cfg); err != nil {
		return nil, err
	}

	ip, err := resolvePublicIP(logger.WithName(ctx, "publicip"), cfg, opts.HTTPClient)
	if err != nil {
		return nil, err
	}

	uri := node.URI(cfg.Password, ip, cfg.Port)
	printBanner(out, uri)

	launch, err := node.NewLaunch(binary, cfg.ServerConfigFile)
	if err != nil {
		return nil, err
	}

	return &Result{
		Arch:     arch,
		PublicIP: ip,
		URI:      uri,
		Launch:   launch,
	}, nil
}

func writeServerConfig(ctx context.Context, cfg *config.Config) error {
	doc, err := serverconfig.New(cfg.Port, cfg.CertFile, cfg.KeyFile, cfg.Password)
	if err != nil {
		return err
	}

	if err = serverconfig.Write(cfg.ServerConfigFile, doc); err != nil {
		return err
	}

	logger.InfoKV(ctx, "✅ Server config written", "path", cfg.ServerConfigFile, "listen", doc.Listen)

	return nil
}

func resolvePublicIP(ctx context.Context, cfg *config.Config, client *http.Client) (string, error) {
	if cfg.PublicIP != "" {
		logger.InfoKV(ctx, "🌐 Using configured public IP", "ip", cfg.PublicIP)
		return cfg.PublicIP, nil
	}

	resolver := publicip.NewResolver(cfg.IPProviders,
		publicip.WithTimeout(publicip.DefaultTimeout),
		publicip.WithHTTPClient(client),
	)

	return resolver.Resolve(ctx)
}

func printBanner(w io.Writer, uri string) {
	_, _ = fmt.Fprintf(w, "\n=== ✅ Node URI generated ===\n%s\n%s\n\n", uri, bannerRule)
}
