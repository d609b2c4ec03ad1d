package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/oshokin/hy2-bootstrap/internal/config"
	"github.com/oshokin/hy2-bootstrap/internal/logger"
	"github.com/oshokin/hy2-bootstrap/internal/service/bootstrap"
	"github.com/oshokin/hy2-bootstrap/internal/service/launcher"
	"github.com/oshokin/hy2-bootstrap/internal/version"
)

// flags collects command line overrides. Only flags the user set are applied.
type flags struct {
	settingsPath string
	workDir      string
	logLevel     string
	version      string
	port         int
	password     string
	retries      int
	publicIP     string
	certTool     string
	sha256       string
	dryRun       bool
}

var (
	//nolint:gochecknoglobals // Required by Cobra CLI framework architecture.
	opts flags

	// rootCmd provisions the node and hands the process over to the server.
	//nolint:gochecknoglobals // Required by Cobra CLI framework architecture.
	rootCmd = &cobra.Command{
		Use:   "hy2-bootstrap",
		Short: "Provision a Hysteria 2 node and exec into the server.",
		Long: `Downloads the Hysteria 2 server binary for this CPU, makes sure a TLS
certificate exists (self-signed via openssl when missing), writes server.yaml,
detects the public IP, prints the client URI and replaces itself with the server.

Settings come from built-in defaults, then hy2-bootstrap.yaml, then the
HYSTERIA_VERSION, SERVER_PORT, AUTH_PASSWORD, RETRIES and PUBLIC_IP
environment variables, then flags.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          run,
	}
)

// Execute runs the CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd, config.DefaultVersion)

	if err := rootCmd.Execute(); err != nil {
		logger.Error(context.Background(), bootstrap.Diagnose(err))
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	f := rootCmd.Flags()
	f.StringVarP(&opts.settingsPath, "config", "c", "",
		"path to settings file (default "+config.DefaultSettingsFilename+" when present)")
	f.StringVarP(&opts.workDir, "workdir", "w", "", "directory holding the binary, certificate and server config")
	f.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	f.StringVar(&opts.version, "hysteria-version", config.DefaultVersion, "Hysteria release tag")
	f.IntVarP(&opts.port, "port", "p", config.DefaultPort, "server listen port")
	f.StringVar(&opts.password, "password", "", "auth password (generated once and saved when unset everywhere)")
	f.IntVar(&opts.retries, "retries", config.DefaultRetries, "extra download attempts after the first")
	f.StringVar(&opts.publicIP, "public-ip", "", "public IP to put into the URI, skips detection")
	f.StringVar(&opts.certTool, "cert-tool", config.DefaultCertTool, "certificate generator executable")
	f.StringVar(&opts.sha256, "sha256", "", "expected SHA-256 of the server binary")
	f.BoolVar(&opts.dryRun, "dry-run", false, "print the launch command instead of starting the server")
}

func run(cmd *cobra.Command, _ []string) error {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if level, ok := logger.ParseLogLevel(opts.logLevel); ok {
		logger.SetLevel(level)
	} else {
		logger.Warnf(ctx, "Unknown log level %q, keeping %s", opts.logLevel, logger.Level())
	}

	if opts.workDir != "" {
		if err := os.Chdir(opts.workDir); err != nil {
			return fmt.Errorf("change working directory: %w", err)
		}
	}

	cfg, err := loadConfig(ctx, cmd)
	if err != nil {
		return err
	}

	result, err := bootstrap.Run(ctx, &bootstrap.Options{
		Config: cfg,
		Out:    cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	if opts.dryRun {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), shellquote.Join(result.Launch.Args...))
		return nil
	}

	// The server installs its own signal handling.
	stop()

	return launcher.New().Replace(ctx, result.Launch)
}

// loadConfig layers defaults, the settings file, environment and flags.
// A generated password is saved to the settings file so the URI survives restarts.
func loadConfig(ctx context.Context, cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(opts.settingsPath)
	if err != nil {
		return nil, err
	}

	if err = config.ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	applyFlags(cmd, cfg)

	if err = config.Validate(cfg); err != nil {
		return nil, err
	}

	generated, err := config.EnsurePassword(opts.settingsPath, cfg)
	if err != nil {
		return nil, err
	}

	if generated {
		logger.InfoKV(ctx, "🔑 Generated auth password and saved it to the settings file",
			"path", settingsFile())
	}

	return cfg, nil
}

func settingsFile() string {
	if opts.settingsPath != "" {
		return opts.settingsPath
	}

	return config.DefaultSettingsFilename
}

// applyFlags copies explicitly set flags onto cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if changed("hysteria-version") {
		cfg.Version = opts.version
	}

	if changed("port") {
		cfg.Port = opts.port
	}

	if changed("password") {
		cfg.Password = opts.password
	}

	if changed("retries") {
		cfg.Retries = opts.retries
	}

	if changed("public-ip") {
		cfg.PublicIP = opts.publicIP
	}

	if changed("cert-tool") {
		cfg.CertTool = opts.certTool
	}

	if changed("sha256") {
		cfg.BinarySHA256 = opts.sha256
	}
}
