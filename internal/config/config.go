package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Config holds everything a bootstrap run needs to know.
type Config struct {
	// Version is the Hysteria release tag, e.g. "v2.6.2".
	Version string `yaml:"version"`
	// ReleaseBaseURL is the prefix of release asset URLs.
	ReleaseBaseURL string `yaml:"release_base_url"`
	// Port is the UDP port the server listens on.
	Port int `yaml:"port"`
	// Password is the shared auth secret. Generated and saved when empty.
	Password string `yaml:"password"`
	// Retries is the number of extra download attempts after the first one.
	Retries int `yaml:"retries"`
	// CertFile is the TLS certificate path.
	CertFile string `yaml:"cert_file"`
	// KeyFile is the TLS private key path.
	KeyFile string `yaml:"key_file"`
	// ServerConfigFile is where the server YAML document is written.
	ServerConfigFile string `yaml:"server_config_file"`
	// CertTool is the certificate generation command.
	CertTool string `yaml:"cert_tool"`
	// BinarySHA256 is an optional hex checksum the downloaded binary must match.
	BinarySHA256 string `yaml:"binary_sha256"`
	// PublicIP skips the lookup when set.
	PublicIP string `yaml:"public_ip"`
	// IPProviders is the ordered list of plain-text IP echo endpoints.
	IPProviders []string `yaml:"ip_providers"`
}

const (
	// DefaultSettingsFilename is the optional settings file looked up in the working directory.
	DefaultSettingsFilename = "hy2-bootstrap.yaml"

	// DefaultVersion is the pinned Hysteria release.
	DefaultVersion = "v2.6.2"

	// DefaultReleaseBaseURL hosts the prebuilt server binaries.
	DefaultReleaseBaseURL = "https://github.com/apernet/hysteria/releases/download"

	// DefaultPort is the listen port used when nothing else is configured.
	DefaultPort = 443

	// DefaultRetries gives three download attempts in total.
	DefaultRetries = 2

	// DefaultCertFile is the certificate filename.
	DefaultCertFile = "cert.pem"

	// DefaultKeyFile is the private key filename.
	DefaultKeyFile = "key.pem"

	// DefaultServerConfigFile is the server configuration filename.
	DefaultServerConfigFile = "server.yaml"

	// DefaultCertTool is the external certificate generator.
	DefaultCertTool = "openssl"

	// DefaultFilePermissions is the permission for files holding secrets.
	DefaultFilePermissions = 0o600

	maxPort = 65535

	passwordKey = "password"
)

// Environment variable names honoured by ApplyEnv.
const (
	EnvVersion  = "HYSTERIA_VERSION"
	EnvPort     = "SERVER_PORT"
	EnvPassword = "AUTH_PASSWORD"
	EnvRetries  = "RETRIES"
	EnvPublicIP = "PUBLIC_IP"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errVersionRequired is returned when the release tag is empty.
	errVersionRequired = errors.New("release version must be provided")
	// errInvalidPort is returned when the port is outside 1..65535.
	errInvalidPort = errors.New("port must be between 1 and 65535")
	// errNegativeRetries is returned for a negative retry budget.
	errNegativeRetries = errors.New("retries must not be negative")
	// errNoIPProviders is returned when no lookup endpoint and no override are set.
	errNoIPProviders = errors.New("at least one public IP provider is required")
	// errSettingsNotMapping is returned when the settings file is not a YAML mapping.
	errSettingsNotMapping = errors.New("settings file must be a YAML mapping")
)

// DefaultIPProviders returns the built-in public IP echo endpoints in lookup order.
func DefaultIPProviders() []string {
	return []string{
		"https://api.ipify.org",
		"https://ifconfig.me/ip",
		"https://ipv4.icanhazip.com",
	}
}

// Default returns a Config populated with built-in values. Password stays
// empty so EnsurePassword can generate one.
func Default() *Config {
	return &Config{
		Version:          DefaultVersion,
		ReleaseBaseURL:   DefaultReleaseBaseURL,
		Port:             DefaultPort,
		Retries:          DefaultRetries,
		CertFile:         DefaultCertFile,
		KeyFile:          DefaultKeyFile,
		ServerConfigFile: DefaultServerConfigFile,
		CertTool:         DefaultCertTool,
		IPProviders:      DefaultIPProviders(),
	}
}

// Load reads settings from path on top of the defaults. A missing file at the
// default location is not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultSettingsFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && !explicit:
		return cfg, nil
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err = yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	return cfg, nil
}

// EnsurePassword generates a password when cfg has none and records it in
// the settings file at path, so later runs keep handing out the same URI.
// It reports whether a password was generated.
func EnsurePassword(path string, cfg *Config) (bool, error) {
	if cfg == nil {
		return false, errConfigIsNotSet
	}

	if cfg.Password != "" {
		return false, nil
	}

	password := generatePassword()
	if err := savePassword(path, password); err != nil {
		return false, err
	}

	cfg.Password = password

	return true, nil
}

// savePassword sets the password key in the settings file at path, creating
// the file when needed. Other keys, their order and comments are kept.
func savePassword(path, password string) error {
	if path == "" {
		path = DefaultSettingsFilename
	}

	path = filepath.Clean(path)

	var doc yaml.Node

	contents, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err = yaml.Unmarshal(contents, &doc); err != nil {
			return fmt.Errorf("unmarshal settings: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return fmt.Errorf("read settings: %w", err)
	}

	if len(doc.Content) == 0 {
		doc = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}},
		}
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return errSettingsNotMapping
	}

	setString(root, passwordKey, password)

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions, the file holds the auth password.
	if err = os.WriteFile(path, data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// setString sets key to a quoted string value in mapping, appending it when absent.
func setString(mapping *yaml.Node, key, value string) {
	node := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value, Style: yaml.DoubleQuotedStyle}

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			mapping.Content[i+1] = node
			return
		}
	}

	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		node,
	)
}

// ApplyEnv overrides fields from environment variables resolved by lookup.
// Pass os.LookupEnv in production.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if v, ok := lookupTrimmed(lookup, EnvVersion); ok {
		cfg.Version = v
	}

	if v, ok := lookupTrimmed(lookup, EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvPort, err)
		}

		cfg.Port = port
	}

	if v, ok := lookup(EnvPassword); ok && v != "" {
		cfg.Password = v
	}

	if v, ok := lookupTrimmed(lookup, EnvRetries); ok {
		retries, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvRetries, err)
		}

		cfg.Retries = retries
	}

	if v, ok := lookupTrimmed(lookup, EnvPublicIP); ok {
		cfg.PublicIP = v
	}

	return nil
}

// Validate checks the settings and fills in derived defaults. An empty
// password is left for EnsurePassword.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if strings.TrimSpace(cfg.Version) == "" {
		return errVersionRequired
	}

	if cfg.Port < 1 || cfg.Port > maxPort {
		return fmt.Errorf("%w: %d", errInvalidPort, cfg.Port)
	}

	if cfg.Retries < 0 {
		return fmt.Errorf("%w: %d", errNegativeRetries, cfg.Retries)
	}

	if _, err := url.ParseRequestURI(cfg.ReleaseBaseURL); err != nil {
		return fmt.Errorf("invalid release base URL: %w", err)
	}

	if cfg.PublicIP == "" && len(cfg.IPProviders) == 0 {
		return errNoIPProviders
	}

	if cfg.CertFile == "" {
		cfg.CertFile = DefaultCertFile
	}

	if cfg.KeyFile == "" {
		cfg.KeyFile = DefaultKeyFile
	}

	if cfg.ServerConfigFile == "" {
		cfg.ServerConfigFile = DefaultServerConfigFile
	}

	if cfg.CertTool == "" {
		cfg.CertTool = DefaultCertTool
	}

	return nil
}

// generatePassword returns a random secret safe to embed in a URI userinfo.
func generatePassword() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func lookupTrimmed(lookup func(string) (string, bool), key string) (string, bool) {
	v, ok := lookup(key)
	if !ok {
		return "", false
	}

	v = strings.TrimSpace(v)

	return v, v != ""
}
