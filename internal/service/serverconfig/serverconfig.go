package serverconfig

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Fixed limits sized for constrained hosts.
const (
	BandwidthUp   = "250mbps"
	BandwidthDown = "250mbps"

	MaxIdleTimeout          = "10s"
	MaxIncomingStreams      = 4
	InitStreamReceiveWindow = 65536
	MaxStreamReceiveWindow  = 131072
	InitConnReceiveWindow   = 131072
	MaxConnReceiveWindow    = 262144

	authTypePassword = "password"
	yamlIndent       = 2
	filePermissions  = 0o600
)

// Quoted is a string always emitted in double quotes.
type Quoted string

// MarshalYAML implements yaml.Marshaler.
func (q Quoted) MarshalYAML() (any, error) {
	return &yaml.Node{
		Kind:  yaml.ScalarNode,
		Style: yaml.DoubleQuotedStyle,
		Value: string(q),
	}, nil
}

// Document is the server configuration file.
type Document struct {
	Listen    Quoted    `yaml:"listen"`
	TLS       TLS       `yaml:"tls"`
	Auth      Auth      `yaml:"auth"`
	Bandwidth Bandwidth `yaml:"bandwidth"`
	QUIC      QUIC      `yaml:"quic"`
}

// TLS points at the certificate pair by absolute path.
type TLS struct {
	Cert Quoted `yaml:"cert"`
	Key  Quoted `yaml:"key"`
}

// Auth configures password authentication.
type Auth struct {
	Type     string `yaml:"type"`
	Password Quoted `yaml:"password"`
}

// Bandwidth caps server throughput in each direction.
type Bandwidth struct {
	Up   string `yaml:"up"`
	Down string `yaml:"down"`
}

// QUIC holds transport tuning.
type QUIC struct {
	MaxIdleTimeout          string `yaml:"maxIdleTimeout"`
	MaxIncomingStreams      int    `yaml:"maxIncomingStreams"`
	InitStreamReceiveWindow int    `yaml:"initStreamReceiveWindow"`
	MaxStreamReceiveWindow  int    `yaml:"maxStreamReceiveWindow"`
	InitConnReceiveWindow   int    `yaml:"initConnReceiveWindow"`
	MaxConnReceiveWindow    int    `yaml:"maxConnReceiveWindow"`
}

// New builds the document for a listen port, certificate pair and password.
// Relative certificate paths are resolved against the working directory.
func New(port int, certFile, keyFile, password string) (*Document, error) {
	certPath, err := filepath.Abs(certFile)
	if err != nil {
		return nil, fmt.Errorf("resolve certificate path: %w", err)
	}

	keyPath, err := filepath.Abs(keyFile)
	if err != nil {
		return nil, fmt.Errorf("resolve key path: %w", err)
	}

	return &Document{
		Listen: Quoted(fmt.Sprintf(":%d", port)),
		TLS: TLS{
			Cert: Quoted(certPath),
			Key:  Quoted(keyPath),
		},
		Auth: Auth{
			Type:     authTypePassword,
			Password: Quoted(password),
		},
		Bandwidth: Bandwidth{
			Up:   BandwidthUp,
			Down: BandwidthDown,
		},
		QUIC: QUIC{
			MaxIdleTimeout:          MaxIdleTimeout,
			MaxIncomingStreams:      MaxIncomingStreams,
			InitStreamReceiveWindow: InitStreamReceiveWindow,
			MaxStreamReceiveWindow:  MaxStreamReceiveWindow,
			InitConnReceiveWindow:   InitConnReceiveWindow,
			MaxConnReceiveWindow:    MaxConnReceiveWindow,
		},
	}, nil
}

// Render encodes doc as YAML with two-space indentation.
func Render(doc *Document) ([]byte, error) {
	var buf bytes.Buffer

	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(yamlIndent)

	if err := encoder.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode server config: %w", err)
	}

	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("encode server config: %w", err)
	}

	return buf.Bytes(), nil
}

// Write renders doc and replaces whatever is at path.
func Write(path string, doc *Document) error {
	data, err := Render(doc)
	if err != nil {
		return err
	}

	// Owner only, the file carries the auth password.
	if err = os.WriteFile(filepath.Clean(path), data, filePermissions); err != nil {
		return fmt.Errorf("write server config: %w", err)
	}

	return nil
}
