package node

import (
	"fmt"
	"path/filepath"
)

// scheme is the URI scheme understood by Hysteria 2 clients.
const scheme = "hysteria2"

// insecureLabel is the fragment clients show as the node name.
const insecureLabel = "Hy2-Insecure"

// URI returns the insecure-mode connection string for a node. Clients using
// it skip certificate verification, which a self-signed pair requires.
func URI(password, ip string, port int) string {
	return fmt.Sprintf("%s://%s@%s:%d?insecure=1#%s", scheme, password, ip, port, insecureLabel)
}

// Launch describes the process that takes over once bootstrap is done.
type Launch struct {
	// Path is the absolute path of the executable.
	Path string
	// Args is the full argument vector, Args[0] included.
	Args []string
}

// NewLaunch builds the descriptor that runs binary in server mode against configFile.
func NewLaunch(binary, configFile string) (*Launch, error) {
	path, err := filepath.Abs(binary)
	if err != nil {
		return nil, fmt.Errorf("resolve binary path: %w", err)
	}

	return &Launch{
		Path: path,
		Args: []string{path, "server", "-c", configFile},
	}, nil
}
