package platform

import (
	"runtime"
	"strings"
)

// Arch is the architecture tag used in release asset names.
type Arch string

const (
	// ArchUnknown marks a machine string no release exists for.
	ArchUnknown Arch = ""
	// ArchARM64 covers aarch64 and arm64 hosts.
	ArchARM64 Arch = "arm64"
	// ArchAMD64 covers x86_64 and amd64 hosts.
	ArchAMD64 Arch = "amd64"
)

// ResolveArch normalises a raw machine string such as "x86_64" or "aarch64".
func ResolveArch(machine string) Arch {
	m := strings.ToLower(machine)

	switch {
	case strings.Contains(m, "aarch64"), strings.Contains(m, "arm64"):
		return ArchARM64
	case strings.Contains(m, "x86_64"), strings.Contains(m, "amd64"):
		return ArchAMD64
	default:
		return ArchUnknown
	}
}

// BinaryName returns the release asset name for a.
func (a Arch) BinaryName() string {
	return "hysteria-linux-" + string(a)
}

// Machine returns the raw hardware name of the host, as `uname -m` reports it.
// Falls back to the Go architecture when the kernel cannot be asked.
func Machine() string {
	if m := unameMachine(); m != "" {
		return m
	}

	return runtime.GOARCH
}
