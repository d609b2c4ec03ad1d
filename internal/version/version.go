package version

import (
	"fmt"
	"runtime"
	"strings"
)

var (
	// Version is the hy2-bootstrap release, set with -ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA of the build, "none" for local builds.
	Commit = "none"
	// BuildTime is the UTC build timestamp, "unknown" for local builds.
	BuildTime = "unknown"
)

// Info describes this build and the server release it provisions by default.
type Info struct {
	Version   string
	Commit    string
	BuildTime string
	Hysteria  string
	Platform  string
}

// Current returns the build info with hysteria as the default server release.
func Current(hysteria string) Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		Hysteria:  hysteria,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String renders the info one field per line, the way the version command prints it.
func (i Info) String() string {
	var b strings.Builder

	_, _ = fmt.Fprintf(&b, "hy2-bootstrap %s\n", i.Version)
	_, _ = fmt.Fprintf(&b, "  commit:   %s\n", i.Commit)
	_, _ = fmt.Fprintf(&b, "  built:    %s\n", i.BuildTime)
	_, _ = fmt.Fprintf(&b, "  hysteria: %s\n", i.Hysteria)
	_, _ = fmt.Fprintf(&b, "  platform: %s (%s)", i.Platform, runtime.Version())

	return b.String()
}
