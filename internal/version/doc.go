// Package version exposes build metadata for hy2-bootstrap.
//
// Version, Commit and BuildTime are injected with -ldflags at release time.
package version
