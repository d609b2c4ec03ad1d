// Package fetcher downloads the Hysteria server binary for the host
// architecture and installs it as an executable.
//
// A binary already present at the destination is never downloaded again.
// Downloads land in a temporary sibling file first and are swapped into
// place with go-update, so a failed attempt never leaves a partial binary
// that a later run would mistake for a finished one.
package fetcher
