// Package serverconfig renders the Hysteria server YAML document.
//
// The document is rewritten on every run, so it always reflects the current
// port, password and certificate paths. Bandwidth and QUIC tuning are fixed
// for small hosts.
package serverconfig
