// Package publicip discovers the host's public IPv4 address by asking a list
// of plain-text echo services in order.
package publicip
