// Package certs makes sure a TLS certificate and key exist, generating a
// self-signed ECDSA P-256 pair with an external tool when they do not.
package certs
