// Package bootstrap runs the node provisioning pipeline: resolve the
// architecture, fetch the server binary, make sure a certificate exists,
// write the server config, learn the public IP and print the client URI.
//
// Run stops short of starting the server. It returns a launch descriptor and
// the caller decides whether to hand the process over to it.
package bootstrap
