// Package node holds the values a bootstrap run derives: the client
// connection URI and the launch descriptor for the server process.
package node
