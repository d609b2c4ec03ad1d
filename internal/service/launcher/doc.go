// Package launcher hands the current process over to the server binary.
//
// On Unix the process image is replaced with execve(2), so nothing of the
// bootstrap stays resident. Elsewhere the server runs as a child and the
// bootstrap exits with its status once it finishes.
package launcher
