//go:build unix

package launcher

import "golang.org/x/sys/unix"

// platformExec replaces the process image in place.
func platformExec(argv0 string, argv, envv []string) error {
	return unix.Exec(argv0, argv, envv)
}
