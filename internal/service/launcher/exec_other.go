//go:build !unix

package launcher

import (
	"errors"
	"os"
	"os/exec"
)

// platformExec runs the server as a child with inherited stdio and exits
// with its status. It returns only when the child could not be started.
func platformExec(argv0 string, argv, envv []string) error {
	cmd := &exec.Cmd{
		Path:   argv0,
		Args:   argv,
		Env:    envv,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}

	if err := cmd.Start(); err != nil {
		return err
	}

	code := 0

	var exitErr *exec.ExitError

	switch err := cmd.Wait(); {
	case errors.As(err, &exitErr):
		code = exitErr.ExitCode()
	case err != nil:
		code = 1
	}

	os.Exit(code)

	return nil
}
