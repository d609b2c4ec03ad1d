package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kballard/go-shellquote"
	"github.com/mitchellh/go-ps"

	"github.com/oshokin/hy2-bootstrap/internal/domain/node"
	"github.com/oshokin/hy2-bootstrap/internal/logger"
)

var (
	// ErrReplaceFailed is returned when the process could not be handed over.
	ErrReplaceFailed = errors.New("process replace failed")

	errNoLaunch      = errors.New("launch descriptor is empty")
	errNotExecutable = errors.New("binary is not executable")
)

// ExecFunc replaces the current process. It only returns on failure.
type ExecFunc func(argv0 string, argv, envv []string) error

// Launcher performs the final hand-off.
type Launcher struct {
	exec      ExecFunc
	environ   func() []string
	processes func() ([]ps.Process, error)
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithExecFunc overrides the process replace call. Tests use it to capture
// the hand-off instead of losing the test binary.
func WithExecFunc(fn ExecFunc) Option {
	return func(l *Launcher) {
		if fn != nil {
			l.exec = fn
		}
	}
}

// WithProcessLister overrides how running processes are listed.
func WithProcessLister(fn func() ([]ps.Process, error)) Option {
	return func(l *Launcher) {
		if fn != nil {
			l.processes = fn
		}
	}
}

// New returns a Launcher using the platform replace call.
func New(opts ...Option) *Launcher {
	l := &Launcher{
		exec:      platformExec,
		environ:   os.Environ,
		processes: ps.Processes,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Replace hands the process to launch. On success it does not return.
func (l *Launcher) Replace(ctx context.Context, launch *node.Launch) error {
	if launch == nil || launch.Path == "" || len(launch.Args) == 0 {
		return fmt.Errorf("%w: %w", ErrReplaceFailed, errNoLaunch)
	}

	info, err := os.Stat(launch.Path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReplaceFailed, err)
	}

	if info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%w: %s: %w", ErrReplaceFailed, launch.Path, errNotExecutable)
	}

	l.warnIfRunning(ctx, filepath.Base(launch.Path))

	logger.InfoKV(ctx, "🚀 Handing over to the server, this process will be replaced",
		"command", shellquote.Join(launch.Args...))

	// Whatever is buffered would be lost with the old image.
	_ = logger.Logger().Sync()

	err = l.exec(launch.Path, launch.Args, l.environ())
	logger.ErrorKV(ctx, "Server did not take over", "path", launch.Path, "error", err)

	return fmt.Errorf("%w: %w", ErrReplaceFailed, err)
}

// warnIfRunning logs when another process already runs the same executable.
// Two servers on one port would fight over it.
func (l *Launcher) warnIfRunning(ctx context.Context, executable string) {
	processList, err := l.processes()
	if err != nil {
		logger.DebugKV(ctx, "Unable to list processes", "error", err)
		return
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID || process.Executable() != executable {
			continue
		}

		logger.WarnKV(ctx, "Another server process is already running", "pid", process.Pid(), "executable", executable)
	}
}
