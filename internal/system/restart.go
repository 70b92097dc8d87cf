package system

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/nerrad567/gray-logic-device/internal/infrastructure/config"
)

// ExitCodeRestart is the exit status used in exit mode. A service manager
// configured to restart on failure brings the agent back.
const ExitCodeRestart = 75

// ErrUnknownRestartMode is returned for a mode other than exec, command or exit.
var ErrUnknownRestartMode = errors.New("system: unknown restart mode")

// Logger defines the logging interface used by the Restarter.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Restarter performs a device restart. In exec and exit modes a successful
// Restart does not return.
type Restarter struct {
	mode    string
	command []string
	logger  Logger

	hooksMu sync.Mutex
	hooks   []func()
	once    sync.Once
	done    chan struct{}

	// Process primitives, replaced in tests.
	executable func() (string, error)
	execFn     func(argv0 string, argv []string, envv []string) error
	runFn      func(name string, args ...string) error
	exitFn     func(code int)
}

// NewRestarter creates a restarter for the configured mode.
func NewRestarter(cfg config.RestartConfig) (*Restarter, error) {
	switch cfg.Mode {
	case config.RestartModeExec, config.RestartModeExit:
	case config.RestartModeCommand:
		if len(cfg.Command) == 0 {
			return nil, fmt.Errorf("%w: command mode needs a command", ErrUnknownRestartMode)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRestartMode, cfg.Mode)
	}

	return &Restarter{
		mode:       cfg.Mode,
		command:    cfg.Command,
		logger:     noopLogger{},
		done:       make(chan struct{}),
		executable: os.Executable,
		execFn:     syscall.Exec,
		runFn: func(name string, args ...string) error {
			return exec.Command(name, args...).Run() //nolint:gosec // Command comes from trusted config
		},
		exitFn: os.Exit,
	}, nil
}

// SetLogger sets the logger for the restarter.
func (r *Restarter) SetLogger(logger Logger) {
	r.logger = logger
}

// BeforeRestart registers fn to run once, in registration order, before the
// first restart. Used to close the session and flush storage.
func (r *Restarter) BeforeRestart(fn func()) {
	r.hooksMu.Lock()
	defer r.hooksMu.Unlock()
	r.hooks = append(r.hooks, fn)
}

// Done is closed once the restart hooks have run. By then the session and
// storage are closed, so the caller must stop its work and return.
func (r *Restarter) Done() <-chan struct{} {
	return r.done
}

// Restart restarts the device. It is terminal: hooks run only on the first
// call, and afterwards Done is closed.
//
// exec re-executes the running binary in place. command runs the configured
// command (e.g. "systemctl reboot") and returns. exit terminates the process
// with ExitCodeRestart.
func (r *Restarter) Restart(reason string) error {
	r.logger.Warn("device restart", "reason", reason, "mode", r.mode)
	r.runHooks()

	switch r.mode {
	case config.RestartModeExec:
		path, err := r.executable()
		if err != nil {
			return fmt.Errorf("locating executable: %w", err)
		}
		if err := r.execFn(path, os.Args, os.Environ()); err != nil {
			return fmt.Errorf("re-executing %s: %w", path, err)
		}
		return nil
	case config.RestartModeCommand:
		if err := r.runFn(r.command[0], r.command[1:]...); err != nil {
			return fmt.Errorf("running restart command: %w", err)
		}
		return nil
	case config.RestartModeExit:
		r.exitFn(ExitCodeRestart)
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRestartMode, r.mode)
	}
}

func (r *Restarter) runHooks() {
	r.once.Do(func() {
		r.hooksMu.Lock()
		hooks := append([]func(){}, r.hooks...)
		r.hooksMu.Unlock()

		for _, fn := range hooks {
			func() {
				defer func() {
					if p := recover(); p != nil {
						r.logger.Error("restart hook panicked", "panic", p)
					}
				}()
				fn()
			}()
		}
		close(r.done)
	})
}
