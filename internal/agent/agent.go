package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-device/internal/connectivity"
)

const defaultPollInterval = time.Second

// Supervisor keeps the platform session ready.
type Supervisor interface {
	EnsureConnected(ctx context.Context) error
	Pause(ctx context.Context) error
}

// Dispatcher handles one inbound message. router.Router satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, topic string, payload []byte) error
}

// IntervalSource supplies the current heartbeat period.
type IntervalSource interface {
	PublishInterval() time.Duration
}

// StatusReporter publishes on the status topic. status.Publisher satisfies it.
type StatusReporter interface {
	Status(payload any)
}

// HeartbeatRecorder records heartbeats. Optional.
type HeartbeatRecorder interface {
	RecordHeartbeat(uptime time.Duration)
}

// Logger defines the logging interface used by the Agent.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config holds the loop settings.
type Config struct {
	// PollInterval bounds how long an idle iteration waits before the
	// session is checked again.
	PollInterval time.Duration

	// Version is reported in heartbeats.
	Version string
}

// Dependencies are the agent's collaborators.
type Dependencies struct {
	Intake     *Intake
	Supervisor Supervisor
	Dispatcher Dispatcher
	Interval   IntervalSource
	Status     StatusReporter

	// Stop, if set, is closed when the loop must end. system.Restarter's
	// Done channel is wired here.
	Stop <-chan struct{}
}

// Agent is the device main loop. Run must only be called once.
type Agent struct {
	cfg      Config
	deps     Dependencies
	recorder HeartbeatRecorder
	logger   Logger

	now      func() time.Time
	started  time.Time
	lastBeat time.Time
}

// New creates an agent. A zero PollInterval takes the default.
func New(cfg Config, deps Dependencies) *Agent {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return &Agent{
		cfg:    cfg,
		deps:   deps,
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the agent.
func (a *Agent) SetLogger(logger Logger) {
	a.logger = logger
}

// SetRecorder enables event recording of heartbeats.
func (a *Agent) SetRecorder(recorder HeartbeatRecorder) {
	a.recorder = recorder
}

// Run drives the loop until ctx is cancelled or a restart is requested.
//
// Returns:
//   - nil when ctx is cancelled
//   - ErrRestartRequested once Stop is closed
//   - an error wrapping connectivity.ErrRestarting when the supervisor asked
//     for a restart that did not replace the process
func (a *Agent) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if a.deps.Stop != nil {
		go func() {
			select {
			case <-a.deps.Stop:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	a.started = a.now()
	a.lastBeat = a.started
	a.logger.Info("agent loop started", "intake_depth", a.deps.Intake.Depth())

	for {
		if a.stopped() {
			return ErrRestartRequested
		}
		if ctx.Err() != nil {
			return nil
		}

		if err := a.deps.Supervisor.EnsureConnected(ctx); err != nil {
			switch {
			case errors.Is(err, connectivity.ErrRestarting):
				return fmt.Errorf("agent stopped: %w", err)
			case ctx.Err() != nil:
				continue
			case errors.Is(err, connectivity.ErrSubscribeFailed):
				a.logger.Warn("session not ready, retrying", "error", err)
				_ = a.deps.Supervisor.Pause(ctx) //nolint:errcheck // Only fails on cancellation, checked above
				continue
			default:
				return fmt.Errorf("ensuring connection: %w", err)
			}
		}

		a.step(ctx)
	}
}

// stopped reports whether Stop has been closed.
func (a *Agent) stopped() bool {
	select {
	case <-a.deps.Stop:
		return true
	default:
		return false
	}
}

// step waits for one message, the next heartbeat or the poll interval,
// whichever comes first.
func (a *Agent) step(ctx context.Context) {
	timer := time.NewTimer(a.wait())
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case msg := <-a.deps.Intake.ch:
		a.dispatch(ctx, msg)
	case <-timer.C:
	}

	if a.stopped() {
		return
	}
	a.maybeHeartbeat()
}

// wait returns how long the loop may idle.
func (a *Agent) wait() time.Duration {
	wait := a.cfg.PollInterval
	if interval := a.deps.Interval.PublishInterval(); interval > 0 {
		until := a.lastBeat.Add(interval).Sub(a.now())
		if until < wait {
			wait = until
		}
	}
	if wait < 0 {
		wait = 0
	}
	return wait
}

func (a *Agent) dispatch(ctx context.Context, msg message) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("panic dispatching message", "topic", msg.topic, "panic", r)
		}
	}()

	if err := a.deps.Dispatcher.Dispatch(ctx, msg.topic, msg.payload); err != nil {
		a.logger.Warn("message not handled", "topic", msg.topic, "error", err)
		return
	}
	a.logger.Debug("message handled", "topic", msg.topic)
}

// maybeHeartbeat publishes {"d":{"uptime":<s>,"version":"..."}} once the
// current interval has elapsed since the last one.
func (a *Agent) maybeHeartbeat() {
	interval := a.deps.Interval.PublishInterval()
	if interval <= 0 {
		return
	}
	now := a.now()
	if now.Sub(a.lastBeat) < interval {
		return
	}
	a.lastBeat = now

	uptime := now.Sub(a.started)
	a.deps.Status.Status(map[string]any{
		"uptime":  int64(uptime / time.Second),
		"version": a.cfg.Version,
	})
	if a.recorder != nil {
		a.recorder.RecordHeartbeat(uptime)
	}
}
