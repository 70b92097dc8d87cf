package connectivity

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-device/internal/configstore"
	"github.com/nerrad567/gray-logic-device/internal/infrastructure/mqtt"
)

// Link is the network link beneath the MQTT session.
type Link interface {
	// Up reports whether the link is currently usable.
	Up() bool

	// Acquire starts (re)acquiring the link. It need not wait for the link
	// to come up; the supervisor polls Up afterwards.
	Acquire(ctx context.Context) error
}

// Session is the MQTT session to the platform.
type Session interface {
	IsConnected() bool
	Connect() error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Announcer publishes the device's management announcement.
// status.Publisher satisfies it.
type Announcer interface {
	Publish(topic string, v any) error
	Info(payload any)
}

// MetadataSource supplies the metadata current at announcement time.
type MetadataSource interface {
	Metadata() configstore.Metadata
}

// ResetSignal is the manual "force restart" input.
type ResetSignal interface {
	Asserted() bool
}

// Restarter restarts the device.
type Restarter interface {
	Restart(reason string) error
}

// EventRecorder records state transitions. Optional.
type EventRecorder interface {
	RecordConnectivity(state, detail string)
}

// Logger defines the logging interface used by the Supervisor.
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

// Config holds the supervisor timings.
type Config struct {
	// LinkPollInterval is the wait between link checks while it is down.
	LinkPollInterval time.Duration

	// SessionBackoff is the wait after a failed session attempt.
	SessionBackoff time.Duration

	// WatchdogWindow is how long the link may stay down before a restart.
	WatchdogWindow time.Duration

	// QoS is used for every subscription.
	QoS byte
}

// Dependencies are the supervisor's collaborators. Clock defaults to
// SystemClock when nil.
type Dependencies struct {
	Link      Link
	Session   Session
	Handler   mqtt.MessageHandler
	Announcer Announcer
	Metadata  MetadataSource
	Reset     ResetSignal
	Restarter Restarter
	Clock     Clock
}

// Supervisor owns the connection state. It is driven from a single
// goroutine and is not safe for concurrent use.
type Supervisor struct {
	cfg  Config
	deps Dependencies

	state    State
	watchdog *LinkWatchdog
	retry    SessionRetry
	topics   mqtt.Topics

	recorder EventRecorder
	logger   Logger
}

// NewSupervisor creates a supervisor. The link watchdog window starts now.
func NewSupervisor(cfg Config, deps Dependencies) *Supervisor {
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	return &Supervisor{
		cfg:      cfg,
		deps:     deps,
		state:    Disconnected,
		watchdog: NewLinkWatchdog(cfg.WatchdogWindow, deps.Clock.Now()),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the supervisor.
func (s *Supervisor) SetLogger(logger Logger) {
	s.logger = logger
}

// SetRecorder enables event recording of state transitions.
func (s *Supervisor) SetRecorder(recorder EventRecorder) {
	s.recorder = recorder
}

// State returns the current connection state.
func (s *Supervisor) State() State {
	return s.state
}

// EnsureConnected blocks until the session is Ready.
//
// Returns:
//   - nil once Ready (immediately if already Ready and still connected)
//   - ErrSubscribeFailed if a subscription failed; call again after Pause
//   - ErrRestarting once a restart has been requested
//   - ctx.Err() if ctx is cancelled while waiting
func (s *Supervisor) EnsureConnected(ctx context.Context) error {
	if s.state == Ready && s.deps.Session.IsConnected() && s.deps.Link.Up() {
		s.watchdog.LinkUp(s.deps.Clock.Now())
		return nil
	}
	if s.state == Ready {
		s.logger.Warn("connection lost")
		s.setState(Disconnected, "connection lost")
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !s.deps.Link.Up() {
			if err := s.acquireLink(ctx); err != nil {
				return err
			}
		}
		s.watchdog.LinkUp(s.deps.Clock.Now())

		if s.deps.Session.IsConnected() {
			break
		}

		s.setState(AcquiringSession, "")
		err := s.deps.Session.Connect()
		if err == nil {
			s.retry.Succeeded()
			break
		}

		reset := s.deps.Reset.Asserted()
		action := s.retry.Tick(s.deps.Clock.Now(), reset)
		s.logger.Warn("session connect failed",
			"error", err,
			"failures", s.retry.Failures(),
			"action", action.String(),
		)
		s.record(AcquiringSession, err.Error())

		if action == ActionRestart {
			return s.restart("reset line asserted")
		}
		if err := s.deps.Clock.Sleep(ctx, s.cfg.SessionBackoff); err != nil {
			return err
		}
	}

	if err := s.subscribe(); err != nil {
		return err
	}

	s.setState(Ready, "")
	s.announce()
	return nil
}

// Pause waits one session backoff. Callers use it after ErrSubscribeFailed.
func (s *Supervisor) Pause(ctx context.Context) error {
	return s.deps.Clock.Sleep(ctx, s.cfg.SessionBackoff)
}

// acquireLink asks for the link and polls until it is up, consulting the
// watchdog on every poll.
func (s *Supervisor) acquireLink(ctx context.Context) error {
	s.setState(AcquiringNetwork, "")
	if err := s.deps.Link.Acquire(ctx); err != nil {
		s.logger.Warn("link acquisition failed", "error", err)
	}

	for !s.deps.Link.Up() {
		reset := s.deps.Reset.Asserted()
		switch s.watchdog.Tick(s.deps.Clock.Now(), reset) {
		case ActionRestart:
			if reset {
				return s.restart("reset line asserted")
			}
			return s.restart("link watchdog expired")
		case ActionWait, ActionRetry:
		}

		if err := s.deps.Clock.Sleep(ctx, s.cfg.LinkPollInterval); err != nil {
			return err
		}
	}

	s.logger.Info("network link up")
	return nil
}

// subscribe subscribes to every topic in registry order, stopping at the
// first failure.
func (s *Supervisor) subscribe() error {
	s.setState(Subscribing, "")
	for _, topic := range s.topics.Subscriptions() {
		if err := s.deps.Session.Subscribe(topic, s.cfg.QoS, s.deps.Handler); err != nil {
			s.logger.Warn("subscribe failed", "topic", topic, "error", err)
			s.setState(Disconnected, err.Error())
			return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
		}
		s.logger.Debug("subscribed", "topic", topic)
	}
	return nil
}

// announce publishes the manage message and, if it went out, mirrors it to
// the info topic.
func (s *Supervisor) announce() {
	body := map[string]any{
		"metadata": s.deps.Metadata.Metadata(),
		"supports": map[string]bool{"deviceActions": true},
	}

	if err := s.deps.Announcer.Publish(s.topics.Manage(), map[string]any{"d": body}); err != nil {
		s.logger.Warn("manage publish failed", "error", err)
		return
	}
	s.deps.Announcer.Info(body)
}

func (s *Supervisor) restart(reason string) error {
	s.logger.Error("restarting device", "reason", reason, "state", s.state.String())
	s.record(s.state, reason)

	if err := s.deps.Restarter.Restart(reason); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRestarting, reason, err)
	}
	return fmt.Errorf("%w: %s", ErrRestarting, reason)
}

func (s *Supervisor) setState(next State, detail string) {
	if next == s.state {
		return
	}
	s.logger.Info("connection state changed", "from", s.state.String(), "to", next.String())
	s.state = next
	s.record(next, detail)
}

func (s *Supervisor) record(state State, detail string) {
	if s.recorder != nil {
		s.recorder.RecordConnectivity(state.String(), detail)
	}
}
