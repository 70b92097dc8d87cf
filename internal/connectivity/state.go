package connectivity

import "time"

// State is the connection state.
type State int

// Connection states, in the order they are normally reached.
const (
	Disconnected State = iota
	AcquiringNetwork
	AcquiringSession
	Subscribing
	Ready
)

// String returns the state name used in logs and event records.
func (s State) String() string {
	switch s {
	case AcquiringNetwork:
		return "acquiring_network"
	case AcquiringSession:
		return "acquiring_session"
	case Subscribing:
		return "subscribing"
	case Ready:
		return "ready"
	default:
		return "disconnected"
	}
}

// Action is what a retry state machine decides on a tick.
type Action int

// Tick actions.
const (
	// ActionWait means keep waiting for the condition to clear.
	ActionWait Action = iota
	// ActionRetry means try the failed step again after the backoff.
	ActionRetry
	// ActionRestart means give up and restart the device.
	ActionRestart
)

// String returns the action name for logs.
func (a Action) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionRestart:
		return "restart"
	default:
		return "wait"
	}
}

// LinkWatchdog restarts the device when the network link stays down for
// longer than its window.
type LinkWatchdog struct {
	window time.Duration
	lastUp time.Time
}

// NewLinkWatchdog creates a watchdog whose window starts at now.
func NewLinkWatchdog(window time.Duration, now time.Time) *LinkWatchdog {
	return &LinkWatchdog{window: window, lastUp: now}
}

// LinkUp records that the link was seen up at now.
func (w *LinkWatchdog) LinkUp(now time.Time) {
	w.lastUp = now
}

// Deadline returns the instant after which Tick restarts.
func (w *LinkWatchdog) Deadline() time.Time {
	return w.lastUp.Add(w.window)
}

// Tick is called on every poll while the link is down.
// It returns ActionRestart if reset is asserted or now is past the
// deadline, and ActionWait otherwise.
func (w *LinkWatchdog) Tick(now time.Time, reset bool) Action {
	if reset {
		return ActionRestart
	}
	if now.Sub(w.lastUp) > w.window {
		return ActionRestart
	}
	return ActionWait
}

// SessionRetry decides what follows a failed session attempt. There is no
// attempt limit: with the link up, only the reset line escalates.
type SessionRetry struct {
	failures int
}

// Tick records a failure and returns ActionRestart if reset is asserted,
// ActionRetry otherwise.
func (r *SessionRetry) Tick(_ time.Time, reset bool) Action {
	r.failures++
	if reset {
		return ActionRestart
	}
	return ActionRetry
}

// Failures returns the consecutive failures since the last success.
func (r *SessionRetry) Failures() int {
	return r.failures
}

// Succeeded clears the failure count.
func (r *SessionRetry) Succeeded() {
	r.failures = 0
}
