package connectivity

import "errors"

var (
	// ErrRestarting is returned once the supervisor has asked for a device restart.
	ErrRestarting = errors.New("connectivity: device restarting")

	// ErrSubscribeFailed is returned when a topic subscription fails.
	// The next EnsureConnected call starts again from the session step.
	ErrSubscribeFailed = errors.New("connectivity: subscribe failed")
)
