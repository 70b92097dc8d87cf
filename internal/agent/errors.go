package agent

import "errors"

var (
	// ErrRestartRequested is returned by Run when the Stop channel closed,
	// meaning a restart has already shut down the session and storage.
	ErrRestartRequested = errors.New("agent: stopped for restart")
)

// ErrIntakeFull is returned by the subscription handler when the intake
// queue has no room. The message is dropped.
var ErrIntakeFull = errors.New("agent: intake queue full")
