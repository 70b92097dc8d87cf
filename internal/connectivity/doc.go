// Package connectivity keeps the device connected to the platform.
//
// Supervisor.EnsureConnected walks the connection states
//
//	Disconnected -> AcquiringNetwork -> AcquiringSession -> Subscribing -> Ready
//
// and blocks until Ready, retrying as needed. Waiting decisions come from two
// small state machines with a Tick(now, reset) Action method, so the retry
// policy can be tested without timers or hardware:
//
//   - LinkWatchdog, consulted while the network link is down. It restarts
//     the device when the reset line is asserted or when the link has been
//     down longer than the watchdog window.
//   - SessionRetry, consulted after a failed session attempt. It restarts
//     only on the reset line; otherwise it retries forever after a fixed
//     backoff.
//
// A restart is final. EnsureConnected returns ErrRestarting and the caller
// stops its loop.
package connectivity
