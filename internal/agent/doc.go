// Package agent runs the device's main loop.
//
// The loop is single-threaded: each iteration makes sure the platform
// session is ready, dispatches at most one inbound message and publishes a
// heartbeat when one is due. MQTT callbacks never touch device state
// directly; they only enqueue into a bounded intake queue that the loop
// drains, so the configuration store and the connection state are only
// ever used from the loop goroutine.
package agent
