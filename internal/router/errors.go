package router

import "errors"

var (
	// ErrMalformedPayload is returned when an update or command payload is not valid JSON.
	ErrMalformedPayload = errors.New("router: malformed payload")

	// ErrRestartFailed is returned when a requested restart could not be started.
	ErrRestartFailed = errors.New("router: restart failed")
)
