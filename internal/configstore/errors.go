package configstore

import "errors"

// Domain errors for the configuration store.
var (
	// ErrNotProvisioned is returned by Load when neither the repository nor
	// the seed provides a complete identity.
	ErrNotProvisioned = errors.New("configstore: device not provisioned")

	// ErrInvalidMetadata is returned when a metadata value is not a JSON object.
	ErrInvalidMetadata = errors.New("configstore: metadata must be an object")

	// ErrPersistFailed is returned when a change could not be written to storage.
	// The in-memory value has still been updated.
	ErrPersistFailed = errors.New("configstore: persist failed")
)
