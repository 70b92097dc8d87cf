package ota

import "errors"

// Domain errors for firmware updates.
var (
	// ErrIncompleteRequest is returned when server, port or path is missing.
	ErrIncompleteRequest = errors.New("ota: incomplete upgrade request")

	// ErrInvalidTarget is returned when the target cannot form a valid URL.
	ErrInvalidTarget = errors.New("ota: invalid upgrade target")

	// ErrUnexpectedStatus is returned when the server answers with neither 200 nor 304.
	ErrUnexpectedStatus = errors.New("ota: unexpected HTTP status")

	// ErrImageTooLarge is returned when the image exceeds the configured maximum.
	ErrImageTooLarge = errors.New("ota: image too large")

	// ErrEmptyImage is returned when the server sends no bytes.
	ErrEmptyImage = errors.New("ota: empty image")

	// ErrChecksumMismatch is returned when the image does not match its X-MD5 header.
	ErrChecksumMismatch = errors.New("ota: checksum mismatch")
)
