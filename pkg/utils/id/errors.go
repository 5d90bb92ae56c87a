package id

import "errors"

var (
	// ErrInvalidUUID is returned when a UUID string is invalid.
	ErrInvalidUUID = errors.New("invalid UUID format")

	// ErrInvalidULID is returned when a ULID string is invalid.
	ErrInvalidULID = errors.New("invalid ULID format")
)
