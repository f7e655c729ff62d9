package store

import "errors"

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("already exists")

	// ErrClaimLost is returned when a conditional task update fails because
	// the caller no longer holds the claim. Not an error condition for the
	// worker: its result is redundant and must simply be discarded.
	ErrClaimLost = errors.New("claim no longer held")

	// ErrInvalidTransition is returned when a scan status update violates
	// the monotonic transition table.
	ErrInvalidTransition = errors.New("illegal scan status transition")
)
