package store

import "errors"

var (
	// ErrNotFound is returned when the requested record id does not exist.
	ErrNotFound = errors.New("invoice record not found")
	// ErrInvalidTransition is returned when a state change would move the
	// lifecycle backwards or sideways. It indicates a caller logic error.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
	// ErrDuplicateKey is returned when a caller-supplied id collides with an
	// existing record.
	ErrDuplicateKey = errors.New("duplicate record id")
)
