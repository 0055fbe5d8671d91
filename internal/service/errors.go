package service

import "errors"

var (
	// ErrInvalidInput covers malformed plates, phones, ids and dates.
	// Reported before any mutation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicatePlate fires when a normalized plate is already
	// registered, active or not.
	ErrDuplicatePlate = errors.New("duplicate plate")

	ErrNotFound = errors.New("not found")

	// ErrInvalidState covers terminal-state violations: re-resolving an
	// exception, closing a closed session, paying a paid or exempted one.
	ErrInvalidState = errors.New("invalid state transition")

	// ErrCapacityExceeded is the lot-full business rule, never bypassed.
	ErrCapacityExceeded = errors.New("parking capacity exceeded")
)
