package service

import "errors"

var (
	ErrForbidden  = errors.New("caller is not allowed to perform this operation")
	ErrNotStarted = errors.New("reservation was never started")
	ErrValidation = errors.New("invalid input")

	// ErrConcurrencyConflict is surfaced when an engine transaction keeps
	// losing lock races past the retry budget.
	ErrConcurrencyConflict = errors.New("operation aborted due to concurrent updates")
)
