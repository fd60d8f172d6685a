// Package apperr defines the sentinel errors shared across the service.
// Callers classify failures with errors.Is rather than matching strings.
package apperr

import "errors"

var (
	// ErrNotFound reports that an id or filter matched nothing. Read and
	// delete paths return it as a normal outcome, not a fault.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument reports malformed input. It is returned before
	// any store round-trip happens.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidOperation reports a mutation attempted through a generic
	// path that a type-specific rule forbids.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrUnavailable reports a store connectivity or feed-subscription
	// fault. This layer does not retry it.
	ErrUnavailable = errors.New("store unavailable")
)
