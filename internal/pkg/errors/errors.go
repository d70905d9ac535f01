package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources. Permission-scoped
	// lookups also return it so existence is never leaked to the requester.
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied is returned when the requester is not one of the
	// principals the operation requires (creator, receiver, sender, ...).
	ErrPermissionDenied = errors.New("permission denied")
	// ErrDuplicateKey is returned by stores when an insert violates a unique
	// constraint. Callers that expect the violation (idempotent retries) may
	// recover from it; any other integrity error passes through untranslated.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
)
