package common

import "errors"

// Sentinel errors shared across layers. Callers should use errors.Is to
// match these values.
var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Transfer admission errors.
	ErrQuotaExceeded = errors.New("exceeded maximum allocated download limit")
	ErrSizeExceeded  = errors.New("file size exceeds remaining upload limit")

	// ErrDuplicateKey signals a unique violation on a file key column.
	// Recovered locally by regenerating the key pair, never by overwriting.
	ErrDuplicateKey = errors.New("duplicate file key")

	// ErrStorage wraps persistence and byte-I/O failures.
	ErrStorage = errors.New("storage error")
)
