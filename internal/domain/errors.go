package domain

import "errors"

// Registry operations fail with one of these signals; callers match with
// errors.Is. State is never left partially mutated by a failed operation.
var (
	ErrNotFound        = errors.New("server not found")
	ErrNotAuthorized   = errors.New("not authorized")
	ErrBanned          = errors.New("player is banned from this server")
	ErrServerFull      = errors.New("server is full")
	ErrPaymentRequired = errors.New("payment approval required for private servers")

	// ErrPersistence wraps a failed durable write. The in-memory mutation is
	// kept and remains authoritative until the next successful write.
	ErrPersistence = errors.New("persistence failed")
)
