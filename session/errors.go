package session

import "errors"

// Validation errors: local and recoverable, returned to the caller with no
// state mutated.
var (
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientPosition = errors.New("insufficient position")
)

// Data-availability errors: fatal to starting a session.
var (
	ErrNoHistory           = errors.New("no historical data")
	ErrInsufficientHistory = errors.New("insufficient historical data")
)

// ErrSessionEnded is returned for commands issued after End.
var ErrSessionEnded = errors.New("session has ended")
