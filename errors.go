package tradejournal

import "errors"

var (
	// ErrAccountNotFound is returned when an account does not exist or is not owned by the user.
	ErrAccountNotFound = errors.New("account not found")
	// ErrNotFound is returned by stores when a trade or dividend does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnknownFormat is returned when an import file matches no known dialect.
	ErrUnknownFormat = errors.New("unknown import format")
	// ErrInvalid is returned when a trade or an account fails validation.
	ErrInvalid = errors.New("invalid")
	// ErrEmptyFile is returned when an import file has no content.
	ErrEmptyFile = errors.New("empty import file")
)
