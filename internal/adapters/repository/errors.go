package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrInvalidQuery      = errors.New("invalid store query")
	ErrUnsupportedDriver = errors.New("unsupported store driver")
	ErrClosed            = errors.New("store closed")
	ErrNoRows            = errors.New("no rows to insert")
)
