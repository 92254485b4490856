package model

import "errors"

// Domain errors shared by the service and the HTTP layer. The not-found
// messages are returned to clients verbatim.
var (
	ErrListNotFound   = errors.New("List not found")
	ErrItemNotFound   = errors.New("Item not found")
	ErrInvalidPayload = errors.New("invalid payload")
)
