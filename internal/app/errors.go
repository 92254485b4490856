package service

import (
	"errors"

	"github.com/okian/sopchecker/internal/domain/model"
)

// Errors returned by Service.
var (
	ErrListNotFound   = model.ErrListNotFound
	ErrItemNotFound   = model.ErrItemNotFound
	ErrInvalidPayload = model.ErrInvalidPayload
	ErrNoStore        = errors.New("service has no store")
)
