package services

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrBottleNotAvailable = errors.New("bottle not available for this operation")
	ErrInvalidRequest     = errors.New("invalid request")
)
