package service

import "errors"

var (
	// ErrUnauthorized is returned when an owned append has no live, verified request.
	ErrUnauthorized = errors.New("address has no verified validation request")
	// ErrInvalidRequest covers malformed input such as a missing wallet address.
	ErrInvalidRequest = errors.New("invalid request")
)
