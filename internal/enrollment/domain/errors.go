package domain

import "errors"

var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrInvalidMetadata  = errors.New("invalid metadata")
	ErrUserNotFound     = errors.New("user not found")
	ErrPersistence      = errors.New("persistence failure")
)
