package services

import "errors"

var (
	ErrValidation    = errors.New("validation failed")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("not found")
	ErrNicknameTaken = errors.New("nickname taken")
)

// ClientError carries the message shown to the caller. Kind is one of the
// sentinels above and is what handlers match on.
type ClientError struct {
	Kind    error
	Message string
}

func (e *ClientError) Error() string { return e.Message }

func (e *ClientError) Unwrap() error { return e.Kind }

func clientError(kind error, message string) error {
	return &ClientError{Kind: kind, Message: message}
}
