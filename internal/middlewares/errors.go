package middlewares

import "errors"

var (
	ErrMissingToken    = errors.New("authorization token is required")
	ErrMalformedHeader = errors.New("authorization header must be Bearer <token>")
	ErrInvalidToken    = errors.New("invalid or expired token")
)
