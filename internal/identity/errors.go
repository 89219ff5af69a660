package identity

import "errors"

// Repository errors.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("user already exists")
)

// Authentication errors.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTokenMissing       = errors.New("no token provided")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
)

// Authorization errors.
var (
	ErrForbidden = errors.New("not allowed to manage this user")
)
