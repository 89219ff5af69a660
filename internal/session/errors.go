package session

import "errors"

// Session errors.
var (
	ErrNoSession       = errors.New("no session cookie")
	ErrSessionNotFound = errors.New("session not found or expired")
)
