package userdb

import "errors"

// Sentinel errors for the user repository layer.
var (
	// ErrNotFound indicates the requested user does not exist.
	ErrNotFound = errors.New("user record not found")

	// ErrDuplicate indicates the uid or uname is already taken.
	ErrDuplicate = errors.New("user already exists")
)
