package userservice

import "errors"

// ErrUserAlreadyExists indicates the uid or uname is taken.
var ErrUserAlreadyExists = errors.New("user already exists")
