package userservice

import "errors"

// Domain errors for the user service.
var (
	// ErrUserAlreadyExists indicates the username is already registered.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrInvalidUsername indicates an empty or oversized username.
	ErrInvalidUsername = errors.New("username must be 1-64 characters")

	// ErrInvalidDisplayName indicates an oversized display name.
	ErrInvalidDisplayName = errors.New("display name must be at most 64 characters")

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")
)
