package userdb

import (
	"errors"

	"github.com/uptrace/bun/driver/pgdriver"
)

// Sentinel errors for the user repository layer.
// These indicate infrastructure-level outcomes (presence/absence of rows), not
// domain validation failures.
var (
	// ErrNotFound indicates the requested user/row does not exist.
	ErrNotFound = errors.New("user record not found")

	// ErrUsernameTaken indicates the username unique constraint rejected an insert.
	ErrUsernameTaken = errors.New("username already taken")
)

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.IntegrityViolation() && pgErr.Field('C') == "23505"
	}
	return false
}
