package rounddb

import (
	"errors"

	"github.com/uptrace/bun/driver/pgdriver"
)

var (
	// ErrNotFound indicates the requested round does not exist or is not in
	// the expected state.
	ErrNotFound = errors.New("round record not found")

	// ErrActiveRoundExists is returned when inserting a second ACTIVE round
	// trips the single-active unique index.
	ErrActiveRoundExists = errors.New("an active round already exists")
)

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a Postgres unique constraint failure.
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == uniqueViolation
	}
	return false
}
