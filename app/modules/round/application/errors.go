package roundservice

import (
	"errors"
	"fmt"
)

// Domain errors for the round service.
var (
	// ErrRoundNotFound indicates a round does not exist.
	ErrRoundNotFound = errors.New("round not found")

	// ErrInvalidContribution indicates a non-positive contribution amount.
	ErrInvalidContribution = errors.New("contribution must be greater than zero")

	// ErrInvalidUser indicates a missing or malformed user id.
	ErrInvalidUser = errors.New("invalid user id")

	// ErrConcurrencyConflict indicates a lost race on round creation or
	// completion. The service retries these internally.
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrRoundClosed indicates the round stopped accepting contributions
	// between resolution and the write.
	ErrRoundClosed = fmt.Errorf("%w: round is no longer active", ErrConcurrencyConflict)

	// ErrRatingRecordMissing indicates the account subsystem has no rating
	// row for a participant.
	ErrRatingRecordMissing = errors.New("rating record not found")
)

// ValidationError reports caller input rejected before any storage access.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// StorageError wraps a backend failure, including a concurrency conflict that
// outlived the retry budget.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure in %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsStorageError reports whether err is a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// asStorageError wraps err unless it is already a caller-facing error.
func asStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsValidationError(err) || IsStorageError(err) || errors.Is(err, ErrRoundNotFound) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
