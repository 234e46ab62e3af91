package userdb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository is the account store. The round engine reads names and writes
// ratings through it.
// Every method accepts an optional bun.IDB so callers can join a transaction;
// nil falls back to the repository's connection.
type Repository interface {
	CreateUser(ctx context.Context, db bun.IDB, user *User) error
	GetUserByID(ctx context.Context, db bun.IDB, userID int64) (*User, error)
	GetUsersByIDs(ctx context.Context, db bun.IDB, userIDs []int64) ([]*User, error)
	ApplyRatingDelta(ctx context.Context, db bun.IDB, userID int64, delta int) (int, error)
	ListByRating(ctx context.Context, db bun.IDB, limit int) ([]*User, error)
}
