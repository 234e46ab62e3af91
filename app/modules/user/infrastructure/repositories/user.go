package userdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new user repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// CreateUser inserts a new user. Rating defaults to 1000 when left at zero.
func (r *Impl) CreateUser(ctx context.Context, db bun.IDB, user *User) error {
	db = r.resolveDB(db)
	if user.Rating == 0 {
		user.Rating = DefaultRating
	}
	_, err := db.NewInsert().
		Model(user).
		Returning("id, created_at, updated_at").
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by id.
func (r *Impl) GetUserByID(ctx context.Context, db bun.IDB, userID int64) (*User, error) {
	db = r.resolveDB(db)
	user := new(User)
	err := db.NewSelect().
		Model(user).
		Where("u.id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user, nil
}

// GetUsersByIDs retrieves every user in userIDs that exists.
func (r *Impl) GetUsersByIDs(ctx context.Context, db bun.IDB, userIDs []int64) ([]*User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	db = r.resolveDB(db)
	var users []*User
	err := db.NewSelect().
		Model(&users).
		Where("u.id IN (?)", bun.In(userIDs)).
		OrderExpr("u.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get users by ids: %w", err)
	}
	return users, nil
}

// ApplyRatingDelta adds delta to the user's rating in a single statement and
// returns the new rating.
func (r *Impl) ApplyRatingDelta(ctx context.Context, db bun.IDB, userID int64, delta int) (int, error) {
	db = r.resolveDB(db)
	var rating int
	err := db.NewUpdate().
		Model((*User)(nil)).
		Set("rating = rating + ?", delta).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", userID).
		Returning("rating").
		Scan(ctx, &rating)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to apply rating delta: %w", err)
	}
	return rating, nil
}

// ListByRating returns up to limit users ordered by rating, highest first.
func (r *Impl) ListByRating(ctx context.Context, db bun.IDB, limit int) ([]*User, error) {
	db = r.resolveDB(db)
	var users []*User
	err := db.NewSelect().
		Model(&users).
		OrderExpr("u.rating DESC, u.id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users by rating: %w", err)
	}
	return users, nil
}
