package userdb

import (
	"context"

	"github.com/uptrace/bun"
)

// FakeRepository is a fake implementation of Repository for testing.
type FakeRepository struct {
	CreateUserFn       func(ctx context.Context, db bun.IDB, user *User) error
	GetUserByIDFn      func(ctx context.Context, db bun.IDB, userID int64) (*User, error)
	GetUsersByIDsFn    func(ctx context.Context, db bun.IDB, userIDs []int64) ([]*User, error)
	ApplyRatingDeltaFn func(ctx context.Context, db bun.IDB, userID int64, delta int) (int, error)
	ListByRatingFn     func(ctx context.Context, db bun.IDB, limit int) ([]*User, error)
}

func (f *FakeRepository) CreateUser(ctx context.Context, db bun.IDB, user *User) error {
	if f.CreateUserFn != nil {
		return f.CreateUserFn(ctx, db, user)
	}
	return nil
}

func (f *FakeRepository) GetUserByID(ctx context.Context, db bun.IDB, userID int64) (*User, error) {
	if f.GetUserByIDFn != nil {
		return f.GetUserByIDFn(ctx, db, userID)
	}
	return nil, ErrNotFound
}

func (f *FakeRepository) GetUsersByIDs(ctx context.Context, db bun.IDB, userIDs []int64) ([]*User, error) {
	if f.GetUsersByIDsFn != nil {
		return f.GetUsersByIDsFn(ctx, db, userIDs)
	}
	return nil, nil
}

func (f *FakeRepository) ApplyRatingDelta(ctx context.Context, db bun.IDB, userID int64, delta int) (int, error) {
	if f.ApplyRatingDeltaFn != nil {
		return f.ApplyRatingDeltaFn(ctx, db, userID, delta)
	}
	return DefaultRating + delta, nil
}

func (f *FakeRepository) ListByRating(ctx context.Context, db bun.IDB, limit int) ([]*User, error) {
	if f.ListByRatingFn != nil {
		return f.ListByRatingFn(ctx, db, limit)
	}
	return nil, nil
}

var _ Repository = (*FakeRepository)(nil)
