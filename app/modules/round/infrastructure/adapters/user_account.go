package adapters

import (
	"context"
	"errors"

	roundservice "github.com/Black-And-White-Club/pushup-bot/app/modules/round/application"
	roundtypes "github.com/Black-And-White-Club/pushup-bot/app/modules/round/domain/types"
	userdb "github.com/Black-And-White-Club/pushup-bot/app/modules/user/infrastructure/repositories"
	"github.com/uptrace/bun"
)

// UserAccountAdapter adapts the user repository to the round service
// AccountLookup and RatingStore ports.
type UserAccountAdapter struct {
	users userdb.Repository
}

var (
	_ roundservice.AccountLookup = (*UserAccountAdapter)(nil)
	_ roundservice.RatingStore   = (*UserAccountAdapter)(nil)
)

// NewUserAccountAdapter constructs a new adapter.
func NewUserAccountAdapter(users userdb.Repository) *UserAccountAdapter {
	return &UserAccountAdapter{users: users}
}

func (a *UserAccountAdapter) DisplayName(ctx context.Context, db bun.IDB, userID roundtypes.UserID) (string, error) {
	user, err := a.users.GetUserByID(ctx, db, int64(userID))
	if err != nil {
		if errors.Is(err, userdb.ErrNotFound) {
			return roundtypes.UnknownDisplayName, nil
		}
		return "", err
	}
	return user.Name(), nil
}

func (a *UserAccountAdapter) Rating(ctx context.Context, db bun.IDB, userID roundtypes.UserID) (int, error) {
	user, err := a.users.GetUserByID(ctx, db, int64(userID))
	if err != nil {
		if errors.Is(err, userdb.ErrNotFound) {
			return 0, roundservice.ErrRatingRecordMissing
		}
		return 0, err
	}
	return user.Rating, nil
}

func (a *UserAccountAdapter) ApplyRatingDelta(ctx context.Context, db bun.IDB, userID roundtypes.UserID, delta int) (int, error) {
	rating, err := a.users.ApplyRatingDelta(ctx, db, int64(userID), delta)
	if err != nil {
		if errors.Is(err, userdb.ErrNotFound) {
			return 0, roundservice.ErrRatingRecordMissing
		}
		return 0, err
	}
	return rating, nil
}
