package userservice

import (
	"context"
	"errors"

	userdb "github.com/Black-And-White-Club/pushup-bot/app/modules/user/infrastructure/repositories"
)

// GetUser returns one account.
func (s *UserServiceImpl) GetUser(ctx context.Context, userID int64) (*UserView, error) {
	return withTelemetry(s, ctx, "GetUser", func(ctx context.Context) (*UserView, error) {
		user, err := s.repo.GetUserByID(ctx, nil, userID)
		if err != nil {
			if errors.Is(err, userdb.ErrNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, wrapRepoError("failed to get user", err)
		}
		view := toView(user)
		return &view, nil
	})
}

// ListTopRated clamps limit to [1, 100], defaulting to 10.
func (s *UserServiceImpl) ListTopRated(ctx context.Context, limit int) ([]UserView, error) {
	return withTelemetry(s, ctx, "ListTopRated", func(ctx context.Context) ([]UserView, error) {
		switch {
		case limit <= 0:
			limit = defaultTopRated
		case limit > maxTopRated:
			limit = maxTopRated
		}

		users, err := s.repo.ListByRating(ctx, nil, limit)
		if err != nil {
			return nil, wrapRepoError("failed to list users", err)
		}
		views := make([]UserView, 0, len(users))
		for _, u := range users {
			views = append(views, toView(u))
		}
		return views, nil
	})
}
