package userservice

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	userdb "github.com/Black-And-White-Club/pushup-bot/app/modules/user/infrastructure/repositories"
)

// RegisterUser creates an account with the default rating. displayName may
// be empty, in which case the username is shown.
func (s *UserServiceImpl) RegisterUser(ctx context.Context, username, displayName string) (*UserView, error) {
	return withTelemetry(s, ctx, "RegisterUser", func(ctx context.Context) (*UserView, error) {
		username = strings.TrimSpace(username)
		displayName = strings.TrimSpace(displayName)

		if username == "" || utf8.RuneCountInString(username) > maxNameLength {
			return nil, ErrInvalidUsername
		}
		if utf8.RuneCountInString(displayName) > maxNameLength {
			return nil, ErrInvalidDisplayName
		}

		user := &userdb.User{
			Username:    username,
			DisplayName: displayName,
			Rating:      userdb.DefaultRating,
		}
		if err := s.repo.CreateUser(ctx, nil, user); err != nil {
			if errors.Is(err, userdb.ErrUsernameTaken) {
				return nil, ErrUserAlreadyExists
			}
			return nil, wrapRepoError("failed to create user", err)
		}

		s.logger.InfoContext(ctx, "User registered",
			slog.Int64("user_id", user.ID),
			slog.String("username", user.Username),
		)
		view := toView(user)
		return &view, nil
	})
}
