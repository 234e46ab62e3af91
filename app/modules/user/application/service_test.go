package userservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	userdb "github.com/Black-And-White-Club/pushup-bot/app/modules/user/infrastructure/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func newTestService(repo userdb.Repository) *UserServiceImpl {
	return NewUserService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

func TestUserServiceImpl_RegisterUser(t *testing.T) {
	dbErr := errors.New("connection reset")

	tests := []struct {
		name        string
		username    string
		displayName string
		createErr   error
		wantErr     error
		wantCreated bool
		wantDisplay string
	}{
		{name: "registers with display name", username: "alice", displayName: "Alice A", wantCreated: true, wantDisplay: "Alice A"},
		{name: "display name falls back to username", username: "  bob ", wantCreated: true, wantDisplay: "bob"},
		{name: "empty username", username: "   ", wantErr: ErrInvalidUsername},
		{name: "long username", username: strings.Repeat("x", 65), wantErr: ErrInvalidUsername},
		{name: "long display name", username: "carol", displayName: strings.Repeat("y", 65), wantErr: ErrInvalidDisplayName},
		{name: "duplicate username", username: "dave", createErr: userdb.ErrUsernameTaken, wantErr: ErrUserAlreadyExists},
		{name: "storage failure", username: "erin", createErr: dbErr, wantErr: dbErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created := false
			repo := &userdb.FakeRepository{
				CreateUserFn: func(ctx context.Context, db bun.IDB, user *userdb.User) error {
					created = true
					if tt.createErr != nil {
						return tt.createErr
					}
					assert.Equal(t, userdb.DefaultRating, user.Rating)
					user.ID = 42
					return nil
				},
			}

			view, err := newTestService(repo).RegisterUser(context.Background(), tt.username, tt.displayName)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, view)
				assert.Equal(t, tt.createErr != nil, created)
				return
			}
			require.NoError(t, err)
			assert.True(t, created)
			assert.Equal(t, int64(42), view.ID)
			assert.Equal(t, tt.wantDisplay, view.DisplayName)
			assert.Equal(t, userdb.DefaultRating, view.Rating)
		})
	}
}

func TestUserServiceImpl_GetUser(t *testing.T) {
	repo := &userdb.FakeRepository{
		GetUserByIDFn: func(ctx context.Context, db bun.IDB, userID int64) (*userdb.User, error) {
			if userID == 7 {
				return &userdb.User{ID: 7, Username: "grace", Rating: 1003}, nil
			}
			return nil, userdb.ErrNotFound
		},
	}
	svc := newTestService(repo)

	view, err := svc.GetUser(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "grace", view.DisplayName)
	assert.Equal(t, 1003, view.Rating)

	_, err = svc.GetUser(context.Background(), 8)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserServiceImpl_ListTopRated(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		wantLimit int
	}{
		{name: "default", limit: 0, wantLimit: 10},
		{name: "negative", limit: -3, wantLimit: 10},
		{name: "within range", limit: 25, wantLimit: 25},
		{name: "capped", limit: 500, wantLimit: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotLimit int
			repo := &userdb.FakeRepository{
				ListByRatingFn: func(ctx context.Context, db bun.IDB, limit int) ([]*userdb.User, error) {
					gotLimit = limit
					return []*userdb.User{
						{ID: 1, Username: "a", Rating: 1010},
						{ID: 2, Username: "b", DisplayName: "Bee", Rating: 990},
					}, nil
				},
			}

			views, err := newTestService(repo).ListTopRated(context.Background(), tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLimit, gotLimit)
			require.Len(t, views, 2)
			assert.Equal(t, "Bee", views[1].DisplayName)
		})
	}
}
