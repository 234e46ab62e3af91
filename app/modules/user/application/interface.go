package userservice

import (
	"context"
	"time"
)

// Service manages the accounts that contribute to rounds.
type Service interface {
	RegisterUser(ctx context.Context, username, displayName string) (*UserView, error)
	GetUser(ctx context.Context, userID int64) (*UserView, error)
	// ListTopRated returns accounts ordered by rating, highest first.
	ListTopRated(ctx context.Context, limit int) ([]UserView, error)
}

// UserView is an account as returned to callers.
type UserView struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Rating      int       `json:"rating"`
	CreatedAt   time.Time `json:"created_at"`
}
