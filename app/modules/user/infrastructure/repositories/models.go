package userdb

import (
	"time"

	"github.com/uptrace/bun"
)

// DefaultRating is the rating every account starts with.
const DefaultRating = 1000

// User is the account record the round engine reads names from and writes
// ratings to.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Username    string    `bun:"username,notnull,unique"`
	DisplayName string    `bun:"display_name,nullzero"`
	Rating      int       `bun:"rating,notnull,default:1000"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Name returns the best name available for display.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
