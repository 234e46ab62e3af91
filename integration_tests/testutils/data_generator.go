package testutils

import (
	"context"
	"fmt"
	"testing"
	"time"

	userdb "github.com/Black-And-White-Club/pushup-bot/app/modules/user/infrastructure/repositories"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
)

// TestDataGenerator provides methods to create test data for integration tests
type TestDataGenerator struct {
	faker *gofakeit.Faker
	seq   int
}

// NewTestDataGenerator creates a new test data generator with optional seed
func NewTestDataGenerator(seed ...uint64) *TestDataGenerator {
	s := uint64(time.Now().UnixNano())
	if len(seed) > 0 {
		s = seed[0]
	}
	return &TestDataGenerator{faker: gofakeit.New(s)}
}

// GenerateUser returns an unsaved user with a unique username.
func (g *TestDataGenerator) GenerateUser() *userdb.User {
	g.seq++
	return &userdb.User{
		Username:    fmt.Sprintf("%s_%d", g.faker.Username(), g.seq),
		DisplayName: g.faker.FirstName() + " " + g.faker.LastName(),
		Rating:      userdb.DefaultRating,
	}
}

// GenerateAmount returns a plausible pushup count.
func (g *TestDataGenerator) GenerateAmount() int64 {
	return int64(g.faker.IntRange(1, 60))
}

// CreateUsers inserts n generated users.
func (g *TestDataGenerator) CreateUsers(ctx context.Context, t *testing.T, repo userdb.Repository, n int) []*userdb.User {
	t.Helper()
	users := make([]*userdb.User, 0, n)
	for range n {
		u := g.GenerateUser()
		require.NoError(t, repo.CreateUser(ctx, nil, u))
		users = append(users, u)
	}
	return users
}

// CreateNamedUser inserts a user whose display name is name.
func CreateNamedUser(ctx context.Context, t *testing.T, repo userdb.Repository, name string) *userdb.User {
	t.Helper()
	u := &userdb.User{Username: name, DisplayName: name, Rating: userdb.DefaultRating}
	require.NoError(t, repo.CreateUser(ctx, nil, u))
	return u
}
