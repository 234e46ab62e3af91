package roundservice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	roundtypes "github.com/Black-And-White-Club/pushup-bot/app/modules/round/domain/types"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundService_RecordContribution_Validation(t *testing.T) {
	tests := []struct {
		name    string
		userID  roundtypes.UserID
		amount  int64
		wantErr error
		field   string
	}{
		{name: "zero amount", userID: 1, amount: 0, wantErr: ErrInvalidContribution, field: "amount"},
		{name: "negative amount", userID: 1, amount: -5, wantErr: ErrInvalidContribution, field: "amount"},
		{name: "missing user", userID: 0, amount: 10, wantErr: ErrInvalidUser, field: "user_id"},
		{name: "negative user", userID: -3, amount: 10, wantErr: ErrInvalidUser, field: "user_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			res, err := env.svc.RecordContribution(context.Background(), tt.userID, tt.amount)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, tt.wantErr))

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)

			// Rejected before any storage access.
			assert.Equal(t, 0, env.store.lifecycleLocks)
			assert.Equal(t, 0, env.store.roundsCreated)
		})
	}
}

func TestRoundService_RecordContribution(t *testing.T) {
	ctx := context.Background()

	t.Run("first contribution opens a round", func(t *testing.T) {
		env := newTestEnv(t)
		env.store.addUser(1, "A")

		res, err := env.svc.RecordContribution(ctx, 1, 25)
		require.NoError(t, err)
		assert.Equal(t, int64(25), res.NewTotal)
		assert.Equal(t, int64(120), res.RemainingSeconds)
		assert.False(t, res.RoundCompletedNow)
		assert.Equal(t, int64(25), env.store.total(res.RoundID, 1))
		assert.Len(t, env.pub.Messages("round.started"), 1)
	})

	t.Run("contributions accumulate within the round", func(t *testing.T) {
		env := newTestEnv(t)
		env.store.addUser(1, "A")

		first, err := env.svc.RecordContribution(ctx, 1, 5)
		require.NoError(t, err)
		env.clock.Advance(10 * time.Second)
		second, err := env.svc.RecordContribution(ctx, 1, 7)
		require.NoError(t, err)

		assert.Equal(t, first.RoundID, second.RoundID)
		assert.Equal(t, int64(12), second.NewTotal)
		assert.Equal(t, int64(110), second.RemainingSeconds)
	})

	t.Run("unknown user is recorded as Unknown", func(t *testing.T) {
		env := newTestEnv(t)

		res, err := env.svc.RecordContribution(ctx, 42, 3)
		require.NoError(t, err)

		snap, err := env.svc.GetSnapshot(ctx, res.RoundID)
		require.NoError(t, err)
		require.Len(t, snap.Participants, 1)
		assert.Equal(t, roundtypes.UnknownDisplayName, snap.Participants[0].DisplayName)
	})

	t.Run("contribution after expiry lands in a new round", func(t *testing.T) {
		env := newTestEnv(t)
		env.store.addUser(1, "A")
		env.store.addUser(2, "B")
		old := env.store.seedRound(t0.Add(-3*time.Minute), roundtypes.StatusActive)
		env.store.seedParticipant(old, 2, 5, t0.Add(-170*time.Second))

		res, err := env.svc.RecordContribution(ctx, 1, 10)
		require.NoError(t, err)

		assert.NotEqual(t, old, res.RoundID)
		assert.Equal(t, int64(10), res.NewTotal)
		assert.False(t, res.RoundCompletedNow)
		assert.Equal(t, int64(120), res.RemainingSeconds)

		assert.Equal(t, roundtypes.StatusCompleted, env.store.round(old).Status)
		assert.Equal(t, int64(0), env.store.total(old, 1))
		assert.Equal(t, roundtypes.DefaultRating+2, env.store.rating(2))
		assert.Equal(t, roundtypes.DefaultRating, env.store.rating(1))
	})

	t.Run("window elapsing during the write completes the round", func(t *testing.T) {
		env := newTestEnv(t)
		env.store.addUser(1, "A")
		roundID := env.store.seedRound(t0, roundtypes.StatusActive)
		env.clock.Set(t0.Add(119 * time.Second))

		var once sync.Once
		env.store.LockActiveRoundFunc = func(uuid.UUID) {
			once.Do(func() { env.clock.Advance(2 * time.Second) })
		}

		res, err := env.svc.RecordContribution(ctx, 1, 30)
		require.NoError(t, err)

		assert.Equal(t, roundID, res.RoundID)
		assert.Equal(t, int64(30), res.NewTotal)
		assert.True(t, res.RoundCompletedNow)
		assert.Equal(t, int64(0), res.RemainingSeconds)
		assert.Equal(t, roundtypes.StatusCompleted, env.store.round(roundID).Status)
		assert.Equal(t, roundtypes.DefaultRating+2, env.store.rating(1))
		assert.Len(t, env.pub.Messages("round.completed"), 1)
	})

	t.Run("round closed before the write is retried on the next round", func(t *testing.T) {
		env := newTestEnv(t)
		env.store.addUser(1, "A")
		first := env.store.seedRound(t0.Add(-10*time.Second), roundtypes.StatusActive)

		var once sync.Once
		env.store.LockActiveRoundFunc = func(id uuid.UUID) {
			if id != first {
				return
			}
			once.Do(func() {
				env.store.concurrently(func() { env.store.completeDirectly(first, t0) })
			})
		}

		res, err := env.svc.RecordContribution(ctx, 1, 8)
		require.NoError(t, err)

		assert.NotEqual(t, first, res.RoundID)
		assert.Equal(t, int64(8), res.NewTotal)
		assert.Equal(t, int64(0), env.store.total(first, 1))
		assert.Equal(t, int64(8), env.store.total(res.RoundID, 1))
		assert.Equal(t, roundtypes.StatusCompleted, env.store.round(first).Status)
	})

	t.Run("completion failure rolls back and surfaces a storage error", func(t *testing.T) {
		env := newTestEnv(t)
		env.store.addUser(1, "A")
		env.store.addUser(2, "B")
		roundID := env.store.seedRound(t0, roundtypes.StatusActive)
		env.store.seedParticipant(roundID, 2, 50, t0)
		env.clock.Set(t0.Add(119 * time.Second))

		var once sync.Once
		env.store.LockActiveRoundFunc = func(uuid.UUID) {
			once.Do(func() { env.clock.Advance(5 * time.Second) })
		}
		env.store.ApplyRatingFunc = func(userID roundtypes.UserID) error {
			if userID == 1 {
				return errBoom
			}
			return nil
		}

		_, err := env.svc.RecordContribution(ctx, 1, 3)
		require.Error(t, err)
		assert.True(t, IsStorageError(err))
		assert.True(t, errors.Is(err, errBoom))

		// The contribution committed; the completion did not.
		assert.Equal(t, int64(3), env.store.total(roundID, 1))
		assert.Equal(t, roundtypes.StatusActive, env.store.round(roundID).Status)
		assert.Equal(t, roundtypes.DefaultRating, env.store.rating(2))
		assert.Empty(t, env.store.auditMessages(roundID))
		assert.Empty(t, env.pub.Messages("round.completed"))
	})

	t.Run("publish failure does not fail the contribution", func(t *testing.T) {
		env := newTestEnv(t)
		env.pub.PublishFn = func(topic string, msgs ...*message.Message) error { return errBoom }

		res, err := env.svc.RecordContribution(ctx, 1, 4)
		require.NoError(t, err)
		assert.Equal(t, int64(4), res.NewTotal)
	})
}

func TestRoundService_RecordContribution_Concurrent(t *testing.T) {
	ctx := context.Background()

	t.Run("same user from two sessions", func(t *testing.T) {
		env := newTestEnv(t)
		env.store.addUser(1, "A")
		roundID := env.store.seedRound(t0, roundtypes.StatusActive)

		var wg sync.WaitGroup
		for _, amount := range []int64{5, 7} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := env.svc.RecordContribution(ctx, 1, amount)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(12), env.store.total(roundID, 1))
	})

	t.Run("many users with no existing round", func(t *testing.T) {
		env := newTestEnv(t)

		const users = 10
		const perUser = 10
		var wg sync.WaitGroup
		for u := 1; u <= users; u++ {
			for i := 1; i <= perUser; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := env.svc.RecordContribution(ctx, roundtypes.UserID(u), int64(i))
					assert.NoError(t, err)
				}()
			}
		}
		wg.Wait()

		require.Equal(t, 1, env.store.roundsCreated)
		active, err := env.store.GetActiveRound(ctx, nil)
		require.NoError(t, err)
		for u := 1; u <= users; u++ {
			assert.Equal(t, int64(perUser*(perUser+1)/2), env.store.total(active.ID, roundtypes.UserID(u)))
		}
	})
}
