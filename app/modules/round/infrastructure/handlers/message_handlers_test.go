package roundhandlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	roundservice "github.com/Black-And-White-Club/pushup-bot/app/modules/round/application"
	roundevents "github.com/Black-And-White-Club/pushup-bot/app/modules/round/domain/events"
	roundtypes "github.com/Black-And-White-Club/pushup-bot/app/modules/round/domain/types"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestRoundHandlers_HandleContributionRequested(t *testing.T) {
	roundID := uuid.New()

	tests := []struct {
		name         string
		payload      string
		setupService func(*FakeService)
		wantErr      bool
		verify       func(t *testing.T, out roundevents.ContributionProcessedPayload)
	}{
		{
			name:    "accepted",
			payload: `{"user_id": 7, "amount": 25}`,
			setupService: func(s *FakeService) {
				s.RecordContributionFunc = func(ctx context.Context, userID roundtypes.UserID, amount int64) (*roundservice.ContributionResult, error) {
					id, ok := roundservice.CorrelationIDFromContext(ctx)
					if !ok || id != "corr-7" {
						return nil, errors.New("correlation id not propagated")
					}
					return &roundservice.ContributionResult{RoundID: roundID, NewTotal: 40, RemainingSeconds: 80}, nil
				}
			},
			verify: func(t *testing.T, out roundevents.ContributionProcessedPayload) {
				assert.True(t, out.Accepted)
				assert.Equal(t, roundtypes.UserID(7), out.UserID)
				assert.Equal(t, roundID, out.RoundID)
				assert.Equal(t, int64(40), out.NewTotal)
				assert.Equal(t, int64(80), out.RemainingSeconds)
				assert.Empty(t, out.Reason)
			},
		},
		{
			name:    "validation failure is a negative reply",
			payload: `{"user_id": 7, "amount": 0}`,
			setupService: func(s *FakeService) {
				s.RecordContributionFunc = func(ctx context.Context, userID roundtypes.UserID, amount int64) (*roundservice.ContributionResult, error) {
					return nil, &roundservice.ValidationError{Field: "amount", Reason: "got 0, must be greater than zero", Err: roundservice.ErrInvalidContribution}
				}
			},
			verify: func(t *testing.T, out roundevents.ContributionProcessedPayload) {
				assert.False(t, out.Accepted)
				assert.Contains(t, out.Reason, "amount")
			},
		},
		{
			name:    "malformed payload is a negative reply",
			payload: `{"user_id": "seven"}`,
			verify: func(t *testing.T, out roundevents.ContributionProcessedPayload) {
				assert.False(t, out.Accepted)
				assert.Equal(t, "invalid payload", out.Reason)
			},
		},
		{
			name:    "storage failure is returned for redelivery",
			payload: `{"user_id": 7, "amount": 5}`,
			setupService: func(s *FakeService) {
				s.RecordContributionFunc = func(ctx context.Context, userID roundtypes.UserID, amount int64) (*roundservice.ContributionResult, error) {
					return nil, &roundservice.StorageError{Op: "RecordContribution", Err: errors.New("db down")}
				}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &FakeService{}
			if tt.setupService != nil {
				tt.setupService(svc)
			}
			h := NewRoundHandlers(svc, slog.New(slog.NewTextHandler(io.Discard, nil)), noop.NewTracerProvider().Tracer("test"))

			msg := message.NewMessage(watermill.NewUUID(), []byte(tt.payload))
			msg.Metadata.Set(middleware.CorrelationIDMetadataKey, "corr-7")

			out, err := h.HandleContributionRequested(msg)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, out)
				return
			}
			require.NoError(t, err)
			require.Len(t, out, 1)
			assert.Equal(t, "corr-7", out[0].Metadata.Get(middleware.CorrelationIDMetadataKey))
			assert.Equal(t, roundevents.ContributionProcessed, out[0].Metadata.Get("topic"))

			var got roundevents.ContributionProcessedPayload
			require.NoError(t, json.Unmarshal(out[0].Payload, &got))
			tt.verify(t, got)
		})
	}
}
