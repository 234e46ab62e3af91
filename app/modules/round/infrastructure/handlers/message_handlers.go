package roundhandlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	roundservice "github.com/Black-And-White-Club/pushup-bot/app/modules/round/application"
	roundevents "github.com/Black-And-White-Club/pushup-bot/app/modules/round/domain/events"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"go.opentelemetry.io/otel/attribute"
)

// HandleContributionRequested records a contribution received over the bus
// and replies on ContributionProcessed. Rejected input is acknowledged with a
// negative reply; storage failures are returned so the message is retried.
func (h *RoundHandlers) HandleContributionRequested(msg *message.Message) ([]*message.Message, error) {
	correlationID := msg.Metadata.Get(middleware.CorrelationIDMetadataKey)
	ctx := msg.Context()
	if correlationID != "" {
		ctx = roundservice.WithCorrelationID(ctx, correlationID)
	}
	ctx, span := h.tracer.Start(ctx, "HandleContributionRequested")
	defer span.End()

	logger := h.logger.With(
		slog.String("message_id", msg.UUID),
		slog.String("correlation_id", correlationID),
	)

	var payload roundevents.ContributionRequestedPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		logger.WarnContext(ctx, "Dropping malformed contribution request", slog.Any("error", err))
		reply, replyErr := newProcessedMessage(correlationID, roundevents.ContributionProcessedPayload{
			Reason: "invalid payload",
		})
		if replyErr != nil {
			return nil, replyErr
		}
		return []*message.Message{reply}, nil
	}
	span.SetAttributes(attribute.Int64("user_id", int64(payload.UserID)))

	out := roundevents.ContributionProcessedPayload{UserID: payload.UserID, Amount: payload.Amount}

	res, err := h.service.RecordContribution(ctx, payload.UserID, payload.Amount)
	var ve *roundservice.ValidationError
	switch {
	case err == nil:
		out.Accepted = true
		out.RoundID = res.RoundID
		out.NewTotal = res.NewTotal
		out.RoundCompletedNow = res.RoundCompletedNow
		out.RemainingSeconds = res.RemainingSeconds
	case errors.As(err, &ve):
		logger.InfoContext(ctx, "Contribution request rejected", slog.String("reason", ve.Error()))
		out.Reason = ve.Error()
	default:
		logger.ErrorContext(ctx, "Contribution request failed", slog.Any("error", err))
		return nil, fmt.Errorf("failed to record contribution: %w", err)
	}

	reply, err := newProcessedMessage(correlationID, out)
	if err != nil {
		return nil, err
	}
	return []*message.Message{reply}, nil
}

func newProcessedMessage(correlationID string, payload roundevents.ContributionProcessedPayload) (*message.Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal contribution reply: %w", err)
	}
	reply := message.NewMessage(watermill.NewUUID(), body)
	if correlationID != "" {
		reply.Metadata.Set(middleware.CorrelationIDMetadataKey, correlationID)
	}
	reply.Metadata.Set("topic", roundevents.ContributionProcessed)
	return reply, nil
}
