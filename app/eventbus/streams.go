package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	roundevents "github.com/Black-And-White-Club/pushup-bot/app/modules/round/domain/events"
	"github.com/nats-io/nats.go/jetstream"
)

// StreamConfigs lists the JetStream streams the application publishes to.
func StreamConfigs() []jetstream.StreamConfig {
	return []jetstream.StreamConfig{
		{
			Name:      roundevents.RoundStreamName,
			Subjects:  []string{roundevents.RoundStreamName + ".>"},
			Retention: jetstream.LimitsPolicy,
			MaxAge:    7 * 24 * time.Hour,
			Storage:   jetstream.FileStorage,
		},
	}
}

// InitializeStreams creates missing streams and adds missing subjects to
// existing ones.
func InitializeStreams(ctx context.Context, js jetstream.JetStream, logger *slog.Logger) error {
	for _, cfg := range StreamConfigs() {
		stream, err := js.Stream(ctx, cfg.Name)
		if errors.Is(err, jetstream.ErrStreamNotFound) {
			if _, err := js.CreateStream(ctx, cfg); err != nil {
				logger.Error("Failed to create JetStream stream", slog.String("stream", cfg.Name), slog.Any("error", err))
				return fmt.Errorf("failed to create stream %s: %w", cfg.Name, err)
			}
			logger.Info("Created JetStream stream", slog.String("stream", cfg.Name))
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to check stream %s: %w", cfg.Name, err)
		}

		info, err := stream.Info(ctx)
		if err != nil {
			return fmt.Errorf("failed to get stream info for %s: %w", cfg.Name, err)
		}
		missing := missingSubjects(info.Config.Subjects, cfg.Subjects)
		if len(missing) == 0 {
			continue
		}
		info.Config.Subjects = append(info.Config.Subjects, missing...)
		if _, err := js.UpdateStream(ctx, info.Config); err != nil {
			return fmt.Errorf("failed to update stream %s: %w", cfg.Name, err)
		}
		logger.Info("Stream updated with new subjects",
			slog.String("stream", cfg.Name),
			slog.Any("subjects", missing),
		)
	}
	return nil
}

func missingSubjects(have, want []string) []string {
	existing := make(map[string]struct{}, len(have))
	for _, s := range have {
		existing[s] = struct{}{}
	}
	var missing []string
	for _, s := range want {
		if _, ok := existing[s]; !ok {
			missing = append(missing, s)
		}
	}
	return missing
}
