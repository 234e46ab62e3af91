package roundrouter

import (
	"context"

	roundhandlers "github.com/Black-And-White-Club/pushup-bot/app/modules/round/infrastructure/handlers"
)

// Router is the message-bus entry point of the round module.
type Router interface {
	Configure(handlers roundhandlers.Handlers) error
	Run(ctx context.Context) error
	Running() chan struct{}
	IsRunning() bool
	Close() error
}

var _ Router = (*RoundRouter)(nil)
