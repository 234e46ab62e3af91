package user

import (
	"log/slog"

	userservice "github.com/Black-And-White-Club/pushup-bot/app/modules/user/application"
	userhandlers "github.com/Black-And-White-Club/pushup-bot/app/modules/user/infrastructure/handlers"
	userdb "github.com/Black-And-White-Club/pushup-bot/app/modules/user/infrastructure/repositories"
	"github.com/Black-And-White-Club/pushup-bot/app/shared/observability"
	"github.com/uptrace/bun"
)

// Module represents the user module.
type Module struct {
	Repository  userdb.Repository
	UserService userservice.Service
	Handlers    userhandlers.Handlers
}

// NewUserModule initializes the user module over db. The repository is
// exported so the round module can share it.
func NewUserModule(obs *observability.Provider, db *bun.DB) *Module {
	logger := obs.Logger.With(slog.String("module", "user"))
	repo := userdb.NewRepository(db)
	service := userservice.NewUserService(repo, logger, obs.Tracer)

	return &Module{
		Repository:  repo,
		UserService: service,
		Handlers:    userhandlers.NewUserHandlers(service, logger),
	}
}
