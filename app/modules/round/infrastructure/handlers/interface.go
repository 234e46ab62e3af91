package roundhandlers

import (
	"net/http"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
)

// Handlers is the request surface of the round module, over HTTP and over
// the message bus.
type Handlers interface {
	HandleContributionRequested(msg *message.Message) ([]*message.Message, error)

	HandleRecordContribution(w http.ResponseWriter, r *http.Request)
	HandleGetActiveRound(w http.ResponseWriter, r *http.Request)
	HandleListRecentRounds(w http.ResponseWriter, r *http.Request)
	HandleGetRound(w http.ResponseWriter, r *http.Request)
	HandleGetRoundAudit(w http.ResponseWriter, r *http.Request)
	HandleGetUserHistory(w http.ResponseWriter, r *http.Request)
	HandleGetUserStats(w http.ResponseWriter, r *http.Request)
}

// Routes mounts h on r. Paths are relative to the module prefix.
func Routes(r chi.Router, h Handlers) {
	r.Post("/contributions", h.HandleRecordContribution)
	r.Get("/active", h.HandleGetActiveRound)
	r.Get("/recent", h.HandleListRecentRounds)
	r.Get("/{roundID}", h.HandleGetRound)
	r.Get("/{roundID}/audit", h.HandleGetRoundAudit)
}

// UserRoutes mounts the per-user contribution views on the account prefix.
func UserRoutes(r chi.Router, h Handlers) {
	r.Get("/{userID}/history", h.HandleGetUserHistory)
	r.Get("/{userID}/stats", h.HandleGetUserStats)
}
