package roundhandlers

import (
	"net/http"
	"strconv"

	roundtypes "github.com/Black-And-White-Club/pushup-bot/app/modules/round/domain/types"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
)

func (h *RoundHandlers) HandleGetUserHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "HandleGetUserHistory")
	defer span.End()

	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int64("user_id", int64(userID)))

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be an integer", Field: "limit"})
			return
		}
		limit = n
	}

	history, err := h.service.GetUserHistory(ctx, userID, limit)
	if err != nil {
		h.writeServiceError(w, r, "GetUserHistory", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": userID, "history": history})
}

func (h *RoundHandlers) HandleGetUserStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "HandleGetUserStats")
	defer span.End()

	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int64("user_id", int64(userID)))

	stats, err := h.service.GetUserStats(ctx, userID)
	if err != nil {
		h.writeServiceError(w, r, "GetUserStats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func parseUserID(w http.ResponseWriter, r *http.Request) (roundtypes.UserID, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id", Field: "user_id"})
		return 0, false
	}
	return roundtypes.UserID(id), true
}
