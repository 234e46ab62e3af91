package roundhandlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	roundservice "github.com/Black-And-White-Club/pushup-bot/app/modules/round/application"
	roundtypes "github.com/Black-And-White-Club/pushup-bot/app/modules/round/domain/types"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// UserIDHeader carries the caller's account id, set by the upstream gateway.
	UserIDHeader = "X-User-ID"

	maxBodyBytes = 1 << 12
)

type contributionRequest struct {
	Amount int64 `json:"amount"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (h *RoundHandlers) HandleRecordContribution(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "HandleRecordContribution")
	defer span.End()

	userID, err := strconv.ParseInt(r.Header.Get(UserIDHeader), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing or malformed " + UserIDHeader + " header", Field: "user_id"})
		return
	}
	span.SetAttributes(attribute.Int64("user_id", userID))

	var req contributionRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if correlationID := r.Header.Get("X-Correlation-ID"); correlationID != "" {
		ctx = roundservice.WithCorrelationID(ctx, correlationID)
	}

	res, err := h.service.RecordContribution(ctx, roundtypes.UserID(userID), req.Amount)
	if err != nil {
		h.writeServiceError(w, r, "RecordContribution", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *RoundHandlers) HandleGetActiveRound(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "HandleGetActiveRound")
	defer span.End()

	snapshot, err := h.service.GetActiveRoundSnapshot(ctx)
	if err != nil {
		h.writeServiceError(w, r, "GetActiveRoundSnapshot", err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *RoundHandlers) HandleListRecentRounds(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "HandleListRecentRounds")
	defer span.End()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be an integer", Field: "limit"})
			return
		}
		limit = n
	}

	rounds, err := h.service.ListRecentRounds(ctx, limit)
	if err != nil {
		h.writeServiceError(w, r, "ListRecentRounds", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rounds": rounds})
}

func (h *RoundHandlers) HandleGetRound(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "HandleGetRound")
	defer span.End()

	roundID, ok := parseRoundID(w, r)
	if !ok {
		return
	}

	snapshot, err := h.service.GetSnapshot(ctx, roundID)
	if err != nil {
		h.writeServiceError(w, r, "GetSnapshot", err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *RoundHandlers) HandleGetRoundAudit(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "HandleGetRoundAudit")
	defer span.End()

	roundID, ok := parseRoundID(w, r)
	if !ok {
		return
	}

	records, err := h.service.GetRoundAudit(ctx, roundID)
	if err != nil {
		h.writeServiceError(w, r, "GetRoundAudit", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"round_id": roundID, "entries": records})
}

func parseRoundID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	roundID, err := uuid.Parse(chi.URLParam(r, "roundID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid round id", Field: "round_id"})
		return uuid.Nil, false
	}
	return roundID, true
}

// writeServiceError maps service errors to status codes. Storage details are
// logged, not returned.
func (h *RoundHandlers) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var ve *roundservice.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Error(), Field: ve.Field})
	case errors.Is(err, roundservice.ErrRoundNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: roundservice.ErrRoundNotFound.Error()})
	default:
		h.logger.ErrorContext(r.Context(), "Round request failed",
			slog.String("operation", op),
			slog.Any("error", err),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: http.StatusText(http.StatusInternalServerError)})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
