package userhandlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	userservice "github.com/Black-And-White-Club/pushup-bot/app/modules/user/application"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 12

// Handlers is the HTTP surface of the user module.
type Handlers interface {
	HandleRegisterUser(w http.ResponseWriter, r *http.Request)
	HandleGetUser(w http.ResponseWriter, r *http.Request)
	HandleListTopRated(w http.ResponseWriter, r *http.Request)
}

// Routes mounts h on r.
func Routes(r chi.Router, h Handlers) {
	r.Post("/", h.HandleRegisterUser)
	r.Get("/top", h.HandleListTopRated)
	r.Get("/{userID}", h.HandleGetUser)
}

// UserHandlers implements Handlers.
type UserHandlers struct {
	service userservice.Service
	logger  *slog.Logger
}

// NewUserHandlers creates a new UserHandlers.
func NewUserHandlers(service userservice.Service, logger *slog.Logger) Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandlers{service: service, logger: logger}
}

type registerRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *UserHandlers) HandleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	user, err := h.service.RegisterUser(r.Context(), req.Username, req.DisplayName)
	if err != nil {
		h.writeServiceError(w, r, "RegisterUser", err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *UserHandlers) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return
	}

	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, "GetUser", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandlers) HandleListTopRated(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be an integer"})
			return
		}
		limit = n
	}

	users, err := h.service.ListTopRated(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, r, "ListTopRated", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *UserHandlers) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, userservice.ErrInvalidUsername), errors.Is(err, userservice.ErrInvalidDisplayName):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, userservice.ErrUserAlreadyExists):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, userservice.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		h.logger.ErrorContext(r.Context(), "User request failed",
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
