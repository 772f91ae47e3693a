package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"iaset/internal/auth"
	"iaset/internal/platform/middleware"
	dErrors "iaset/pkg/domain-errors"
	"iaset/pkg/platform/httputil"
)

// Service defines the login operation the handler depends on.
type Service interface {
	Login(ctx context.Context, emailOrCPF, password string) (*auth.LoginResult, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the employee login endpoint.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/login", h.HandleLogin)
}

type loginRequest struct {
	EmailOrCPF string `json:"emailOrCpf"`
	Password   string `json:"pass"`
}

// HandleLogin handles POST /auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}

	result, err := h.service.Login(ctx, req.EmailOrCPF, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "login rejected",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}
