package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"iaset/internal/files"
	"iaset/internal/platform/middleware"
	"iaset/internal/users"
	dErrors "iaset/pkg/domain-errors"
	"iaset/pkg/formparse"
	"iaset/pkg/platform/httputil"
)

const maxFormMemory = 32 << 20

// Service defines the user operations the handler depends on.
type Service interface {
	Create(ctx context.Context, in users.CreateInput) (*users.User, error)
	List(ctx context.Context, status *bool) ([]users.User, error)
	Get(ctx context.Context, id int64) (*users.User, error)
	Update(ctx context.Context, id int64, in users.UpdateInput, photo *files.Upload) (*users.User, error)
	SetStatus(ctx context.Context, id int64, status bool) (*users.User, error)
	Delete(ctx context.Context, id int64) error
	ChangePassword(ctx context.Context, id int64, oldPassword, newPassword string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the credential-recovery endpoints.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/users/forgot-password", h.HandleForgotPassword)
	r.Post("/users/reset-password", h.HandleResetPassword)
}

// RegisterUser mounts the endpoints behind an employee token.
func (h *Handler) RegisterUser(r chi.Router) {
	r.Put("/users/{id}", h.HandleUpdate)
	r.Put("/users/{id}/password", h.HandleChangePassword)
}

// RegisterAdmin mounts the back-office endpoints.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/users", h.HandleList)
	r.Post("/users", h.HandleCreate)
	r.Get("/users/{id}", h.HandleGet)
	r.Put("/users/{id}/status", h.HandleSetStatus)
	r.Delete("/users/{id}", h.HandleDelete)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid id")
	}
	return id, nil
}

// HandleList handles GET /users?status=&id=.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if raw := r.URL.Query().Get("id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid id"))
			return
		}
		user, err := h.service.Get(ctx, id)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, []users.User{*user})
		return
	}

	status, err := formparse.OptionalBool(r.URL.Query().Get("status"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	list, err := h.service.List(ctx, status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

// HandleGet handles GET /users/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

// HandleCreate handles POST /users (multipart/form-data).
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid multipart form"))
		return
	}

	in := users.CreateInput{
		Name:      r.FormValue("name"),
		CPF:       r.FormValue("cpf"),
		Email:     r.FormValue("email"),
		Phone:     r.FormValue("phone"),
		Password:  r.FormValue("password"),
		Matricula: optionalValue(r, "matricula"),
		RG:        optionalValue(r, "rg"),
		Vinculo:   optionalValue(r, "vinculo"),
		Lotacao:   optionalValue(r, "lotacao"),
		Endereco:  optionalValue(r, "endereco"),
	}
	if in.Email != "" && !govalidator.IsEmail(in.Email) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid email address"))
		return
	}

	birthDay, err := formparse.OptionalDate(r.FormValue("birthDay"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	in.BirthDay = birthDay

	if fh := files.FirstFile(r.MultipartForm, "photo"); fh != nil {
		up, err := files.FromMultipart(fh)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "could not read photo"))
			return
		}
		in.Photo = up
	}

	user, err := h.service.Create(ctx, in)
	if err != nil {
		h.logger.WarnContext(ctx, "user creation failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, user)
}

// HandleUpdate handles PUT /users/{id} (multipart/form-data, all fields
// optional). The id must match the authenticated subject: a profile carries
// the email the reset flow trusts, so no token edits anyone else's.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if middleware.GetUserID(ctx) != id {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "cannot update another user's profile"))
		return
	}

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid multipart form"))
		return
	}

	in := users.UpdateInput{
		Name:      optionalValue(r, "name"),
		Matricula: optionalValue(r, "matricula"),
		RG:        optionalValue(r, "rg"),
		Vinculo:   optionalValue(r, "vinculo"),
		Lotacao:   optionalValue(r, "lotacao"),
		Endereco:  optionalValue(r, "endereco"),
		Email:     optionalValue(r, "email"),
		Phone:     optionalValue(r, "phone"),
	}
	if in.Email != nil && !govalidator.IsEmail(*in.Email) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid email address"))
		return
	}

	birthDay, err := formparse.OptionalDate(r.FormValue("birthDay"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	in.BirthDay = birthDay

	var photo *files.Upload
	if fh := files.FirstFile(r.MultipartForm, "photo"); fh != nil {
		photo, err = files.FromMultipart(fh)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "could not read photo"))
			return
		}
	}

	user, err := h.service.Update(ctx, id, in, photo)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

// HandleSetStatus handles PUT /users/{id}/status?value=.
func (h *Handler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status, err := formparse.Bool(r.URL.Query().Get("value"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	user, err := h.service.SetStatus(ctx, id, status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "user status changed",
		"request_id", middleware.GetRequestID(ctx),
		"user_id", id,
		"status", status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, user)
}

// HandleDelete handles DELETE /users/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// HandleChangePassword handles PUT /users/{id}/password. The id must match
// the authenticated subject; changing someone else's password is off-limits
// even with a valid token.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if middleware.GetUserID(ctx) != id {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "cannot change another user's password"))
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}

	if err := h.service.ChangePassword(ctx, id, req.OldPassword, req.NewPassword); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// HandleForgotPassword handles POST /users/forgot-password.
func (h *Handler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}
	if req.Email == "" || !govalidator.IsEmail(req.Email) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid email address"))
		return
	}

	if err := h.service.ForgotPassword(ctx, req.Email); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "reset instructions sent"})
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// HandleResetPassword handles POST /users/reset-password.
func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}

	if err := h.service.ResetPassword(ctx, req.Token, req.Password); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "password reset"})
}

func optionalValue(r *http.Request, field string) *string {
	v := strings.TrimSpace(r.FormValue(field))
	if v == "" {
		return nil
	}
	return &v
}
