package handler

import (
	"context"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"iaset/internal/dependents"
	"iaset/internal/files"
	"iaset/internal/platform/middleware"
	dErrors "iaset/pkg/domain-errors"
	"iaset/pkg/formparse"
	"iaset/pkg/platform/httputil"
)

const maxFormMemory = 32 << 20

// Document part names on dependent create/update requests.
const (
	partCertidaoNascimentoOuRGCPF     = "certidaoNascimentoOuRGCPF"
	partComprovanteCasamentoOuUniao   = "comprovanteCasamentoOuUniao"
	partDocumentoAdocao               = "documentoAdocao"
	partComprovanteMatriculaFaculdade = "comprovanteMatriculaFaculdade"
	partLaudoMedicoFilhosDeficientes  = "laudoMedicoFilhosDeficientes"
)

// Service defines the dependent operations the handler depends on.
type Service interface {
	Create(ctx context.Context, userID int64, in dependents.CreateInput) (*dependents.Dependent, error)
	ListByUser(ctx context.Context, userID int64) ([]dependents.Dependent, error)
	List(ctx context.Context, status *bool, order string) ([]dependents.Dependent, error)
	GetByUser(ctx context.Context, id, userID int64) (*dependents.Dependent, error)
	Update(ctx context.Context, id, userID int64, in dependents.UpdateInput, docs dependents.Documents) (*dependents.Dependent, error)
	SetStatus(ctx context.Context, id int64, status bool) (*dependents.Dependent, error)
	Delete(ctx context.Context, id, userID int64) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterUser mounts the owner-scoped endpoints behind an employee token.
func (h *Handler) RegisterUser(r chi.Router) {
	r.Route("/users/{userId}/dependents", func(r chi.Router) {
		r.Get("/", h.HandleListByUser)
		r.Post("/", h.HandleCreate)
		r.Get("/{id}", h.HandleGet)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
	})
}

// RegisterAdmin mounts the back-office endpoints.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/dependents", h.HandleList)
	r.Put("/dependents/{id}/status", h.HandleSetStatus)
}

// ownerID resolves the {userId} path segment and checks it against the
// authenticated subject so a token cannot operate on another user's tree.
func ownerID(r *http.Request) (int64, error) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil || userID <= 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid user id")
	}
	if middleware.GetUserID(r.Context()) != userID {
		return 0, dErrors.New(dErrors.CodeForbidden, "cannot access another user's dependents")
	}
	return userID, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid id")
	}
	return id, nil
}

// HandleCreate handles POST /users/{userId}/dependents (multipart/form-data).
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := ownerID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid multipart form"))
		return
	}

	in := dependents.CreateInput{
		Name:         r.FormValue("name"),
		Relationship: r.FormValue("relationship"),
		CPF:          optionalValue(r, "cpf"),
	}
	birthDate, err := formparse.OptionalDate(r.FormValue("birthDate"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	in.BirthDate = birthDate

	in.Documents, err = decodeDocuments(r.MultipartForm)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	dep, err := h.service.Create(ctx, userID, in)
	if err != nil {
		h.logger.WarnContext(ctx, "dependent creation failed",
			"request_id", middleware.GetRequestID(ctx),
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, dep)
}

// HandleListByUser handles GET /users/{userId}/dependents.
func (h *Handler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	deps, err := h.service.ListByUser(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, deps)
}

// HandleGet handles GET /users/{userId}/dependents/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	dep, err := h.service.GetByUser(r.Context(), id, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, dep)
}

// HandleUpdate handles PUT /users/{userId}/dependents/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := ownerID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid multipart form"))
		return
	}

	in := dependents.UpdateInput{
		Name:         optionalValue(r, "name"),
		Relationship: optionalValue(r, "relationship"),
		CPF:          optionalValue(r, "cpf"),
	}
	birthDate, err := formparse.OptionalDate(r.FormValue("birthDate"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	in.BirthDate = birthDate

	docs, err := decodeDocuments(r.MultipartForm)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	dep, err := h.service.Update(ctx, id, userID, in, docs)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, dep)
}

// HandleDelete handles DELETE /users/{userId}/dependents/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id, userID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleList handles GET /dependents?status=&order=.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	status, err := formparse.OptionalBool(r.URL.Query().Get("status"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	order, err := formparse.Order(r.URL.Query().Get("order"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	deps, err := h.service.List(r.Context(), status, order)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, deps)
}

// HandleSetStatus handles PUT /dependents/{id}/status?value=. This endpoint
// is the only approval surface for dependents.
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

	dep, err := h.service.SetStatus(ctx, id, status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "dependent status changed",
		"request_id", middleware.GetRequestID(ctx),
		"dependent_id", id,
		"status", status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, dep)
}

func decodeDocuments(form *multipart.Form) (dependents.Documents, error) {
	var docs dependents.Documents
	if form == nil {
		return docs, nil
	}

	read := func(dst **files.Upload, part string) error {
		fh := files.FirstFile(form, part)
		if fh == nil {
			return nil
		}
		up, err := files.FromMultipart(fh)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeBadRequest, "could not read document")
		}
		*dst = up
		return nil
	}

	if err := read(&docs.CertidaoNascimentoOuRGCPF, partCertidaoNascimentoOuRGCPF); err != nil {
		return docs, err
	}
	if err := read(&docs.ComprovanteCasamentoOuUniao, partComprovanteCasamentoOuUniao); err != nil {
		return docs, err
	}
	if err := read(&docs.DocumentoAdocao, partDocumentoAdocao); err != nil {
		return docs, err
	}
	if err := read(&docs.ComprovanteMatriculaFaculdade, partComprovanteMatriculaFaculdade); err != nil {
		return docs, err
	}
	if err := read(&docs.LaudoMedicoFilhosDeficientes, partLaudoMedicoFilhosDeficientes); err != nil {
		return docs, err
	}
	return docs, nil
}

func optionalValue(r *http.Request, field string) *string {
	v := strings.TrimSpace(r.FormValue(field))
	if v == "" {
		return nil
	}
	return &v
}
