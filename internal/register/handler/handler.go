// Package handler decodes the registration multipart request. Dependent
// metadata travels as one JSON array in the "dependents" field; document
// parts are named "dependents.<index>.<field>" so the association between a
// file and its dependent is explicit rather than inferred.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"iaset/internal/files"
	"iaset/internal/platform/middleware"
	"iaset/internal/register"
	dErrors "iaset/pkg/domain-errors"
	"iaset/pkg/formparse"
	"iaset/pkg/platform/httputil"
)

// maxFormMemory bounds how much of the multipart body is buffered in memory.
const maxFormMemory = 32 << 20

// Document part field names, one per dependent document slot.
const (
	fieldCertidaoNascimentoOuRGCPF     = "certidaoNascimentoOuRGCPF"
	fieldComprovanteCasamentoOuUniao   = "comprovanteCasamentoOuUniao"
	fieldDocumentoAdocao               = "documentoAdocao"
	fieldComprovanteMatriculaFaculdade = "comprovanteMatriculaFaculdade"
	fieldLaudoMedicoFilhosDeficientes  = "laudoMedicoFilhosDeficientes"
)

// Service defines the registration operation the handler depends on.
type Service interface {
	Register(ctx context.Context, in register.Input) (*register.Result, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public registration endpoint.
func (h *Handler) Register(r chi.Router) {
	r.Post("/register", h.HandleRegister)
}

type dependentPayload struct {
	Name         string  `json:"name"`
	BirthDate    string  `json:"birthDate"`
	Relationship string  `json:"relationship"`
	CPF          *string `json:"cpf"`
}

// HandleRegister handles POST /register (multipart/form-data).
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid multipart form"))
		return
	}

	in, err := decodeInput(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Register(ctx, *in)
	if err != nil {
		h.logger.WarnContext(ctx, "registration failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "registration completed",
		"request_id", middleware.GetRequestID(ctx),
		"user_id", result.User.ID,
		"dependents", len(result.Dependents),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, result)
}

func decodeInput(r *http.Request) (*register.Input, error) {
	form := r.MultipartForm

	in := &register.Input{
		Name:     r.FormValue("name"),
		CPF:      r.FormValue("cpf"),
		Email:    r.FormValue("email"),
		Phone:    r.FormValue("phone"),
		Password: r.FormValue("password"),
	}

	if in.Email != "" && !govalidator.IsEmail(in.Email) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid email address")
	}

	in.Matricula = optionalValue(r, "matricula")
	in.RG = optionalValue(r, "rg")
	in.Vinculo = optionalValue(r, "vinculo")
	in.Lotacao = optionalValue(r, "lotacao")
	in.Endereco = optionalValue(r, "endereco")

	birthDay, err := formparse.OptionalDate(r.FormValue("birthDay"))
	if err != nil {
		return nil, err
	}
	in.BirthDay = birthDay

	if fh := files.FirstFile(form, "photo"); fh != nil {
		up, err := files.FromMultipart(fh)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "could not read photo")
		}
		in.Photo = up
	}

	deps, err := decodeDependents(r.FormValue("dependents"))
	if err != nil {
		return nil, err
	}
	if err := attachDependentFiles(form, deps); err != nil {
		return nil, err
	}
	in.Dependents = deps

	return in, nil
}

func optionalValue(r *http.Request, field string) *string {
	v := strings.TrimSpace(r.FormValue(field))
	if v == "" {
		return nil
	}
	return &v
}

func decodeDependents(raw string) ([]register.DependentInput, error) {
	if raw == "" {
		return nil, nil
	}

	var payload []dependentPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "dependents must be a JSON array")
	}

	deps := make([]register.DependentInput, len(payload))
	for i, p := range payload {
		birthDate, err := formparse.OptionalDate(p.BirthDate)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeBadRequest,
				fmt.Sprintf("dependent %d: invalid birthDate", i))
		}
		deps[i] = register.DependentInput{
			Name:         p.Name,
			BirthDate:    birthDate,
			Relationship: p.Relationship,
			CPF:          p.CPF,
		}
	}
	return deps, nil
}

// attachDependentFiles walks every "dependents.<index>.<field>" part and
// binds it to its dependent. Parts referencing an unknown field or an index
// outside the dependents array reject the request.
func attachDependentFiles(form *multipart.Form, deps []register.DependentInput) error {
	if form == nil {
		return nil
	}
	for name := range form.File {
		rest, ok := strings.CutPrefix(name, "dependents.")
		if !ok {
			continue
		}
		idxRaw, field, ok := strings.Cut(rest, ".")
		if !ok {
			return dErrors.New(dErrors.CodeBadRequest,
				fmt.Sprintf("malformed document part name %q", name))
		}
		idx, err := strconv.Atoi(idxRaw)
		if err != nil || idx < 0 || idx >= len(deps) {
			return dErrors.New(dErrors.CodeBadRequest,
				fmt.Sprintf("document part %q references an unknown dependent", name))
		}

		up, err := files.FromMultipart(files.FirstFile(form, name))
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeBadRequest, "could not read document")
		}

		docs := &deps[idx].Documents
		switch field {
		case fieldCertidaoNascimentoOuRGCPF:
			docs.CertidaoNascimentoOuRGCPF = up
		case fieldComprovanteCasamentoOuUniao:
			docs.ComprovanteCasamentoOuUniao = up
		case fieldDocumentoAdocao:
			docs.DocumentoAdocao = up
		case fieldComprovanteMatriculaFaculdade:
			docs.ComprovanteMatriculaFaculdade = up
		case fieldLaudoMedicoFilhosDeficientes:
			docs.LaudoMedicoFilhosDeficientes = up
		default:
			return dErrors.New(dErrors.CodeBadRequest,
				fmt.Sprintf("unknown document field %q", field))
		}
	}
	return nil
}
