// Package httptransport assembles the HTTP surface: middleware chain, route
// groups per guard level, metrics, and the static upload mount.
package httptransport

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"iaset/internal/platform/metrics"
	"iaset/internal/platform/middleware"
	"iaset/pkg/platform/httputil"
)

// Deps is everything the router needs wired in.
type Deps struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Validator middleware.TokenValidator

	// UploadDir, when set, is served read-only under /uploads/.
	UploadDir string

	Public []func(chi.Router)
	User   []func(chi.Router)
	Admin  []func(chi.Router)
}

// NewRouter builds the full route tree. Guard middleware applies per group:
// public routes carry none, employee routes require a user token, back-office
// routes require an admin token.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Latency(d.Metrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if d.UploadDir != "" {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(d.UploadDir)))
		r.Get("/uploads/*", func(w http.ResponseWriter, req *http.Request) {
			// Reject traversal out of the upload root.
			if strings.Contains(req.URL.Path, "..") {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			fs.ServeHTTP(w, req)
		})
	}

	r.Group(func(r chi.Router) {
		for _, mount := range d.Public {
			mount(r)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(d.Validator, d.Logger))
		for _, mount := range d.User {
			mount(r)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(d.Validator, d.Logger))
		for _, mount := range d.Admin {
			mount(r)
		}
	})

	return r
}
