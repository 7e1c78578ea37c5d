// Package httptransport is the thin HTTP layer. Handlers decode, delegate to
// the composed access layer, and encode; no business logic lives here.
package httptransport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nucleo/internal/access"
	"nucleo/internal/audit"
	"nucleo/internal/platform/metrics"
	"nucleo/internal/platform/middleware"
	"nucleo/internal/store"
	domainerrors "nucleo/pkg/domain-errors"
	"nucleo/pkg/platform/sentinel"
)

// Deps carries everything the router needs.
type Deps struct {
	Store       store.Store
	Sink        audit.Sink
	Auth        AuthService
	Validator   middleware.TokenValidator
	Logger      *slog.Logger
	HTTPMetrics *metrics.Metrics
	AccessOpts  []access.Option
}

// NewRouter wires the public endpoints behind the full middleware chain.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Instrument(deps.HTTPMetrics))
	r.Use(middleware.Logging(deps.Logger))

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	authHandler := NewAuthHandler(deps.Auth)
	r.Post("/auth/login", authHandler.handleLogin)

	entityHandler := NewEntityHandler(deps.Store, deps.Sink, deps.AccessOpts)
	r.Route("/api/{entity}", func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.Validator, deps.Logger))
		r.Get("/", entityHandler.handleList)
		r.Post("/", entityHandler.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", entityHandler.handleGet)
			r.Put("/", entityHandler.handleUpdate)
			r.Delete("/", entityHandler.handleDelete)
		})
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError centralizes domain error translation to HTTP responses so every
// handler emits the same JSON error envelope.
func writeError(w http.ResponseWriter, err error) {
	var de *domainerrors.Error
	if errors.As(err, &de) {
		writeJSON(w, domainerrors.ToHTTPStatus(de.Code), map[string]string{
			"error":   string(de.Code),
			"message": de.Message,
		})
		return
	}

	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": string(domainerrors.CodeNotFound)})
	case errors.Is(err, sentinel.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": string(domainerrors.CodeConflict)})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": string(domainerrors.CodeInternal)})
	}
}
