package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"nucleo/pkg/requestcontext"
)

// Recovery converts a handler panic into a 500 instead of killing the
// connection, logging the stack for the postmortem.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					ctx := r.Context()
					logger.ErrorContext(ctx, "handler panic",
						"panic", rec,
						"request_id", requestcontext.RequestID(ctx),
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"error":"internal"}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
