// Package middleware holds the HTTP middleware chain: request identity,
// panic recovery, client metadata capture, request-scoped time, metrics, and
// bearer-token authentication. Everything request-scoped lands in
// pkg/requestcontext so services and the access layer read one vocabulary.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"nucleo/pkg/requestcontext"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns every request an id, honoring one supplied by an
// upstream proxy, and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		ctx := requestcontext.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
