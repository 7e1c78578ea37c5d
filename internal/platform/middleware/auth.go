package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"nucleo/internal/auth"
	"nucleo/pkg/requestcontext"
)

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*auth.Claims, error)
}

// RequireAuth rejects requests without a valid bearer token and populates the
// request context with the identity the token carries.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const bearerPrefix = "Bearer "

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok {
				unauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := r.Context()
			ctx = requestcontext.WithUserID(ctx, claims.UserID())
			ctx = requestcontext.WithUserEmail(ctx, claims.Email)
			ctx = requestcontext.WithUserName(ctx, claims.Name)
			ctx = requestcontext.WithCompanyID(ctx, claims.CompanyID)
			ctx = requestcontext.WithCompanyName(ctx, claims.CompanyName)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
