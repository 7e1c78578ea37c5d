package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/mssola/useragent"

	"nucleo/pkg/requestcontext"
)

// ClientMetadata captures client IP, raw User-Agent, a normalized device
// label, and the request path/method. Applied early so every later layer,
// audit records included, sees the same values.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.Header.Get("User-Agent")

		ctx := r.Context()
		ctx = requestcontext.WithClientIP(ctx, clientIPFromRequest(r))
		ctx = requestcontext.WithUserAgent(ctx, ua)
		ctx = requestcontext.WithDevice(ctx, deviceLabel(ua))
		ctx = requestcontext.WithRequestPath(ctx, r.URL.Path)
		ctx = requestcontext.WithRequestMethod(ctx, r.Method)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestTime pins "now" for the whole request so audit timestamps and any
// domain timestamps written in one call agree.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIPFromRequest extracts the real client IP, handling proxies and load
// balancers.
func clientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs; the first is the original
	// client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	// RemoteAddr is "ip:port" ("[::1]:port" for IPv6).
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}
	return "unknown"
}

// deviceLabel folds a User-Agent down to "Browser x.y (OS)" or "mobile"
// variants, which is all the audit trail wants to show.
func deviceLabel(rawUA string) string {
	if rawUA == "" {
		return "unknown"
	}
	parsed := useragent.New(rawUA)
	name, version := parsed.Browser()
	if name == "" {
		return "unknown"
	}

	label := name
	if version != "" {
		if idx := strings.Index(version, "."); idx != -1 {
			version = version[:idx]
		}
		label += " " + version
	}
	if os := parsed.OSInfo().Name; os != "" {
		label += " (" + os + ")"
	}
	if parsed.Mobile() {
		label += " [mobile]"
	}
	return label
}
