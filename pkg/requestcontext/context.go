// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services and the access layer read them. The
// package stays free of net/http so non-HTTP callers (jobs, tests) can inject
// the same values with the With* helpers.
package requestcontext

import (
	"context"
	"time"
)

// Context key types (unexported for encapsulation).
type (
	userIDKey      struct{}
	userEmailKey   struct{}
	userNameKey    struct{}
	companyIDKey   struct{}
	companyNameKey struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	deviceKey      struct{}
	requestIDKey   struct{}
	requestPathKey struct{}
	requestVerbKey struct{}
	requestTimeKey struct{}
)

// -----------------------------------------------------------------------------
// Actor identity
// -----------------------------------------------------------------------------

// UserID retrieves the authenticated user ID from the context.
func UserID(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey{}).(string)
	return v
}

// WithUserID injects a user ID into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserEmail retrieves the authenticated user's email from the context.
func UserEmail(ctx context.Context) string {
	v, _ := ctx.Value(userEmailKey{}).(string)
	return v
}

// WithUserEmail injects a user email into the context.
func WithUserEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, userEmailKey{}, email)
}

// UserName retrieves the authenticated user's display name from the context.
func UserName(ctx context.Context) string {
	v, _ := ctx.Value(userNameKey{}).(string)
	return v
}

// WithUserName injects a user display name into the context.
func WithUserName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, userNameKey{}, name)
}

// -----------------------------------------------------------------------------
// Tenant identity
// -----------------------------------------------------------------------------

// CompanyID retrieves the tenant (company) ID from the context. Empty means
// the request carries no tenant and tenant filtering passes through.
func CompanyID(ctx context.Context) string {
	v, _ := ctx.Value(companyIDKey{}).(string)
	return v
}

// WithCompanyID injects a tenant (company) ID into the context.
func WithCompanyID(ctx context.Context, companyID string) context.Context {
	return context.WithValue(ctx, companyIDKey{}, companyID)
}

// CompanyName retrieves the tenant (company) display name from the context.
func CompanyName(ctx context.Context) string {
	v, _ := ctx.Value(companyNameKey{}).(string)
	return v
}

// WithCompanyName injects a tenant (company) display name into the context.
func WithCompanyName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, companyNameKey{}, name)
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

// ClientIP retrieves the resolved client IP address from the context.
func ClientIP(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey{}).(string)
	return v
}

// WithClientIP injects a client IP address into the context.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// UserAgent retrieves the raw User-Agent header value from the context.
func UserAgent(ctx context.Context) string {
	v, _ := ctx.Value(userAgentKey{}).(string)
	return v
}

// WithUserAgent injects a raw User-Agent value into the context.
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, userAgentKey{}, ua)
}

// Device retrieves the normalized device label ("Chrome on Linux") from the
// context.
func Device(ctx context.Context) string {
	v, _ := ctx.Value(deviceKey{}).(string)
	return v
}

// WithDevice injects a normalized device label into the context.
func WithDevice(ctx context.Context, device string) context.Context {
	return context.WithValue(ctx, deviceKey{}, device)
}

// RequestID retrieves the correlation ID from the context.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// WithRequestID injects a correlation ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestPath retrieves the request path from the context.
func RequestPath(ctx context.Context) string {
	v, _ := ctx.Value(requestPathKey{}).(string)
	return v
}

// WithRequestPath injects a request path into the context.
func WithRequestPath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, requestPathKey{}, path)
}

// RequestMethod retrieves the request HTTP method from the context.
func RequestMethod(ctx context.Context) string {
	v, _ := ctx.Value(requestVerbKey{}).(string)
	return v
}

// WithRequestMethod injects a request HTTP method into the context.
func WithRequestMethod(ctx context.Context, method string) context.Context {
	return context.WithValue(ctx, requestVerbKey{}, method)
}

// -----------------------------------------------------------------------------
// Time
// -----------------------------------------------------------------------------

// Now returns the request time if one was injected, or time.Now. Tests inject
// a fixed time with WithTime for deterministic timestamps.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a fixed request time into the context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
