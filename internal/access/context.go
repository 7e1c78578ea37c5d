// Package access implements the tenant-scoped, audited data-access layer: two
// composable interceptors over the generic entity store. The tenant filter
// rewrites predicates and payloads so a request can only reach rows its
// company owns (or rows explicitly shared); the audit interceptor records a
// redacted, diffed trail of every mutation against an audited type. Request
// handlers receive the composed layer as a drop-in store.Store.
package access

import (
	"context"

	"nucleo/pkg/requestcontext"
)

// TenantContext scopes one request to one company. It is immutable and built
// once per request; a nil TenantContext (or an empty TenantID) turns the
// tenant filter into a transparent pass-through, which is how system and
// public operations run.
type TenantContext struct {
	TenantID string
}

// TenantFromContext builds a TenantContext from request-scoped values, or nil
// when the request carries no company.
func TenantFromContext(ctx context.Context) *TenantContext {
	companyID := requestcontext.CompanyID(ctx)
	if companyID == "" {
		return nil
	}
	return &TenantContext{TenantID: companyID}
}

// AuditContext captures who is acting and from where. It is immutable and
// built once per request from resolved session data; a nil AuditContext turns
// the audit interceptor into a transparent pass-through.
type AuditContext struct {
	// Actor identity.
	UserID    string
	UserEmail string
	UserName  string

	// Tenant identity.
	CompanyID   string
	CompanyName string

	// Request metadata.
	IPAddress     string
	UserAgent     string
	Device        string
	RequestPath   string
	RequestMethod string
}

// AuditFromContext builds an AuditContext from request-scoped values, or nil
// when the request has no authenticated actor.
func AuditFromContext(ctx context.Context) *AuditContext {
	userID := requestcontext.UserID(ctx)
	if userID == "" {
		return nil
	}
	return &AuditContext{
		UserID:        userID,
		UserEmail:     requestcontext.UserEmail(ctx),
		UserName:      requestcontext.UserName(ctx),
		CompanyID:     requestcontext.CompanyID(ctx),
		CompanyName:   requestcontext.CompanyName(ctx),
		IPAddress:     requestcontext.ClientIP(ctx),
		UserAgent:     requestcontext.UserAgent(ctx),
		Device:        requestcontext.Device(ctx),
		RequestPath:   requestcontext.RequestPath(ctx),
		RequestMethod: requestcontext.RequestMethod(ctx),
	}
}
