package testutil

import (
	"net/http"

	"nucleo/pkg/requestcontext"
)

// Identity is the authenticated principal a test wants a request to carry.
type Identity struct {
	UserID      string
	Email       string
	Name        string
	CompanyID   string
	CompanyName string
}

// WithIdentity attaches an authenticated identity to the request context,
// simulating what the auth middleware does for real requests.
func WithIdentity(req *http.Request, id Identity) *http.Request {
	ctx := req.Context()
	ctx = requestcontext.WithUserID(ctx, id.UserID)
	ctx = requestcontext.WithUserEmail(ctx, id.Email)
	ctx = requestcontext.WithUserName(ctx, id.Name)
	ctx = requestcontext.WithCompanyID(ctx, id.CompanyID)
	ctx = requestcontext.WithCompanyName(ctx, id.CompanyName)
	return req.WithContext(ctx)
}
