package testutil

import (
	"net/http"

	id "votum/pkg/domain"
	"votum/pkg/requestcontext"
)

// WithTenant adds the acting tenant and user to the request context, as the
// auth middleware would for an authenticated request.
func WithTenant(req *http.Request, tenantID id.TenantID, userID id.UserID) *http.Request {
	ctx := requestcontext.WithTenantID(req.Context(), tenantID)
	ctx = requestcontext.WithUserID(ctx, userID)
	return req.WithContext(ctx)
}
