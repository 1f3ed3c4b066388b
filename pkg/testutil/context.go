package testutil

import (
	"net/http"

	"retreat/pkg/requestcontext"
)

// WithAdmin adds a staff email to the request context.
// This simulates what the admin middleware would do for authenticated requests.
func WithAdmin(req *http.Request, email string) *http.Request {
	return req.WithContext(requestcontext.WithAdminEmail(req.Context(), email))
}

// WithClient adds client metadata as the metadata middleware would.
func WithClient(req *http.Request, ip, userAgent, device string) *http.Request {
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, userAgent, device))
}
