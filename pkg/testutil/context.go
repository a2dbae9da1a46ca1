package testutil

import (
	"net/http"

	"esign/pkg/requestcontext"
)

// WithSession attaches a validated session to the request, as the session
// middleware does for authenticated calls.
func WithSession(req *http.Request, session requestcontext.Session) *http.Request {
	return req.WithContext(requestcontext.WithIdentity(req.Context(), session))
}
