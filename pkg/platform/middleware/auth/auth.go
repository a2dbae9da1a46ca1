package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"esign/pkg/platform/httputil"
	"esign/pkg/requestcontext"

	dErrors "esign/pkg/domain-errors"
)

// SessionCookieName is the cookie carrying the session token for browser clients.
const SessionCookieName = "session"

// SessionValidator verifies a session token and returns the identity it carries.
type SessionValidator interface {
	ValidateSession(token string) (requestcontext.Session, error)
}

// RequireSession resolves the caller's session from the Authorization bearer
// token, falling back to the session cookie. Requests without a valid session
// never reach the next handler.
func RequireSession(validator SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token := tokenFromRequest(r)
			if token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing session",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing session"))
				return
			}

			session, err := validator.ValidateSession(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid session",
					"error", err,
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired session"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithIdentity(ctx, session)))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}
