package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "esign/pkg/domain"
	"esign/pkg/requestcontext"
)

type stubValidator struct {
	validate func(token string) (requestcontext.Session, error)
}

func (s stubValidator) ValidateSession(token string) (requestcontext.Session, error) {
	return s.validate(token)
}

func TestRequireSession(t *testing.T) {
	userID, err := id.ParseUserID("3f1d2b7a-1c2d-4e5f-8a9b-0c1d2e3f4a5b")
	require.NoError(t, err)
	session := requestcontext.Session{UserID: userID, Email: "budi@example.com"}

	validator := stubValidator{validate: func(token string) (requestcontext.Session, error) {
		if token == "good" {
			return session, nil
		}
		return requestcontext.Session{}, errors.New("bad token")
	}}

	serve := func(req *http.Request) (requestcontext.Session, bool, int) {
		var got requestcontext.Session
		called := false
		handler := RequireSession(validator, slog.Default())(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			called = true
			got = requestcontext.Identity(r.Context())
		}))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return got, called, w.Code
	}

	t.Run("bearer token populates identity", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/certificates/me", nil)
		req.Header.Set("Authorization", "Bearer good")
		got, called, _ := serve(req)
		assert.True(t, called)
		assert.Equal(t, session, got)
	})

	t.Run("session cookie populates identity", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/certificates/me", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "good"})
		got, called, _ := serve(req)
		assert.True(t, called)
		assert.Equal(t, userID, got.UserID)
	})

	t.Run("missing session is rejected", func(t *testing.T) {
		_, called, code := serve(httptest.NewRequest(http.MethodGet, "/certificates/me", nil))
		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/certificates/me", nil)
		req.Header.Set("Authorization", "Bearer forged")
		_, called, code := serve(req)
		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, code)
	})
}
