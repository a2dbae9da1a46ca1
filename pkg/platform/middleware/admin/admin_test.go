package admin

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"
)

type AdminMiddlewareSuite struct {
	suite.Suite
	logger *slog.Logger
}

func TestAdminMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(AdminMiddlewareSuite))
}

func (s *AdminMiddlewareSuite) SetupTest() {
	s.logger = slog.Default()
}

func (s *AdminMiddlewareSuite) serve(expected, presented string) (called bool, code int) {
	handler := RequireAdminToken(expected, s.logger)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		}),
	)
	req := httptest.NewRequest(http.MethodGet, "/admin/certificates", nil)
	if presented != "" {
		req.Header.Set("X-Admin-Token", presented)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return called, w.Code
}

func (s *AdminMiddlewareSuite) TestTokenValidation() {
	s.Run("correct token passes to next handler", func() {
		called, code := s.serve("secret-admin-token", "secret-admin-token")
		s.True(called)
		s.Equal(http.StatusOK, code)
	})

	s.Run("wrong token returns 401 and blocks handler", func() {
		called, code := s.serve("secret-admin-token", "nope")
		s.False(called)
		s.Equal(http.StatusUnauthorized, code)
	})

	s.Run("missing token returns 401", func() {
		called, code := s.serve("secret-admin-token", "")
		s.False(called)
		s.Equal(http.StatusUnauthorized, code)
	})

	s.Run("unconfigured token rejects everything", func() {
		called, code := s.serve("", "")
		s.False(called)
		s.Equal(http.StatusUnauthorized, code)
	})
}
