package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esign/internal/certificate/models"
	"esign/internal/certificate/service"
	"esign/internal/certificate/store"
	id "esign/pkg/domain"
	"esign/pkg/requestcontext"
	"esign/pkg/testutil"
)

type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newRouter(t *testing.T) (chi.Router, *service.Service) {
	t.Helper()
	svc := service.New(store.NewInMemoryStore(), passthroughTx{})
	h := New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	h.Register(r)
	h.RegisterAdmin(r)
	return r, svc
}

func get(t *testing.T, r http.Handler, path string, userID id.UserID) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.NewRequest(t, http.MethodGet, path)
	if !userID.IsNil() {
		req = testutil.WithSession(req, requestcontext.Session{UserID: userID})
	}
	return testutil.DoRequest(r, req)
}

func TestHandleGetOwn(t *testing.T) {
	userID := id.UserID(uuid.New())
	r, svc := newRouter(t)

	w := get(t, r, "/certificates/me", userID)
	testutil.AssertStatus(t, w, http.StatusNotFound)

	_, err := svc.Issue(context.Background(), userID)
	require.NoError(t, err)

	w = get(t, r, "/certificates/me", userID)
	require.Equal(t, http.StatusOK, w.Code)
	resp := testutil.UnmarshalResponse[models.Response](t, w)
	assert.Equal(t, models.StatusValid, resp.Status)
	assert.Equal(t, userID.String(), resp.UserID)
	assert.False(t, resp.NeedsRenewal)
}

func TestHandleGetOwn_Unauthenticated(t *testing.T) {
	r, _ := newRouter(t)
	assert.Equal(t, http.StatusUnauthorized, get(t, r, "/certificates/me", id.UserID{}).Code)
}

func TestHandleList(t *testing.T) {
	r, svc := newRouter(t)
	ctx := requestcontext.WithTime(context.Background(), time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	expiredUser := id.UserID(uuid.New())
	_, err := svc.RecordCheck(ctx, expiredUser, models.ExpiryCodeExpired, nil)
	require.NoError(t, err)
	_, err = svc.Issue(ctx, id.UserID(uuid.New()))
	require.NoError(t, err)

	t.Run("default lists certificates needing renewal", func(t *testing.T) {
		w := get(t, r, "/admin/certificates", id.UserID{})
		require.Equal(t, http.StatusOK, w.Code)
		resp := testutil.UnmarshalResponse[listResponse](t, w)
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, expiredUser.String(), resp.Certificates[0].UserID)
	})

	t.Run("explicit statuses", func(t *testing.T) {
		w := get(t, r, "/admin/certificates?status=valid,expired&limit=10", id.UserID{})
		require.Equal(t, http.StatusOK, w.Code)
		resp := testutil.UnmarshalResponse[listResponse](t, w)
		assert.Equal(t, 2, resp.Count)
	})

	t.Run("repeated statuses in any case", func(t *testing.T) {
		w := get(t, r, "/admin/certificates?status=EXPIRED,%20expired", id.UserID{})
		require.Equal(t, http.StatusOK, w.Code)
		resp := testutil.UnmarshalResponse[listResponse](t, w)
		assert.Equal(t, 1, resp.Count)
	})

	t.Run("unknown status", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, get(t, r, "/admin/certificates?status=revoked", id.UserID{}).Code)
	})

	t.Run("bad limit", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, get(t, r, "/admin/certificates?limit=-1", id.UserID{}).Code)
	})
}
