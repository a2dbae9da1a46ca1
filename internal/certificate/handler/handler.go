package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"esign/internal/certificate/models"
	id "esign/pkg/domain"
	dErrors "esign/pkg/domain-errors"
	"esign/pkg/platform/httputil"
	platformstrings "esign/pkg/platform/strings"
	"esign/pkg/requestcontext"
)

type Service interface {
	Get(ctx context.Context, userID id.UserID) (*models.Record, error)
	ListByStatus(ctx context.Context, statuses []models.Status, limit int) ([]*models.Record, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the session-scoped routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/certificates/me", h.HandleGetOwn)
}

// RegisterAdmin mounts the operator listing. Callers guard r with the admin token.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/certificates", h.HandleList)
}

func (h *Handler) HandleGetOwn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := httputil.RequireUserID(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.service.Get(ctx, userID)
	if err != nil {
		h.logFailure(ctx, "get certificate failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record.ToResponse())
}

type listResponse struct {
	Certificates []models.Response `json:"certificates"`
	Count        int               `json:"count"`
}

// HandleList serves GET /admin/certificates?status=expired,almost_expired&limit=100.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var statuses []models.Status
	for _, raw := range platformstrings.DedupeAndTrimLower(strings.Split(r.URL.Query().Get("status"), ",")) {
		status, err := models.ParseStatus(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, err.Error()))
			return
		}
		statuses = append(statuses, status)
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	records, err := h.service.ListByStatus(ctx, statuses, limit)
	if err != nil {
		h.logFailure(ctx, "list certificates failed", err)
		httputil.WriteError(w, err)
		return
	}

	resp := listResponse{Certificates: make([]models.Response, 0, len(records))}
	for _, rec := range records {
		resp.Certificates = append(resp.Certificates, rec.ToResponse())
	}
	resp.Count = len(resp.Certificates)
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return
	}
	h.logger.ErrorContext(ctx, msg,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}
