package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	certmodels "esign/internal/certificate/models"
	kycmodels "esign/internal/kyc/models"
	dErrors "esign/pkg/domain-errors"
	"esign/pkg/platform/dialog"
	"esign/pkg/platform/httputil"
	"esign/pkg/requestcontext"
)

// Service is the KYC orchestrator as seen by HTTP.
type Service interface {
	CheckCertificate(ctx context.Context, identity kycmodels.Identity) (*certmodels.Record, error)
	SubmitKyc(ctx context.Context, identity kycmodels.Identity, video string, action kycmodels.Action) (*kycmodels.Outcome, error)
	Register(ctx context.Context, identity kycmodels.Identity, req kycmodels.RegistrationRequest) (*kycmodels.Outcome, error)
}

type Handler struct {
	service     Service
	logger      *slog.Logger
	submitLimit func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithSubmissionLimit wraps the routes that trigger a KYC or registration call.
func WithSubmissionLimit(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.submitLimit = mw
	}
}

func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the workflow routes. Callers wrap r with session auth.
func (h *Handler) Register(r chi.Router) {
	r.Post("/certificates/check", h.HandleCheckCertificate)
	r.Group(func(r chi.Router) {
		if h.submitLimit != nil {
			r.Use(h.submitLimit)
		}
		r.Post("/kyc/verify", h.handleSubmit(kycmodels.ActionVerify))
		r.Post("/kyc/renewal", h.handleSubmit(kycmodels.ActionRenewal))
		r.Post("/kyc/registration", h.HandleRegistration)
	})
}

type submitKycRequest struct {
	Video string `json:"video"`
}

func (r *submitKycRequest) Validate() error {
	if strings.TrimSpace(r.Video) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "video payload is required")
	}
	return nil
}

type outcomeResponse struct {
	Status      kycmodels.OutcomeKind `json:"status"`
	Certificate *certmodels.Response  `json:"certificate,omitempty"`
}

func (h *Handler) HandleCheckCertificate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	record, err := h.service.CheckCertificate(ctx, identity)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	dialog.Attach(w, statusDialog(record.Status))
	httputil.WriteJSON(w, http.StatusOK, record.ToResponse())
}

func (h *Handler) handleSubmit(action kycmodels.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, ok := h.identity(w, r)
		if !ok {
			return
		}

		req, ok := decode[submitKycRequest](h, w, r)
		if !ok {
			return
		}

		outcome, err := h.service.SubmitKyc(ctx, identity, req.Video, action)
		if err != nil {
			h.writeError(ctx, w, err)
			return
		}
		h.writeOutcome(w, outcome)
	}
}

func (h *Handler) HandleRegistration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	req, ok := decode[kycmodels.RegistrationRequest](h, w, r)
	if !ok {
		return
	}

	outcome, err := h.service.Register(ctx, identity, *req)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeOutcome(w, outcome)
}

// decode reads and validates the body. Validation failures go through
// writeError so the dialog names the offending field.
func decode[T any](h *Handler, w http.ResponseWriter, r *http.Request) (*T, bool) {
	ctx := r.Context()
	// Replaced once the body is accepted.
	dialog.Attach(w, invalidRequestDialog)
	req, ok := httputil.DecodeJSON[T](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return nil, false
	}
	if err := httputil.PrepareRequest(req); err != nil {
		if !isDomainError(err) {
			err = dErrors.New(dErrors.CodeValidation, err.Error())
		}
		h.writeError(ctx, w, err)
		return nil, false
	}
	return req, true
}

func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (kycmodels.Identity, bool) {
	ctx := r.Context()
	if _, err := httputil.RequireUserID(ctx, h.logger); err != nil {
		h.writeError(ctx, w, err)
		return kycmodels.Identity{}, false
	}
	return kycmodels.IdentityFromSession(requestcontext.Identity(ctx)), true
}

func (h *Handler) writeOutcome(w http.ResponseWriter, outcome *kycmodels.Outcome) {
	resp := outcomeResponse{Status: outcome.Kind}
	if outcome.Certificate != nil {
		c := outcome.Certificate.ToResponse()
		resp.Certificate = &c
	}
	dialog.Attach(w, outcome.Dialog)
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) || !isDomainError(err) {
		h.logger.ErrorContext(ctx, "kyc request failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	dialog.Attach(w, errorDialog(err))
	httputil.WriteError(w, err)
}
