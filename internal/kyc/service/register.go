package service

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	kycmodels "esign/internal/kyc/models"
	"esign/internal/notification"
	"esign/internal/peruri"
	dErrors "esign/pkg/domain-errors"
	"esign/pkg/platform/audit"
	"esign/pkg/platform/sentinel"
	"esign/pkg/requestcontext"
)

const registrationTypeIndividual = "INDIVIDUAL"

type registrationPayload struct {
	SystemID     string `json:"systemId"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Type         string `json:"type"`
	KTP          string `json:"ktp"`
	KTPPhoto     string `json:"ktpPhoto"`
	NPWP         string `json:"npwp,omitempty"`
	NPWPPhoto    string `json:"npwpPhoto,omitempty"`
	Gender       string `json:"gender,omitempty"`
	PlaceOfBirth string `json:"placeOfBirth,omitempty"`
	DateOfBirth  string `json:"dateOfBirth,omitempty"`
	Address      string `json:"address,omitempty"`
	City         string `json:"city,omitempty"`
	Province     string `json:"province,omitempty"`
}

// Register submits a certificate registration with the user's uploaded
// identity documents and makes sure a local certificate record exists.
func (s *Service) Register(ctx context.Context, identity kycmodels.Identity, req kycmodels.RegistrationRequest) (*kycmodels.Outcome, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.files == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "document storage is not configured")
	}
	const action = audit.ActionRegistration

	var ktpPhoto, npwpPhoto string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ktpPhoto, err = s.fetchDocument(gctx, req.KTPKey)
		return err
	})
	if req.NPWPKey != "" {
		g.Go(func() error {
			var err error
			npwpPhoto, err = s.fetchDocument(gctx, req.NPWPKey)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.WarnContext(ctx, "registration documents unavailable",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		s.recordActivity(ctx, action, audit.OutcomeFailure, "documents unavailable")
		s.observe(action, "documents_unavailable")
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = nameFromEmail(identity.Email)
	}

	resp, err := s.gateway.Call(ctx, peruri.EndpointRegistration, registrationPayload{
		SystemID:     s.cfg.SystemID,
		Email:        identity.Email,
		Name:         name,
		Phone:        req.Phone,
		Type:         registrationTypeIndividual,
		KTP:          req.NIK,
		KTPPhoto:     ktpPhoto,
		NPWP:         req.NPWP,
		NPWPPhoto:    npwpPhoto,
		Gender:       req.Gender,
		PlaceOfBirth: req.PlaceOfBirth,
		DateOfBirth:  req.DateOfBirth,
		Address:      req.Address,
		City:         req.City,
		Province:     req.Province,
	}, s.cfg.RegistrationTimeout)
	if err != nil {
		return nil, s.gatewayFailure(ctx, action, err)
	}
	if kycmodels.ClassifyResult(resp.ResultCode) != kycmodels.ResultSuccess {
		return nil, s.rejected(ctx, action, resp)
	}

	record, err := s.certs.EnsureRecord(ctx, identity.UserID)
	if err != nil {
		return nil, s.localFailure(ctx, action, err, dErrors.CodeInternal, "failed to save certificate record")
	}

	s.recordActivity(ctx, action, audit.OutcomeSuccess, "")
	s.observe(action, "success")
	s.notify(ctx, notification.KindRegistered, identityRef{UserID: identity.UserID, Email: identity.Email})
	return &kycmodels.Outcome{Kind: kycmodels.OutcomeRegistered, Dialog: registeredDialog, Certificate: record}, nil
}

func (s *Service) fetchDocument(ctx context.Context, key string) (string, error) {
	url, err := s.files.PathKeyToURL(key, s.cfg.DocumentURLTTL)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign document url")
	}
	data, err := s.files.FetchBase64(ctx, url)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.Wrap(err, dErrors.CodeBadRequest, "uploaded document was not found")
		}
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "document storage is unavailable")
	}
	return data, nil
}

// nameFromEmail builds a display name from the email local part, so
// "budi.santoso@example.com" registers as "Budi Santoso".
func nameFromEmail(addr string) string {
	local, _, _ := strings.Cut(addr, "@")
	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	for i, p := range parts {
		r := []rune(p)
		r[0] = unicode.ToUpper(r[0])
		parts[i] = string(r)
	}
	return strings.Join(parts, " ")
}
