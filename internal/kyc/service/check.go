package service

import (
	"context"
	"errors"
	"time"

	certmodels "esign/internal/certificate/models"
	kycmodels "esign/internal/kyc/models"
	"esign/internal/peruri"
	dErrors "esign/pkg/domain-errors"
	"esign/pkg/platform/audit"
)

type checkCertificatePayload struct {
	Email    string `json:"email"`
	SystemID string `json:"systemId"`
}

type checkCertificateData struct {
	IsExpired   *peruri.Code `json:"isExpired"`
	ExpiredDate string       `json:"expiredDate"`
}

// CheckCertificate asks the provider for the user's certificate state and
// records the derived status.
func (s *Service) CheckCertificate(ctx context.Context, identity kycmodels.Identity) (*certmodels.Record, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	const action = audit.ActionCertificateCheck

	resp, err := s.gateway.Call(ctx, peruri.EndpointCheckCertificate, checkCertificatePayload{
		Email:    identity.Email,
		SystemID: s.cfg.SystemID,
	}, s.cfg.CheckTimeout)
	if err != nil {
		return nil, s.gatewayFailure(ctx, action, err)
	}
	if kycmodels.ClassifyResult(resp.ResultCode) != kycmodels.ResultSuccess {
		return nil, s.rejected(ctx, action, resp)
	}

	data, err := peruri.DecodeData[checkCertificateData](resp)
	if err == nil && data.IsExpired == nil {
		err = errors.New("isExpired missing from check response")
	}
	if err != nil {
		return nil, s.localFailure(ctx, action, err, dErrors.CodeInternal, "unexpected certificate check response")
	}

	var providerExpiry *time.Time
	if t, ok := peruri.ParseExpiredDate(data.ExpiredDate); ok {
		providerExpiry = &t
	}

	record, err := s.certs.RecordCheck(ctx, identity.UserID, certmodels.ExpiryCode(*data.IsExpired), providerExpiry)
	if err != nil {
		var unknown *certmodels.UnknownProviderCodeError
		if errors.As(err, &unknown) {
			return nil, s.localFailure(ctx, action, err, dErrors.CodeInternal, "provider returned an unknown certificate status")
		}
		return nil, s.localFailure(ctx, action, err, dErrors.CodeInternal, "failed to save certificate status")
	}

	s.recordActivity(ctx, action, audit.OutcomeSuccess, string(record.Status))
	s.observe(action, "success")
	return record, nil
}
