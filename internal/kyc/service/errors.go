package service

import (
	"context"
	"errors"

	kycmodels "esign/internal/kyc/models"
	"esign/internal/peruri"
	dErrors "esign/pkg/domain-errors"
	"esign/pkg/platform/audit"
	"esign/pkg/requestcontext"
)

// gatewayFailure records a transport level failure and translates it into a
// domain error. Partial provider side effects cannot be ruled out.
func (s *Service) gatewayFailure(ctx context.Context, action string, err error) error {
	var (
		timeoutErr *peruri.GatewayTimeoutError
		authErr    *peruri.AuthTokenError
		gatewayErr *peruri.GatewayError
	)

	var (
		translated error
		reason     string
	)
	switch {
	case errors.As(err, &timeoutErr):
		reason = "timeout"
		translated = dErrors.Wrap(err, dErrors.CodeTimeout, "provider did not respond in time")
		s.logger.WarnContext(ctx, "provider call timed out",
			"action", action,
			"timeout", timeoutErr.Timeout.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
	case errors.As(err, &authErr):
		reason = "credentials rejected"
		translated = dErrors.Wrap(err, dErrors.CodeUnavailable, "provider is temporarily unavailable")
		s.logger.ErrorContext(ctx, "provider rejected gateway credentials",
			"action", action,
			"status", authErr.StatusCode,
			"result_code", authErr.ResultCode,
			"request_id", requestcontext.RequestID(ctx),
		)
	case errors.As(err, &gatewayErr):
		reason = "unavailable"
		translated = dErrors.Wrap(err, dErrors.CodeUnavailable, "provider is temporarily unavailable")
		s.logger.WarnContext(ctx, "provider call failed",
			"action", action,
			"error", err,
			"status", gatewayErr.StatusCode,
			"request_id", requestcontext.RequestID(ctx),
		)
	default:
		reason = "internal"
		translated = dErrors.Wrap(err, dErrors.CodeInternal, "provider call failed")
		s.logger.ErrorContext(ctx, "provider call failed",
			"action", action,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}

	s.recordActivity(ctx, action, audit.OutcomeFailure, reason)
	s.observe(action, reason)
	return translated
}

// rejected turns a non-success result code into a ProviderRejectedError whose
// description reaches the user unchanged.
func (s *Service) rejected(ctx context.Context, action string, resp *peruri.Response) error {
	rejection := &kycmodels.ProviderRejectedError{Code: resp.ResultCode, Description: resp.ResultDesc}
	s.logger.InfoContext(ctx, "provider rejected request",
		"action", action,
		"result_code", resp.ResultCode,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.recordActivity(ctx, action, audit.OutcomeFailure, "provider code "+resp.ResultCode)
	s.observe(action, "rejected")
	return dErrors.Wrap(rejection, dErrors.CodeProviderRejected, rejection.Error())
}

// localFailure records a failure that happened after the provider answered.
func (s *Service) localFailure(ctx context.Context, action string, err error, code dErrors.Code, msg string) error {
	s.logger.ErrorContext(ctx, msg,
		"action", action,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.recordActivity(ctx, action, audit.OutcomeFailure, msg)
	s.observe(action, "error")
	return dErrors.Wrap(err, code, msg)
}
