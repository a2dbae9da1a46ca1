package service

import (
	"context"

	certmodels "esign/internal/certificate/models"
	kycmodels "esign/internal/kyc/models"
	"esign/internal/notification"
	"esign/internal/peruri"
	usermodels "esign/internal/user/models"
	dErrors "esign/pkg/domain-errors"
	"esign/pkg/platform/audit"
	"esign/pkg/requestcontext"
)

type videoVerificationPayload struct {
	Email       string `json:"email"`
	SystemID    string `json:"systemId"`
	VideoStream string `json:"videoStream"`
}

// SubmitKyc forwards a KYC video. Verify and renewal are separate provider
// endpoints; renewal additionally resets the certificate to valid on success.
func (s *Service) SubmitKyc(ctx context.Context, identity kycmodels.Identity, video string, action kycmodels.Action) (*kycmodels.Outcome, error) {
	if !action.IsValid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "action must be verify or renewal")
	}
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	stream := kycmodels.StripDataURI(video)
	if stream == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "video payload is required")
	}

	endpoint, activityAction := peruri.EndpointVideoVerification, audit.ActionKycVerify
	if action == kycmodels.ActionRenewal {
		endpoint, activityAction = peruri.EndpointVideoVerificationForRenewal, audit.ActionKycRenewal
	}

	resp, err := s.gateway.Call(ctx, endpoint, videoVerificationPayload{
		Email:       identity.Email,
		SystemID:    s.cfg.SystemID,
		VideoStream: stream,
	}, s.cfg.KYCTimeout)
	if err != nil {
		return nil, s.gatewayFailure(ctx, activityAction, err)
	}

	switch kycmodels.ClassifyResult(resp.ResultCode) {
	case kycmodels.ResultSuccess:
		return s.completeKyc(ctx, identity, action, activityAction)
	case kycmodels.ResultPendingReview:
		s.recordActivity(ctx, activityAction, audit.OutcomePending, "manual review")
		s.observe(activityAction, "pending_review")
		return &kycmodels.Outcome{
			Kind:   kycmodels.OutcomePendingReview,
			Dialog: pendingReviewDialog(resp.ResultDesc),
		}, nil
	default:
		return nil, s.rejected(ctx, activityAction, resp)
	}
}

// completeKyc applies an accepted video in one transaction.
func (s *Service) completeKyc(ctx context.Context, identity kycmodels.Identity, action kycmodels.Action, activityAction string) (*kycmodels.Outcome, error) {
	now := requestcontext.Now(ctx)
	var record *certmodels.Record

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		err := s.users.MarkKycVerified(ctx, usermodels.User{
			ID:       identity.UserID,
			Email:    identity.Email,
			PersonID: identity.PersonID,
			Username: identity.Username,
		}, now)
		if err != nil {
			return err
		}
		if action != kycmodels.ActionRenewal {
			return nil
		}
		record, err = s.certs.Issue(ctx, identity.UserID)
		return err
	})
	if err != nil {
		return nil, s.localFailure(ctx, activityAction, err, dErrors.CodeInternal, "failed to save verification result")
	}

	s.recordActivity(ctx, activityAction, audit.OutcomeSuccess, "")
	s.observe(activityAction, "success")

	ref := identityRef{UserID: identity.UserID, Email: identity.Email}
	if action == kycmodels.ActionRenewal {
		s.notify(ctx, notification.KindCertificateRenewed, ref)
		return &kycmodels.Outcome{Kind: kycmodels.OutcomeRenewed, Dialog: renewedDialog, Certificate: record}, nil
	}
	s.notify(ctx, notification.KindKycVerified, ref)
	return &kycmodels.Outcome{Kind: kycmodels.OutcomeVerified, Dialog: verifiedDialog}, nil
}
