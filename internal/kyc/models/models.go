package models

import (
	"fmt"
	"strings"

	certmodels "esign/internal/certificate/models"
	id "esign/pkg/domain"
	dErrors "esign/pkg/domain-errors"
	"esign/pkg/platform/dialog"
	"esign/pkg/requestcontext"
)

// Identity is the session user the workflow acts for.
type Identity struct {
	UserID   id.UserID
	Email    string
	PersonID string
	Username string
}

func IdentityFromSession(s requestcontext.Session) Identity {
	return Identity{
		UserID:   s.UserID,
		Email:    s.Email,
		PersonID: s.PersonID,
		Username: s.Username,
	}
}

// Validate rejects identities the provider cannot be asked about.
func (i Identity) Validate() error {
	if i.UserID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "session user id is missing")
	}
	if strings.TrimSpace(i.Email) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "session email is missing")
	}
	return nil
}

// Action selects the KYC video endpoint.
type Action string

const (
	ActionVerify  Action = "verify"
	ActionRenewal Action = "renewal"
)

func (a Action) IsValid() bool {
	return a == ActionVerify || a == ActionRenewal
}

func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if !a.IsValid() {
		return "", dErrors.New(dErrors.CodeBadRequest, "action must be verify or renewal")
	}
	return a, nil
}

// Result is the closed set of provider result codes the workflow acts on.
type Result int

const (
	ResultOther Result = iota
	ResultSuccess
	ResultPendingReview
)

const (
	codeSuccess       = "0"
	codePendingReview = "1040"
)

// ClassifyResult maps a raw provider result code. "1040" is only meaningful
// for KYC submissions; callers outside that path treat it as ResultOther.
func ClassifyResult(code string) Result {
	switch strings.TrimSpace(code) {
	case codeSuccess:
		return ResultSuccess
	case codePendingReview:
		return ResultPendingReview
	default:
		return ResultOther
	}
}

// ProviderRejectedError carries the provider's description verbatim for display.
type ProviderRejectedError struct {
	Code        string
	Description string
}

func (e *ProviderRejectedError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("provider rejected request with code %s", e.Code)
	}
	return e.Description
}

// OutcomeKind is the successful terminal state of a workflow step.
type OutcomeKind string

const (
	OutcomeVerified      OutcomeKind = "verified"
	OutcomeRenewed       OutcomeKind = "renewed"
	OutcomePendingReview OutcomeKind = "pending_review"
	OutcomeRegistered    OutcomeKind = "registered"
)

// Outcome is what a caller renders after a KYC step.
type Outcome struct {
	Kind        OutcomeKind
	Dialog      dialog.Dialog
	Certificate *certmodels.Record
}

// RegistrationRequest references documents uploaded earlier by key.
type RegistrationRequest struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	NIK          string `json:"nik"`
	NPWP         string `json:"npwp"`
	KTPKey       string `json:"ktpKey"`
	NPWPKey      string `json:"npwpKey"`
	Gender       string `json:"gender"`
	PlaceOfBirth string `json:"placeOfBirth"`
	DateOfBirth  string `json:"dateOfBirth"`
	Address      string `json:"address"`
	City         string `json:"city"`
	Province     string `json:"province"`
}

func (r *RegistrationRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	r.NIK = strings.TrimSpace(r.NIK)
	r.NPWP = strings.TrimSpace(r.NPWP)
	r.KTPKey = strings.TrimSpace(r.KTPKey)
	r.NPWPKey = strings.TrimSpace(r.NPWPKey)
	r.Gender = strings.ToUpper(strings.TrimSpace(r.Gender))
}

func (r *RegistrationRequest) Validate() error {
	if r.Phone == "" {
		return dErrors.New(dErrors.CodeBadRequest, "phone is required")
	}
	if len(r.NIK) != 16 || strings.Trim(r.NIK, "0123456789") != "" {
		return dErrors.New(dErrors.CodeBadRequest, "nik must be 16 digits")
	}
	if r.KTPKey == "" {
		return dErrors.New(dErrors.CodeBadRequest, "ktp document is required")
	}
	if r.NPWP != "" && r.NPWPKey == "" {
		return dErrors.New(dErrors.CodeBadRequest, "npwp document is required when npwp is set")
	}
	return nil
}

// StripDataURI removes a "data:<mime>;base64," prefix from an encoded payload.
func StripDataURI(payload string) string {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		if i := strings.IndexByte(payload, ','); i >= 0 {
			return strings.TrimSpace(payload[i+1:])
		}
		return ""
	}
	return payload
}
