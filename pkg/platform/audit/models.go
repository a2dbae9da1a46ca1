package audit

import (
	"context"
	"time"

	id "esign/pkg/domain"
)

// CategoryPeruriSync tags every activity produced by the Peruri workflow.
const CategoryPeruriSync = "Sinkronisasi Peruri"

// Outcome of the logged action.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePending Outcome = "pending"
	OutcomeFailure Outcome = "failure"
)

// Action names recorded by the certificate workflow.
const (
	ActionCertificateCheck = "certificate_check"
	ActionKycVerify        = "kyc_verify"
	ActionKycRenewal       = "kyc_renewal"
	ActionRegistration     = "registration"
)

// Event is an append-only activity entry. Keep it transport-agnostic so
// stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	Category  string
	Action    string
	Outcome   Outcome
	Reason    string
	UserID    id.UserID
	Email     string
	RequestID string
	ClientIP  string
	Device    string // "Browser on OS" label derived from the User-Agent
}

// Store persists activity events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
