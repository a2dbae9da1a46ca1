package models

import (
	"fmt"
	"math/rand/v2"
	"time"

	id "esign/pkg/domain"
)

// Status is the locally tracked state of a user's signing certificate.
type Status string

const (
	StatusValid         Status = "valid"
	StatusAlmostExpired Status = "almost_expired"
	StatusExpired       Status = "expired"
	StatusUnknown       Status = "unknown"
)

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusValid, StatusAlmostExpired, StatusExpired, StatusUnknown:
		return true
	}
	return false
}

// ParseStatus converts a stored or query value into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", fmt.Errorf("invalid certificate status %q", s)
	}
	return st, nil
}

// ExpiryCode is the provider's isExpired value.
type ExpiryCode string

const (
	ExpiryCodeActive        ExpiryCode = "0"
	ExpiryCodeAlmostExpired ExpiryCode = "1"
	ExpiryCodeExpired       ExpiryCode = "2"
)

// Record is the single certificate row kept per user.
type Record struct {
	ID            id.CertificateID
	UserID        id.UserID
	Status        Status
	IssuedAt      *time.Time
	ExpiresAt     *time.Time
	LastCheckedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NeedsRenewal reports whether the user should be steered to KYC renewal.
func (r *Record) NeedsRenewal() bool {
	return r.Status == StatusAlmostExpired || r.Status == StatusExpired
}

// Derivation is the outcome of mapping a provider code to local state.
type Derivation struct {
	Status    Status
	ExpiresAt time.Time
}

// JitterFunc returns a whole number of days in [minDays, maxDays].
type JitterFunc func(minDays, maxDays int) int

// RandomJitter spreads expiries so certificates checked together do not all
// come due for a re-check on the same day.
func RandomJitter(minDays, maxDays int) int {
	return minDays + rand.IntN(maxDays-minDays+1)
}

// UnknownProviderCodeError is returned for isExpired codes outside "0", "1" and "2".
type UnknownProviderCodeError struct {
	Code string
}

func (e *UnknownProviderCodeError) Error() string {
	return fmt.Sprintf("unknown provider expiry code %q", e.Code)
}

const day = 24 * time.Hour

// DeriveStatus maps the provider's isExpired code to a status and expiry date.
// A provider-supplied expiry, when present, is used instead of the jittered one.
// Unknown codes are rejected rather than guessed.
func DeriveStatus(code ExpiryCode, now time.Time, providerExpiry *time.Time, jitter JitterFunc) (Derivation, error) {
	if jitter == nil {
		jitter = RandomJitter
	}

	var d Derivation
	switch code {
	case ExpiryCodeActive:
		d = Derivation{Status: StatusValid, ExpiresAt: now.Add(time.Duration(jitter(31, 60)) * day)}
	case ExpiryCodeAlmostExpired:
		d = Derivation{Status: StatusAlmostExpired, ExpiresAt: now.Add(time.Duration(jitter(1, 30)) * day)}
	case ExpiryCodeExpired:
		d = Derivation{Status: StatusExpired, ExpiresAt: now.Add(-day)}
	default:
		return Derivation{}, &UnknownProviderCodeError{Code: string(code)}
	}

	if providerExpiry != nil && !providerExpiry.IsZero() {
		d.ExpiresAt = *providerExpiry
	}
	return d, nil
}

// UpsertParams carries one certificate state transition.
type UpsertParams struct {
	UserID    id.UserID
	Status    Status
	ExpiresAt time.Time
	IssuedAt  *time.Time // set on issuance; nil keeps the stored value
	CheckedAt time.Time
}

// Response is the JSON view of a record.
type Response struct {
	UserID        string     `json:"userId"`
	Status        Status     `json:"status"`
	IssuedAt      *time.Time `json:"issuedAt,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	LastCheckedAt time.Time  `json:"lastCheckedAt"`
	NeedsRenewal  bool       `json:"needsRenewal"`
}

func (r *Record) ToResponse() Response {
	return Response{
		UserID:        r.UserID.String(),
		Status:        r.Status,
		IssuedAt:      r.IssuedAt,
		ExpiresAt:     r.ExpiresAt,
		LastCheckedAt: r.LastCheckedAt,
		NeedsRenewal:  r.NeedsRenewal(),
	}
}
