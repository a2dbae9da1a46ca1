package models

import (
	"time"

	id "esign/pkg/domain"
)

// User is the local projection of a session user that the KYC workflow owns.
// Profile fields are refreshed from the session on every write.
type User struct {
	ID            id.UserID
	Email         string
	PersonID      string
	Username      string
	KycVerified   bool
	KycVerifiedAt *time.Time
	UpdatedAt     time.Time
}
