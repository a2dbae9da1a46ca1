package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "esign/pkg/domain"
	dErrors "esign/pkg/domain-errors"
)

func TestClassifyResult(t *testing.T) {
	tests := []struct {
		code string
		want Result
	}{
		{"0", ResultSuccess},
		{" 0 ", ResultSuccess},
		{"1040", ResultPendingReview},
		{"1", ResultOther},
		{"", ResultOther},
		{"00", ResultOther},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyResult(tt.code))
		})
	}
}

func TestStripDataURI(t *testing.T) {
	assert.Equal(t, "AAAA", StripDataURI("data:video/webm;base64,AAAA"))
	assert.Equal(t, "AAAA", StripDataURI("  AAAA\n"))
	assert.Equal(t, "", StripDataURI("data:video/webm;base64,"))
	assert.Equal(t, "", StripDataURI("data:video/webm"))
	assert.Equal(t, "", StripDataURI("   "))
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction(" Renewal ")
	require.NoError(t, err)
	assert.Equal(t, ActionRenewal, a)

	_, err = ParseAction("revoke")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestIdentity_Validate(t *testing.T) {
	valid := Identity{UserID: id.UserID(uuid.New()), Email: "budi@example.com"}
	assert.NoError(t, valid.Validate())

	noUser := valid
	noUser.UserID = id.UserID{}
	assert.True(t, dErrors.HasCode(noUser.Validate(), dErrors.CodeBadRequest))

	noEmail := valid
	noEmail.Email = " "
	assert.True(t, dErrors.HasCode(noEmail.Validate(), dErrors.CodeBadRequest))
}

func TestRegistrationRequest_Validate(t *testing.T) {
	base := func() RegistrationRequest {
		return RegistrationRequest{Phone: "0812", NIK: "3171234567890001", KTPKey: "ktp/1.jpg"}
	}

	r := base()
	r.Normalize()
	assert.NoError(t, r.Validate())

	r = base()
	r.NIK = "31712345"
	assert.Error(t, r.Validate())

	r = base()
	r.KTPKey = ""
	assert.Error(t, r.Validate())

	r = base()
	r.NPWP = "012345678901000"
	assert.Error(t, r.Validate(), "npwp number without its document")
}

func TestProviderRejectedError(t *testing.T) {
	assert.Equal(t, "Email tidak terdaftar", (&ProviderRejectedError{Code: "5", Description: "Email tidak terdaftar"}).Error())
	assert.Contains(t, (&ProviderRejectedError{Code: "5"}).Error(), "code 5")
}
