package peruri

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Endpoint names a Peruri signature API operation.
type Endpoint string

const (
	EndpointCheckCertificate            Endpoint = "checkCertificate"
	EndpointVideoVerification           Endpoint = "videoVerification"
	EndpointVideoVerificationForRenewal Endpoint = "videoVerificationForRenewal"
	EndpointRegistration                Endpoint = "registration"
)

// IsValid reports whether the endpoint is one the gateway supports.
func (e Endpoint) IsValid() bool {
	switch e {
	case EndpointCheckCertificate, EndpointVideoVerification,
		EndpointVideoVerificationForRenewal, EndpointRegistration:
		return true
	}
	return false
}

func (e Endpoint) String() string { return string(e) }

// Response is the gateway envelope. ResultCode and ResultDesc are passed
// through verbatim; interpreting them belongs to the caller.
type Response struct {
	ResultCode string
	ResultDesc string
	Data       json.RawMessage
}

// DecodeData unmarshals the envelope's data member into T.
func DecodeData[T any](resp *Response) (*T, error) {
	if resp == nil || len(resp.Data) == 0 || bytes.Equal(resp.Data, []byte("null")) {
		return nil, fmt.Errorf("peruri response has no data")
	}
	var out T
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return nil, fmt.Errorf("decode peruri data: %w", err)
	}
	return &out, nil
}

// Token is a gateway JWT with its usable lifetime.
type Token struct {
	JWT       string    `json:"jwt"`
	ExpiresAt time.Time `json:"expires_at"`
}

// envelope is the wire shape shared by every gateway response.
type envelope struct {
	ResultCode Code            `json:"resultCode"`
	ResultDesc string          `json:"resultDesc"`
	Data       json.RawMessage `json:"data"`
}

type tokenData struct {
	JWT         string `json:"jwt"`
	ExpiredDate string `json:"expiredDate"`
}

type request struct {
	Param any `json:"param"`
}

// Code is a provider code that arrives as "0" or 0 depending on the gateway
// build. Either form decodes to the same string.
type Code string

func (r *Code) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = Code(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("provider code: %w", err)
	}
	*r = Code(n.String())
	return nil
}
