// Package dialog carries a structured user-facing message alongside an HTTP
// response. The UI renders it; handlers never interpret it.
package dialog

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
)

// HeaderName is the response header holding the encoded dialog.
const HeaderName = "X-Dialog"

// Type selects the dialog presentation.
type Type string

const (
	TypeSuccess Type = "success"
	TypeInfo    Type = "info"
	TypeWarning Type = "warning"
	TypeError   Type = "error"
)

// Dialog is the payload rendered by the UI.
type Dialog struct {
	Type        Type   `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ConfirmText string `json:"confirmText,omitempty"`
}

// Headers encodes d as base64url JSON so non-ASCII text survives header transport.
func Headers(d Dialog) http.Header {
	h := http.Header{}
	h.Set(HeaderName, Encode(d))
	return h
}

// Encode returns the header value for d.
func Encode(d Dialog) string {
	raw, _ := json.Marshal(d) //nolint:errcheck // plain string fields cannot fail to marshal
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode parses a header value produced by Encode.
func Decode(value string) (Dialog, error) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return Dialog{}, fmt.Errorf("decode dialog header: %w", err)
	}
	var d Dialog
	if err := json.Unmarshal(raw, &d); err != nil {
		return Dialog{}, fmt.Errorf("unmarshal dialog header: %w", err)
	}
	return d, nil
}

// Attach copies the dialog header onto w. Call before WriteHeader.
func Attach(w http.ResponseWriter, d Dialog) {
	for k, v := range Headers(d) {
		w.Header()[k] = v
	}
}
