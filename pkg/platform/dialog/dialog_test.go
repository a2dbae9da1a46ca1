package dialog

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaders_RoundTrip(t *testing.T) {
	d := Dialog{
		Type:        TypeInfo,
		Title:       "Verifikasi Sedang Ditinjau",
		Description: "Video Anda sedang ditinjau secara manual oleh Peruri.",
		ConfirmText: "Mengerti",
	}

	h := Headers(d)
	require.NotEmpty(t, h.Get(HeaderName))

	got, err := Decode(h.Get(HeaderName))
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestAttach(t *testing.T) {
	w := httptest.NewRecorder()
	Attach(w, Dialog{Type: TypeError, Title: "Gagal"})

	got, err := Decode(w.Header().Get(HeaderName))
	require.NoError(t, err)
	assert.Equal(t, TypeError, got.Type)
	assert.Equal(t, "Gagal", got.Title)
}

func TestDecode_RejectsGarbage(t *testing.T) {
	_, err := Decode("%%%")
	assert.Error(t, err)
}
