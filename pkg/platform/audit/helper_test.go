package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "esign/pkg/domain"
	"esign/pkg/requestcontext"
)

type stubEmitter struct {
	events []Event
	err    error
}

func (s *stubEmitter) Emit(_ context.Context, e Event) error {
	s.events = append(s.events, e)
	return s.err
}

func TestLogger_LogActivity_EnrichesFromContext(t *testing.T) {
	emitter := &stubEmitter{}
	logger := NewLogger(slog.New(slog.NewTextHandler(io.Discard, nil)), emitter)

	userID := id.UserID(uuid.New())
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithIdentity(context.Background(), requestcontext.Session{
		UserID: userID,
		Email:  "siti@example.co.id",
	})
	ctx = requestcontext.WithRequestID(ctx, "req-42")
	ctx = requestcontext.WithTime(ctx, now)
	ctx = requestcontext.WithClientMetadata(ctx, "10.1.1.1",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	logger.LogActivity(ctx, CategoryPeruriSync, ActionKycVerify, "outcome", string(OutcomeFailure), "reason", "Video buram")

	require.Len(t, emitter.events, 1)
	e := emitter.events[0]
	assert.Equal(t, CategoryPeruriSync, e.Category)
	assert.Equal(t, ActionKycVerify, e.Action)
	assert.Equal(t, OutcomeFailure, e.Outcome)
	assert.Equal(t, "Video buram", e.Reason)
	assert.Equal(t, userID, e.UserID)
	assert.Equal(t, "siti@example.co.id", e.Email)
	assert.Equal(t, "req-42", e.RequestID)
	assert.Equal(t, "10.1.1.1", e.ClientIP)
	assert.Equal(t, now, e.Timestamp)
	assert.Contains(t, e.Device, "Chrome on Linux")
}

func TestLogger_LogActivity_DefaultsToSuccess(t *testing.T) {
	emitter := &stubEmitter{}
	NewLogger(nil, emitter).LogActivity(context.Background(), CategoryPeruriSync, ActionCertificateCheck)

	require.Len(t, emitter.events, 1)
	assert.Equal(t, OutcomeSuccess, emitter.events[0].Outcome)
}

func TestLogger_LogActivity_EmitFailureIsSwallowed(t *testing.T) {
	emitter := &stubEmitter{err: errors.New("buffer full")}
	logger := NewLogger(slog.New(slog.NewTextHandler(io.Discard, nil)), emitter)

	assert.NotPanics(t, func() {
		logger.LogActivity(context.Background(), CategoryPeruriSync, ActionRegistration)
	})
}

func TestDeviceLabel(t *testing.T) {
	assert.Equal(t, "Unknown Device", DeviceLabel(""))
	assert.Contains(t,
		DeviceLabel("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"), "on iPhone")
}

func TestStringAttr(t *testing.T) {
	attributes := []any{"outcome", "failure", 42, "ignored", "count", 3, "reason", "timeout", "dangling"}

	assert.Equal(t, "failure", StringAttr(attributes, "outcome"))
	assert.Equal(t, "timeout", StringAttr(attributes, "reason"))
	assert.Empty(t, StringAttr(attributes, "count"), "non-string values are skipped")
	assert.Empty(t, StringAttr(attributes, "dangling"))
	assert.Empty(t, StringAttr(nil, "outcome"))
}
