package audit

import (
	"context"
	"log/slog"

	"esign/pkg/requestcontext"
)

// Emitter is satisfied by publisher.Publisher.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Logger writes activity entries to the text log and, when an emitter is set,
// to the activity store. Emission is best-effort: failures are logged, never returned.
type Logger struct {
	textLogger *slog.Logger
	emitter    Emitter
}

// NewLogger creates an activity logger. emitter may be nil.
func NewLogger(textLogger *slog.Logger, emitter Emitter) *Logger {
	return &Logger{
		textLogger: textLogger,
		emitter:    emitter,
	}
}

// LogActivity records an action under category, enriched from the request context.
// Recognised attributes: "outcome", "reason".
//
//	logger.LogActivity(ctx, audit.CategoryPeruriSync, audit.ActionKycVerify, "outcome", "success")
func (l *Logger) LogActivity(ctx context.Context, category, action string, attributes ...any) {
	session := requestcontext.Identity(ctx)
	event := Event{
		Timestamp: requestcontext.Now(ctx),
		Category:  category,
		Action:    action,
		Outcome:   Outcome(StringAttr(attributes, "outcome")),
		Reason:    StringAttr(attributes, "reason"),
		UserID:    session.UserID,
		Email:     session.Email,
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		Device:    DeviceLabel(requestcontext.UserAgent(ctx)),
	}
	if event.Outcome == "" {
		event.Outcome = OutcomeSuccess
	}

	l.logToText(ctx, event)
	l.emit(ctx, event)
}

func (l *Logger) logToText(ctx context.Context, e Event) {
	if l.textLogger == nil {
		return
	}
	l.textLogger.InfoContext(ctx, e.Action,
		"log_type", "activity",
		"category", e.Category,
		"outcome", string(e.Outcome),
		"reason", e.Reason,
		"user_id", e.UserID.String(),
		"request_id", e.RequestID,
		"device", e.Device,
	)
}

func (l *Logger) emit(ctx context.Context, e Event) {
	if l.emitter == nil {
		return
	}
	if err := l.emitter.Emit(ctx, e); err != nil && l.textLogger != nil {
		l.textLogger.ErrorContext(ctx, "failed to emit activity event",
			"error", err,
			"action", e.Action,
		)
	}
}

// StringAttr returns the string paired with key in a key/value attribute list.
func StringAttr(attributes []any, key string) string {
	for i := 0; i+1 < len(attributes); i += 2 {
		if k, ok := attributes[i].(string); ok && k == key {
			v, _ := attributes[i+1].(string)
			return v
		}
	}
	return ""
}
