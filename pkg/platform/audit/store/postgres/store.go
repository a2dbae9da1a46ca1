package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"esign/pkg/platform/audit"
	"esign/pkg/platform/audit/outbox"
	txcontext "esign/pkg/platform/tx"
)

// Store implements audit.Store with the transactional outbox pattern.
// Events land in the outbox table and the outbox worker publishes them to Kafka.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL activity store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// payload is the JSON document published to Kafka.
type payload struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Category  string `json:"category"`
	Action    string `json:"action"`
	Outcome   string `json:"outcome"`
	Reason    string `json:"reason,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Email     string `json:"email,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	Device    string `json:"device,omitempty"`
}

// Append writes an activity event to the outbox table.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	p := payload{
		ID:        eventID.String(),
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		Category:  event.Category,
		Action:    event.Action,
		Outcome:   string(event.Outcome),
		Reason:    event.Reason,
		Email:     event.Email,
		RequestID: event.RequestID,
		ClientIP:  event.ClientIP,
		Device:    event.Device,
	}
	aggregateType, aggregateID := "activity", eventID.String()
	if !event.UserID.IsNil() {
		p.UserID = event.UserID.String()
		aggregateType, aggregateID = "user", p.UserID
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal activity payload: %w", err)
	}

	entry := outbox.NewEntry(aggregateType, aggregateID, event.Action, body)
	_, err = txcontext.Exec(ctx, s.db).ExecContext(ctx, outbox.InsertQuery,
		entry.ID,
		entry.AggregateType,
		entry.AggregateID,
		entry.EventType,
		entry.Payload,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}
