package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"esign/internal/certificate/models"
	id "esign/pkg/domain"
	"esign/pkg/platform/sentinel"
	txcontext "esign/pkg/platform/tx"
)

const recordColumns = `id, user_id, status, issued_at, expires_at, last_checked_at, created_at, updated_at`

// PostgresStore persists certificate records in PostgreSQL. Every method joins
// the transaction carried by ctx when there is one.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed certificate store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Upsert writes the certificate state for params.UserID, creating the row on
// first sight. last_checked_at never moves backwards and a nil IssuedAt keeps
// the stored issue date.
func (s *PostgresStore) Upsert(ctx context.Context, certID id.CertificateID, params models.UpsertParams, now time.Time) (*models.Record, error) {
	query := `
		INSERT INTO certificates (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			status          = EXCLUDED.status,
			expires_at      = EXCLUDED.expires_at,
			issued_at       = COALESCE(EXCLUDED.issued_at, certificates.issued_at),
			last_checked_at = GREATEST(certificates.last_checked_at, EXCLUDED.last_checked_at),
			updated_at      = EXCLUDED.updated_at
		RETURNING ` + recordColumns
	record, err := scanRecord(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query,
		uuid.UUID(certID),
		uuid.UUID(params.UserID),
		string(params.Status),
		params.IssuedAt,
		params.ExpiresAt,
		params.CheckedAt,
		now,
	))
	if err != nil {
		return nil, fmt.Errorf("upsert certificate: %w", err)
	}
	return record, nil
}

// EnsureUnknown creates an unknown-status record unless the user already has one.
func (s *PostgresStore) EnsureUnknown(ctx context.Context, certID id.CertificateID, userID id.UserID, now time.Time) (*models.Record, error) {
	query := `
		INSERT INTO certificates (` + recordColumns + `)
		VALUES ($1, $2, $3, NULL, NULL, $4, $4, $4)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(certID),
		uuid.UUID(userID),
		string(models.StatusUnknown),
		now,
	); err != nil {
		return nil, fmt.Errorf("ensure certificate: %w", err)
	}
	return s.FindByUserID(ctx, userID)
}

// FindByUserID returns sentinel.ErrNotFound when the user has no record.
func (s *PostgresStore) FindByUserID(ctx context.Context, userID id.UserID) (*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM certificates WHERE user_id = $1`
	record, err := scanRecord(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(userID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find certificate: %w", err)
	}
	return record, nil
}

// ListByStatus returns records in any of statuses, soonest expiry first.
func (s *PostgresStore) ListByStatus(ctx context.Context, statuses []models.Status, limit int) ([]*models.Record, error) {
	values := make([]string, len(statuses))
	for i, st := range statuses {
		values[i] = string(st)
	}

	query := `
		SELECT ` + recordColumns + `
		FROM certificates
		WHERE status = ANY($1)
		ORDER BY expires_at ASC NULLS LAST, user_id ASC
		LIMIT $2
	`
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, pq.Array(values), limit)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate certificates: %w", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*models.Record, error) {
	var (
		certID, userID      uuid.UUID
		status              string
		issuedAt, expiresAt sql.NullTime
		record              models.Record
	)
	if err := row.Scan(&certID, &userID, &status, &issuedAt, &expiresAt,
		&record.LastCheckedAt, &record.CreatedAt, &record.UpdatedAt); err != nil {
		return nil, err
	}
	parsed, err := models.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	record.ID = id.CertificateID(certID)
	record.UserID = id.UserID(userID)
	record.Status = parsed
	if issuedAt.Valid {
		record.IssuedAt = &issuedAt.Time
	}
	if expiresAt.Valid {
		record.ExpiresAt = &expiresAt.Time
	}
	return &record, nil
}
