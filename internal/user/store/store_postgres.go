package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"esign/internal/user/models"
	id "esign/pkg/domain"
	"esign/pkg/platform/sentinel"
	txcontext "esign/pkg/platform/tx"
)

// PostgresStore persists the KYC flag in the users table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// MarkKycVerified sets kyc_verified for the user, creating the row from the
// session profile when it does not exist yet. The first verification time is kept.
func (s *PostgresStore) MarkKycVerified(ctx context.Context, user models.User, at time.Time) error {
	query := `
		INSERT INTO users (id, email, person_id, username, kyc_verified, kyc_verified_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $5, $5)
		ON CONFLICT (id) DO UPDATE SET
			email           = EXCLUDED.email,
			person_id       = EXCLUDED.person_id,
			username        = EXCLUDED.username,
			kyc_verified    = TRUE,
			kyc_verified_at = COALESCE(users.kyc_verified_at, EXCLUDED.kyc_verified_at),
			updated_at      = EXCLUDED.updated_at
	`
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(user.ID),
		user.Email,
		user.PersonID,
		user.Username,
		at,
	)
	if err != nil {
		return fmt.Errorf("mark kyc verified: %w", err)
	}
	return nil
}

// FindByID returns sentinel.ErrNotFound when the user has never been synced.
func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	query := `
		SELECT id, email, person_id, username, kyc_verified, kyc_verified_at, updated_at
		FROM users WHERE id = $1
	`
	var (
		rawID      uuid.UUID
		verifiedAt sql.NullTime
		user       models.User
	)
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(userID)).Scan(
		&rawID, &user.Email, &user.PersonID, &user.Username, &user.KycVerified, &verifiedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	user.ID = id.UserID(rawID)
	if verifiedAt.Valid {
		user.KycVerifiedAt = &verifiedAt.Time
	}
	return &user, nil
}
