package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"esign/internal/certificate/models"
	"esign/internal/platform/metrics"
	id "esign/pkg/domain"
	dErrors "esign/pkg/domain-errors"
	"esign/pkg/platform/sentinel"
	"esign/pkg/requestcontext"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Store is the persistence port for certificate records.
type Store interface {
	Upsert(ctx context.Context, certID id.CertificateID, params models.UpsertParams, now time.Time) (*models.Record, error)
	EnsureUnknown(ctx context.Context, certID id.CertificateID, userID id.UserID, now time.Time) (*models.Record, error)
	FindByUserID(ctx context.Context, userID id.UserID) (*models.Record, error)
	ListByStatus(ctx context.Context, statuses []models.Status, limit int) ([]*models.Record, error)
}

// TxRunner executes fn inside a database transaction carried by the context.
// An already open transaction in ctx is joined rather than nested.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service is the only writer of certificate records.
type Service struct {
	store   Store
	tx      TxRunner
	jitter  models.JitterFunc
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(*Service)

// WithJitter replaces the random expiry jitter, typically in tests.
func WithJitter(fn models.JitterFunc) Option {
	return func(s *Service) { s.jitter = fn }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store Store, tx TxRunner, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tx:     tx,
		jitter: models.RandomJitter,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Derive maps a provider expiry code to a status using the service's jitter.
func (s *Service) Derive(code models.ExpiryCode, now time.Time, providerExpiry *time.Time) (models.Derivation, error) {
	return models.DeriveStatus(code, now, providerExpiry, s.jitter)
}

// Upsert records a certificate state transition for one user. Repeating the
// same call leaves exactly one row.
func (s *Service) Upsert(ctx context.Context, params models.UpsertParams) (*models.Record, error) {
	if params.UserID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "user id is required")
	}
	if !params.Status.IsValid() {
		return nil, dErrors.New(dErrors.CodeInternal, "invalid certificate status")
	}
	now := requestcontext.Now(ctx)
	if params.CheckedAt.IsZero() {
		params.CheckedAt = now
	}

	var record *models.Record
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		record, err = s.store.Upsert(ctx, id.NewCertificateID(), params, now)
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "certificate upsert failed",
			"error", err,
			"user_id", params.UserID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save certificate")
	}

	if s.metrics != nil {
		s.metrics.IncCertificateStatus(string(record.Status))
	}
	return record, nil
}

// RecordCheck derives the status for a provider check result and persists it.
func (s *Service) RecordCheck(ctx context.Context, userID id.UserID, code models.ExpiryCode, providerExpiry *time.Time) (*models.Record, error) {
	now := requestcontext.Now(ctx)
	d, err := s.Derive(code, now, providerExpiry)
	if err != nil {
		return nil, err
	}
	return s.Upsert(ctx, models.UpsertParams{
		UserID:    userID,
		Status:    d.Status,
		ExpiresAt: d.ExpiresAt,
		CheckedAt: now,
	})
}

// Issue resets the user's certificate to a freshly issued valid state.
func (s *Service) Issue(ctx context.Context, userID id.UserID) (*models.Record, error) {
	now := requestcontext.Now(ctx)
	d, err := s.Derive(models.ExpiryCodeActive, now, nil)
	if err != nil {
		return nil, err
	}
	return s.Upsert(ctx, models.UpsertParams{
		UserID:    userID,
		Status:    d.Status,
		ExpiresAt: d.ExpiresAt,
		IssuedAt:  &now,
		CheckedAt: now,
	})
}

// EnsureRecord returns the user's record, creating an unknown one if none
// exists. An existing record is never downgraded.
func (s *Service) EnsureRecord(ctx context.Context, userID id.UserID) (*models.Record, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "user id is required")
	}

	var record *models.Record
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		record, err = s.store.EnsureUnknown(ctx, id.NewCertificateID(), userID, requestcontext.Now(ctx))
		return err
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create certificate record")
	}
	return record, nil
}

// Get returns the user's certificate record.
func (s *Service) Get(ctx context.Context, userID id.UserID) (*models.Record, error) {
	record, err := s.store.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no certificate on file")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certificate")
	}
	return record, nil
}

// ListByStatus lists records in the given statuses, soonest expiry first.
// An empty status list means every status that needs attention.
func (s *Service) ListByStatus(ctx context.Context, statuses []models.Status, limit int) ([]*models.Record, error) {
	if len(statuses) == 0 {
		statuses = []models.Status{models.StatusAlmostExpired, models.StatusExpired}
	}
	for _, st := range statuses {
		if !st.IsValid() {
			return nil, dErrors.New(dErrors.CodeBadRequest, "invalid status filter: "+string(st))
		}
	}
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}

	records, err := s.store.ListByStatus(ctx, statuses, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list certificates")
	}
	return records, nil
}
