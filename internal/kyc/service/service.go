package service

import (
	"context"
	"log/slog"
	"time"

	certmodels "esign/internal/certificate/models"
	"esign/internal/notification"
	"esign/internal/peruri"
	"esign/internal/platform/metrics"
	usermodels "esign/internal/user/models"
	id "esign/pkg/domain"
	"esign/pkg/platform/audit"
	"esign/pkg/requestcontext"
)

// Gateway performs authenticated provider calls.
type Gateway interface {
	Call(ctx context.Context, endpoint peruri.Endpoint, payload any, timeout time.Duration) (*peruri.Response, error)
}

// CertificateService persists certificate state transitions.
type CertificateService interface {
	RecordCheck(ctx context.Context, userID id.UserID, code certmodels.ExpiryCode, providerExpiry *time.Time) (*certmodels.Record, error)
	Issue(ctx context.Context, userID id.UserID) (*certmodels.Record, error)
	EnsureRecord(ctx context.Context, userID id.UserID) (*certmodels.Record, error)
}

type UserStore interface {
	MarkKycVerified(ctx context.Context, user usermodels.User, at time.Time) error
}

// TxRunner executes fn inside one database transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// FileStorage resolves uploaded documents.
type FileStorage interface {
	PathKeyToURL(key string, ttl time.Duration) (string, error)
	FetchBase64(ctx context.Context, fileURL string) (string, error)
}

type Notifier interface {
	Enqueue(ctx context.Context, job notification.Job) error
}

type ActivityLogger interface {
	LogActivity(ctx context.Context, category, action string, attributes ...any)
}

// Config holds the provider system id and per-operation deadlines.
type Config struct {
	SystemID            string
	CheckTimeout        time.Duration
	KYCTimeout          time.Duration
	RegistrationTimeout time.Duration
	DocumentURLTTL      time.Duration
}

func (c *Config) applyDefaults() {
	if c.CheckTimeout <= 0 {
		c.CheckTimeout = 15 * time.Second
	}
	if c.KYCTimeout <= 0 {
		c.KYCTimeout = 30 * time.Second
	}
	if c.RegistrationTimeout <= 0 {
		c.RegistrationTimeout = 30 * time.Second
	}
	if c.DocumentURLTTL <= 0 {
		c.DocumentURLTTL = 5 * time.Minute
	}
}

// Service drives certificate checks, video KYC and registration against Peruri.
// Provider calls are never retried here.
type Service struct {
	gateway  Gateway
	certs    CertificateService
	users    UserStore
	tx       TxRunner
	files    FileStorage
	notifier Notifier
	activity ActivityLogger
	metrics  *metrics.Metrics
	logger   *slog.Logger
	cfg      Config
}

type Option func(*Service)

func WithFileStorage(files FileStorage) Option {
	return func(s *Service) { s.files = files }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithActivityLogger(a ActivityLogger) Option {
	return func(s *Service) { s.activity = a }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(gateway Gateway, certs CertificateService, users UserStore, tx TxRunner, cfg Config, opts ...Option) *Service {
	cfg.applyDefaults()
	s := &Service{
		gateway: gateway,
		certs:   certs,
		users:   users,
		tx:      tx,
		cfg:     cfg,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) recordActivity(ctx context.Context, action string, outcome audit.Outcome, reason string) {
	if s.activity == nil {
		return
	}
	s.activity.LogActivity(ctx, audit.CategoryPeruriSync, action,
		"outcome", string(outcome),
		"reason", reason,
	)
}

func (s *Service) observe(action, outcome string) {
	if s.metrics != nil {
		s.metrics.IncKYCOutcome(action, outcome)
	}
}

// notify is best-effort: the workflow outcome is already committed.
func (s *Service) notify(ctx context.Context, kind notification.Kind, identity identityRef) {
	if s.notifier == nil {
		return
	}
	job := notification.Job{
		Kind:      kind,
		UserID:    identity.UserID,
		Email:     identity.Email,
		RequestID: requestcontext.RequestID(ctx),
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := s.notifier.Enqueue(ctx, job); err != nil {
		s.logger.WarnContext(ctx, "failed to enqueue notification",
			"error", err,
			"kind", string(kind),
			"user_id", identity.UserID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

type identityRef struct {
	UserID id.UserID
	Email  string
}
