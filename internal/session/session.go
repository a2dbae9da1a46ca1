// Package session verifies the HS256 session tokens issued by the portal's
// login service and exposes the identity they carry.
package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "esign/pkg/domain"
	dErrors "esign/pkg/domain-errors"
	"esign/pkg/requestcontext"
)

// Claims is the session token payload. Subject holds the user id.
type Claims struct {
	Email    string `json:"email"`
	PersonID string `json:"person_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Service signs and validates session tokens.
type Service struct {
	signingKey []byte
	issuer     string
	leeway     time.Duration
	now        func() time.Time
}

type Option func(*Service)

func WithIssuer(issuer string) Option {
	return func(s *Service) { s.issuer = issuer }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(signingKey string, opts ...Option) *Service {
	s := &Service{
		signingKey: []byte(signingKey),
		leeway:     30 * time.Second,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue signs a session token. Production sessions come from the login
// service; this is used by local tooling and tests.
func (s *Service) Issue(session requestcontext.Session, ttl time.Duration) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email:    session.Email,
		PersonID: session.PersonID,
		Username: session.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// ValidateSession implements auth.SessionValidator.
func (s *Service) ValidateSession(tokenString string) (requestcontext.Session, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return requestcontext.Session{}, dErrors.New(dErrors.CodeUnauthorized, "session has expired")
		}
		return requestcontext.Session{}, dErrors.New(dErrors.CodeUnauthorized, "invalid session")
	}

	userID, err := id.ParseUserID(claims.Subject)
	if err != nil {
		return requestcontext.Session{}, dErrors.New(dErrors.CodeUnauthorized, "invalid session subject")
	}
	return requestcontext.Session{
		UserID:   userID,
		Email:    claims.Email,
		PersonID: claims.PersonID,
		Username: claims.Username,
	}, nil
}
