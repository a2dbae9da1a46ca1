package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"esign/internal/certificate/models"
	id "esign/pkg/domain"
	"esign/pkg/platform/sentinel"
)

// InMemoryStore mirrors the PostgreSQL upsert semantics for unit tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.UserID]*models.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.UserID]*models.Record)}
}

func (s *InMemoryStore) Upsert(_ context.Context, certID id.CertificateID, params models.UpsertParams, now time.Time) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt := params.ExpiresAt
	existing, ok := s.records[params.UserID]
	if !ok {
		record := &models.Record{
			ID:            certID,
			UserID:        params.UserID,
			Status:        params.Status,
			IssuedAt:      params.IssuedAt,
			ExpiresAt:     &expiresAt,
			LastCheckedAt: params.CheckedAt,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		s.records[params.UserID] = record
		return clone(record), nil
	}

	existing.Status = params.Status
	existing.ExpiresAt = &expiresAt
	if params.IssuedAt != nil {
		existing.IssuedAt = params.IssuedAt
	}
	if params.CheckedAt.After(existing.LastCheckedAt) {
		existing.LastCheckedAt = params.CheckedAt
	}
	existing.UpdatedAt = now
	return clone(existing), nil
}

func (s *InMemoryStore) EnsureUnknown(_ context.Context, certID id.CertificateID, userID id.UserID, now time.Time) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[userID]; ok {
		return clone(existing), nil
	}
	record := &models.Record{
		ID:            certID,
		UserID:        userID,
		Status:        models.StatusUnknown,
		LastCheckedAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.records[userID] = record
	return clone(record), nil
}

func (s *InMemoryStore) FindByUserID(_ context.Context, userID id.UserID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(record), nil
}

func (s *InMemoryStore) ListByStatus(_ context.Context, statuses []models.Status, limit int) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Record
	for _, record := range s.records {
		if slices.Contains(statuses, record.Status) {
			out = append(out, clone(record))
		}
	}
	slices.SortFunc(out, func(a, b *models.Record) int {
		switch {
		case a.ExpiresAt == nil && b.ExpiresAt == nil:
			return 0
		case a.ExpiresAt == nil:
			return 1
		case b.ExpiresAt == nil:
			return -1
		}
		return a.ExpiresAt.Compare(*b.ExpiresAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count returns the number of stored records.
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func clone(r *models.Record) *models.Record {
	c := *r
	return &c
}
