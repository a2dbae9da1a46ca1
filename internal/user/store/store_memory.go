package store

import (
	"context"
	"sync"
	"time"

	"esign/internal/user/models"
	id "esign/pkg/domain"
	"esign/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu    sync.RWMutex
	users map[id.UserID]*models.User
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{users: make(map[id.UserID]*models.User)}
}

func (s *InMemoryStore) MarkKycVerified(_ context.Context, user models.User, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if ok && existing.KycVerifiedAt != nil {
		user.KycVerifiedAt = existing.KycVerifiedAt
	} else {
		user.KycVerifiedAt = &at
	}
	user.KycVerified = true
	user.UpdatedAt = at
	s.users[user.ID] = &user
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *user
	return &c, nil
}
