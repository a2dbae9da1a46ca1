//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"esign/internal/user/models"
	"esign/internal/user/store"
	id "esign/pkg/domain"
	"esign/pkg/platform/sentinel"
	"esign/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "users"))
}

func (s *PostgresStoreSuite) TestMarkKycVerifiedKeepsFirstVerification() {
	ctx := context.Background()
	user := models.User{
		ID:       id.UserID(uuid.New()),
		Email:    "budi@example.com",
		PersonID: "P-1",
		Username: "budi",
	}
	first := time.Now().UTC().Truncate(time.Microsecond)

	s.Require().NoError(s.store.MarkKycVerified(ctx, user, first))

	user.Username = "budi.s"
	s.Require().NoError(s.store.MarkKycVerified(ctx, user, first.Add(time.Hour)))

	got, err := s.store.FindByID(ctx, user.ID)
	s.Require().NoError(err)
	s.True(got.KycVerified)
	s.Equal("budi.s", got.Username)
	s.Require().NotNil(got.KycVerifiedAt)
	s.WithinDuration(first, *got.KycVerifiedAt, 0)
}

func (s *PostgresStoreSuite) TestFindByIDMissing() {
	_, err := s.store.FindByID(context.Background(), id.UserID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}
