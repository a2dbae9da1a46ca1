//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"esign/internal/certificate/models"
	"esign/internal/certificate/store"
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
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "certificates"))
}

func newCertID() id.CertificateID { return id.CertificateID(uuid.New()) }

func (s *PostgresStoreSuite) TestUpsertKeepsOneRowPerUser() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())
	now := time.Now().UTC().Truncate(time.Microsecond)

	first, err := s.store.Upsert(ctx, newCertID(), models.UpsertParams{
		UserID:    userID,
		Status:    models.StatusValid,
		ExpiresAt: now.Add(40 * 24 * time.Hour),
		CheckedAt: now,
	}, now)
	s.Require().NoError(err)

	second, err := s.store.Upsert(ctx, newCertID(), models.UpsertParams{
		UserID:    userID,
		Status:    models.StatusExpired,
		ExpiresAt: now.Add(-24 * time.Hour),
		CheckedAt: now.Add(time.Minute),
	}, now.Add(time.Minute))
	s.Require().NoError(err)

	s.Equal(first.ID, second.ID, "existing row is updated in place")
	s.Equal(models.StatusExpired, second.Status)

	var count int
	s.Require().NoError(s.postgres.QueryRow(ctx,
		`SELECT COUNT(*) FROM certificates WHERE user_id = $1`, uuid.UUID(userID)).Scan(&count))
	s.Equal(1, count)
}

func (s *PostgresStoreSuite) TestUpsertNeverMovesLastCheckedBackwards() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())
	now := time.Now().UTC().Truncate(time.Microsecond)

	_, err := s.store.Upsert(ctx, newCertID(), models.UpsertParams{
		UserID: userID, Status: models.StatusValid, ExpiresAt: now.Add(time.Hour), CheckedAt: now,
	}, now)
	s.Require().NoError(err)

	got, err := s.store.Upsert(ctx, newCertID(), models.UpsertParams{
		UserID: userID, Status: models.StatusValid, ExpiresAt: now.Add(time.Hour), CheckedAt: now.Add(-time.Hour),
	}, now)
	s.Require().NoError(err)
	s.WithinDuration(now, got.LastCheckedAt, 0)
}

func (s *PostgresStoreSuite) TestUpsertWithoutIssuedAtKeepsStoredIssueDate() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())
	now := time.Now().UTC().Truncate(time.Microsecond)

	_, err := s.store.Upsert(ctx, newCertID(), models.UpsertParams{
		UserID: userID, Status: models.StatusValid, ExpiresAt: now.Add(time.Hour), IssuedAt: &now, CheckedAt: now,
	}, now)
	s.Require().NoError(err)

	got, err := s.store.Upsert(ctx, newCertID(), models.UpsertParams{
		UserID: userID, Status: models.StatusAlmostExpired, ExpiresAt: now.Add(time.Hour), CheckedAt: now,
	}, now)
	s.Require().NoError(err)
	s.Require().NotNil(got.IssuedAt)
	s.WithinDuration(now, *got.IssuedAt, 0)
}

func (s *PostgresStoreSuite) TestEnsureUnknownDoesNotOverwrite() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())
	now := time.Now().UTC()

	_, err := s.store.Upsert(ctx, newCertID(), models.UpsertParams{
		UserID: userID, Status: models.StatusValid, ExpiresAt: now.Add(time.Hour), CheckedAt: now,
	}, now)
	s.Require().NoError(err)

	got, err := s.store.EnsureUnknown(ctx, newCertID(), userID, now)
	s.Require().NoError(err)
	s.Equal(models.StatusValid, got.Status)

	other := id.UserID(uuid.New())
	created, err := s.store.EnsureUnknown(ctx, newCertID(), other, now)
	s.Require().NoError(err)
	s.Equal(models.StatusUnknown, created.Status)
	s.Nil(created.ExpiresAt)
}

func (s *PostgresStoreSuite) TestFindByUserIDMissing() {
	_, err := s.store.FindByUserID(context.Background(), id.UserID(uuid.New()))
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestListByStatusOrdersBySoonestExpiry() {
	ctx := context.Background()
	now := time.Now().UTC()
	for i, st := range []models.Status{models.StatusAlmostExpired, models.StatusValid, models.StatusAlmostExpired} {
		_, err := s.store.Upsert(ctx, newCertID(), models.UpsertParams{
			UserID:    id.UserID(uuid.New()),
			Status:    st,
			ExpiresAt: now.Add(time.Duration(10-i) * 24 * time.Hour),
			CheckedAt: now,
		}, now)
		s.Require().NoError(err)
	}

	records, err := s.store.ListByStatus(ctx, []models.Status{models.StatusAlmostExpired}, 10)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.True(records[0].ExpiresAt.Before(*records[1].ExpiresAt))
}

func (s *PostgresStoreSuite) TestConcurrentFirstChecksCreateOneRow() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())
	now := time.Now().UTC()

	const goroutines = 20
	var wg sync.WaitGroup
	errs := make(chan error, goroutines)
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Upsert(ctx, newCertID(), models.UpsertParams{
				UserID: userID, Status: models.StatusValid, ExpiresAt: now.Add(time.Hour), CheckedAt: now,
			}, now)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.NoError(err)
	}

	var count int
	s.Require().NoError(s.postgres.QueryRow(ctx,
		`SELECT COUNT(*) FROM certificates WHERE user_id = $1`, uuid.UUID(userID)).Scan(&count))
	s.Equal(1, count)
}
