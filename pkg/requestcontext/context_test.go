package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	id "esign/pkg/domain"
)

func TestIdentity(t *testing.T) {
	t.Run("zero value without session", func(t *testing.T) {
		s := Identity(context.Background())
		assert.True(t, s.UserID.IsNil())
		assert.Empty(t, s.Email)
	})

	t.Run("round trip", func(t *testing.T) {
		userID := id.UserID(uuid.New())
		ctx := WithIdentity(context.Background(), Session{
			UserID:   userID,
			Email:    "budi@example.co.id",
			PersonID: "P-001",
			Username: "budi",
		})
		assert.Equal(t, userID, UserID(ctx))
		assert.Equal(t, "budi@example.co.id", Identity(ctx).Email)
		assert.Equal(t, "P-001", Identity(ctx).PersonID)
	})
}

func TestNow(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, fixed, Now(WithTime(context.Background(), fixed)))
	assert.WithinDuration(t, time.Now(), Now(context.Background()), time.Second)
}

func TestClientMetadata(t *testing.T) {
	ctx := WithClientMetadata(context.Background(), "10.0.0.7", "Mozilla/5.0")
	ctx = WithRequestID(ctx, "req-1")
	assert.Equal(t, "10.0.0.7", ClientIP(ctx))
	assert.Equal(t, "Mozilla/5.0", UserAgent(ctx))
	assert.Equal(t, "req-1", RequestID(ctx))
}
