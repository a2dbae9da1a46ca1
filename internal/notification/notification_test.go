package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "esign/pkg/domain"
)

type stubPusher struct {
	key    string
	values []any
	err    error
}

func (s *stubPusher) LPush(ctx context.Context, key string, values ...any) *redis.IntCmd {
	s.key = key
	s.values = append(s.values, values...)
	cmd := redis.NewIntCmd(ctx)
	if s.err != nil {
		cmd.SetErr(s.err)
	} else {
		cmd.SetVal(int64(len(s.values)))
	}
	return cmd
}

func TestRedisQueue_Enqueue(t *testing.T) {
	stub := &stubPusher{}
	q := &RedisQueue{client: stub, key: DefaultQueueKey}
	userID := id.UserID(uuid.New())

	err := q.Enqueue(context.Background(), Job{
		Kind:      KindKycVerified,
		UserID:    userID,
		Email:     "budi@example.com",
		CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, "esign:notifications", stub.key)
	require.Len(t, stub.values, 1)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(stub.values[0].([]byte), &decoded))
	assert.Equal(t, "kyc_verified", decoded["kind"])
	assert.Equal(t, userID.String(), decoded["user_id"])
	assert.Equal(t, "budi@example.com", decoded["email"])
}

func TestRedisQueue_EnqueueError(t *testing.T) {
	q := &RedisQueue{client: &stubPusher{err: errors.New("READONLY")}, key: "k"}

	err := q.Enqueue(context.Background(), Job{Kind: KindRegistered})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "READONLY")
}

func TestLogQueue_NeverFails(t *testing.T) {
	assert.NoError(t, NewLogQueue(nil).Enqueue(context.Background(), Job{Kind: KindRegistered}))
}
