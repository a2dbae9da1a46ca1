// Package notification queues user-facing notifications for an out-of-process
// dispatcher. Delivery itself happens elsewhere.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	id "esign/pkg/domain"
)

// DefaultQueueKey is the Redis list the dispatcher consumes with BRPOP.
const DefaultQueueKey = "esign:notifications"

// Kind names the template the dispatcher renders.
type Kind string

const (
	KindKycVerified        Kind = "kyc_verified"
	KindCertificateRenewed Kind = "certificate_renewed"
	KindRegistered         Kind = "registered"
)

// Job is one queued notification.
type Job struct {
	Kind      Kind      `json:"kind"`
	UserID    id.UserID `json:"-"`
	Email     string    `json:"email"`
	RequestID string    `json:"request_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MarshalJSON renders the user id as its string form.
func (j Job) MarshalJSON() ([]byte, error) {
	type alias Job
	return json.Marshal(struct {
		alias
		UserID string `json:"user_id"`
	}{alias: alias(j), UserID: j.UserID.String()})
}

type pusher interface {
	LPush(ctx context.Context, key string, values ...any) *redis.IntCmd
}

// RedisQueue pushes jobs onto a Redis list.
type RedisQueue struct {
	client pusher
	key    string
}

func NewRedisQueue(client redis.UniversalClient, key string) *RedisQueue {
	if key == "" {
		key = DefaultQueueKey
	}
	return &RedisQueue{client: client, key: key}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal notification job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

// LogQueue only logs jobs. Used when Redis is not configured.
type LogQueue struct {
	logger *slog.Logger
}

func NewLogQueue(logger *slog.Logger) *LogQueue {
	return &LogQueue{logger: logger}
}

func (q *LogQueue) Enqueue(ctx context.Context, job Job) error {
	if q.logger != nil {
		q.logger.InfoContext(ctx, "notification not queued, no backend configured",
			"kind", string(job.Kind),
			"user_id", job.UserID.String(),
		)
	}
	return nil
}
