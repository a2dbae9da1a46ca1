package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esign/internal/platform/kafka/producer"
	"esign/pkg/platform/audit/outbox"
)

type memoryStore struct {
	mu      sync.Mutex
	entries []*outbox.Entry
	purged  time.Time
}

func (s *memoryStore) FetchUnprocessed(_ context.Context, limit int) ([]*outbox.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*outbox.Entry
	for _, e := range s.entries {
		if e.IsPending() && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memoryStore) MarkProcessed(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id {
			e.ProcessedAt = &at
			return nil
		}
	}
	return errors.New("not found")
}

func (s *memoryStore) CountPending(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, e := range s.entries {
		if e.IsPending() {
			n++
		}
	}
	return n, nil
}

func (s *memoryStore) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purged = before
	return 0, nil
}

func (s *memoryStore) pending() int64 {
	n, _ := s.CountPending(context.Background())
	return n
}

type stubPublisher struct {
	mu   sync.Mutex
	err  error
	sent []*producer.Message
}

func (p *stubPublisher) Produce(_ context.Context, msg *producer.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, msg)
	return nil
}

func TestWorker_PollPublishesAndMarks(t *testing.T) {
	store := &memoryStore{entries: []*outbox.Entry{
		outbox.NewEntry("user", "u-1", "kyc_verify", []byte(`{"a":1}`)),
		outbox.NewEntry("user", "u-2", "certificate_check", []byte(`{"a":2}`)),
	}}
	pub := &stubPublisher{}
	w := New(store, pub, WithTopic("activity"), WithBatchSize(10))

	n := w.poll(context.Background())

	assert.Equal(t, 2, n)
	assert.Zero(t, store.pending())
	require.Len(t, pub.sent, 2)
	assert.Equal(t, "activity", pub.sent[0].Topic)
	assert.Equal(t, []byte("u-1"), pub.sent[0].Key)
	assert.Equal(t, "kyc_verify", pub.sent[0].Headers["event_type"])
}

func TestWorker_PublishFailureLeavesEntryPending(t *testing.T) {
	store := &memoryStore{entries: []*outbox.Entry{
		outbox.NewEntry("user", "u-1", "kyc_verify", []byte(`{}`)),
	}}
	w := New(store, &stubPublisher{err: errors.New("broker down")})

	assert.Zero(t, w.poll(context.Background()))
	assert.Equal(t, int64(1), store.pending())
}

func TestWorker_StopDrainsRemainingEntries(t *testing.T) {
	store := &memoryStore{}
	for range 5 {
		store.entries = append(store.entries, outbox.NewEntry("activity", uuid.NewString(), "registration", []byte(`{}`)))
	}
	pub := &stubPublisher{}
	w := New(store, pub, WithBatchSize(2), WithPollInterval(time.Hour))
	w.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Stop(ctx))

	assert.Zero(t, store.pending())
	assert.Len(t, pub.sent, 5)
}

func TestWorker_StopReturnsWhenBrokerIsDown(t *testing.T) {
	store := &memoryStore{entries: []*outbox.Entry{
		outbox.NewEntry("user", "u-1", "kyc_verify", []byte(`{}`)),
	}}
	w := New(store, &stubPublisher{err: errors.New("broker down")}, WithPollInterval(time.Hour))
	w.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Stop(ctx))
	assert.Equal(t, int64(1), store.pending())
}

func TestWorker_MaintainPurgesWithRetention(t *testing.T) {
	store := &memoryStore{}
	w := New(store, &stubPublisher{}, WithRetention(24*time.Hour))

	require.NoError(t, w.Maintain(context.Background()))
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), store.purged, time.Minute)
}
