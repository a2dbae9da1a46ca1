package publisher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "esign/pkg/domain"
	"esign/pkg/platform/audit"
	"esign/pkg/platform/audit/store/memory"
	"esign/pkg/platform/sentinel"
)

func newEvent(userID id.UserID, action string) audit.Event {
	return audit.Event{
		Category: audit.CategoryPeruriSync,
		UserID:   userID,
		Action:   action,
		Outcome:  audit.OutcomeSuccess,
	}
}

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	userID := id.UserID(uuid.New())
	require.NoError(t, pub.Emit(context.Background(), newEvent(userID, audit.ActionCertificateCheck)))

	events := store.ListByUser(userID)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionCertificateCheck, events[0].Action)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	userID := id.UserID(uuid.New())
	for range 10 {
		require.NoError(t, pub.Emit(context.Background(), newEvent(userID, audit.ActionKycVerify)))
	}

	pub.Close()

	assert.Len(t, store.ListByUser(userID), 10, "all events should be drained on close")
}

func TestPublisher_BufferFull_DoesNotBlock(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	userID := id.UserID(uuid.New())
	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = pub.Emit(context.Background(), newEvent(userID, audit.ActionKycRenewal))
			}()
		}
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a full buffer")
	}
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	userID := id.UserID(uuid.New())
	require.NoError(t, pub.Emit(context.Background(), newEvent(userID, audit.ActionRegistration)))

	events := store.ListByUser(userID)
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestPublisher_EmitAfterClose(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(4))
	pub.Close()

	err := pub.Emit(context.Background(), newEvent(id.UserID(uuid.New()), audit.ActionKycVerify))
	assert.ErrorIs(t, err, sentinel.ErrClosed)
}
