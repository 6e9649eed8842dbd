package publisher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "probata/pkg/domain"
	"probata/pkg/platform/audit"
	"probata/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	applicationID := id.ApplicationID(uuid.New())
	err := pub.Emit(context.Background(), audit.Event{
		ApplicationID: applicationID,
		Action:        "create_application",
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), applicationID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "create_application", events[0].Action)
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))
	defer pub.Close()

	applicationID := id.ApplicationID(uuid.New())
	err := pub.Emit(context.Background(), audit.Event{
		ApplicationID: applicationID,
		Action:        "pay_filing_fee",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		events, err := store.ListByApplication(context.Background(), applicationID)
		return err == nil && len(events) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	applicationID := id.ApplicationID(uuid.New())
	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			ApplicationID: applicationID,
			Action:        "sign_document",
		})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := store.ListByApplication(context.Background(), applicationID)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_BufferFull_ReportsDrop(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	applicationID := id.ApplicationID(uuid.New())

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pub.Emit(context.Background(), audit.Event{
				ApplicationID: applicationID,
				Action:        "sign_document",
			})
			if err != nil {
				assert.ErrorIs(t, err, ErrBufferFull)
			}
		}()
	}
	wg.Wait()

	// Publisher must stay usable after drops.
	require.NoError(t, NewPublisher(store).Emit(context.Background(), audit.Event{
		ApplicationID: applicationID,
		Action:        "withdraw",
	}))
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	applicationID := id.ApplicationID(uuid.New())

	before := time.Now()
	err := pub.Emit(context.Background(), audit.Event{
		ApplicationID: applicationID,
		Action:        "create_application",
	})
	require.NoError(t, err)
	after := time.Now()

	events, err := pub.List(context.Background(), applicationID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.Before(before.Add(-time.Second)))
	assert.False(t, events[0].Timestamp.After(after.Add(time.Second)))
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	applicationID := id.ApplicationID(uuid.New())
	customTime := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

	err := pub.Emit(context.Background(), audit.Event{
		ApplicationID: applicationID,
		Action:        "file_with_court",
		Timestamp:     customTime,
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), applicationID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, customTime, events[0].Timestamp)
}

func TestPublisher_MultipleEvents(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	applicationID := id.ApplicationID(uuid.New())
	actions := []string{"create_application", "attach_documents", "approve_documents"}

	for _, action := range actions {
		err := pub.Emit(context.Background(), audit.Event{
			ApplicationID: applicationID,
			Action:        action,
		})
		require.NoError(t, err)
	}

	events, err := pub.List(context.Background(), applicationID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, action := range actions {
		assert.Equal(t, action, events[i].Action)
	}
}

func TestPublisher_SeparatesApplications(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	first := id.ApplicationID(uuid.New())
	second := id.ApplicationID(uuid.New())

	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		ApplicationID: first,
		Action:        "create_application",
	}))
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		ApplicationID: second,
		Action:        "withdraw",
	}))

	firstTrail, err := pub.List(context.Background(), first)
	require.NoError(t, err)
	require.Len(t, firstTrail, 1)
	assert.Equal(t, "create_application", firstTrail[0].Action)

	secondTrail, err := pub.List(context.Background(), second)
	require.NoError(t, err)
	require.Len(t, secondTrail, 1)
	assert.Equal(t, "withdraw", secondTrail[0].Action)
}
