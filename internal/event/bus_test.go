package event

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitOrFail(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event delivery")
	}
}

func TestBus_DeliversTypedPayload(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var received Event
	var wg sync.WaitGroup
	wg.Add(1)
	unsub := bus.Subscribe(QuestionAsked, func(e Event) {
		received = e
		wg.Done()
	})
	defer unsub()

	bus.Publish(Event{
		Type: QuestionAsked,
		Data: QuestionAskedData{ID: "q1", SessionID: "s1", Tool: "apply-patch"},
	})
	waitOrFail(t, &wg)

	require.Equal(t, QuestionAsked, received.Type)
	data, ok := received.Data.(QuestionAskedData)
	require.True(t, ok, "Data must survive dispatch with its Go type intact")
	assert.Equal(t, "q1", data.ID)
	assert.Equal(t, "s1", data.SessionID)
}

func TestBus_SubscriberOnlySeesItsType(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var count int32
	unsub := bus.Subscribe(FileChanged, func(e Event) {
		atomic.AddInt32(&count, 1)
	})
	defer unsub()

	bus.PublishSync(Event{Type: SessionSaved})
	bus.PublishSync(Event{Type: FileChanged, Data: FileChangedData{Path: "a.go"}})
	bus.PublishSync(Event{Type: QuestionResolved})

	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
}

func TestBus_SubscribeAllSeesEveryType(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var count int32
	var wg sync.WaitGroup
	wg.Add(3)
	unsub := bus.SubscribeAll(func(e Event) {
		atomic.AddInt32(&count, 1)
		wg.Done()
	})
	defer unsub()

	bus.Publish(Event{Type: SessionSaved})
	bus.Publish(Event{Type: MessageCreated})
	bus.Publish(Event{Type: FileChanged})
	waitOrFail(t, &wg)

	assert.Equal(t, int32(3), atomic.LoadInt32(&count))
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var count int32
	unsub := bus.Subscribe(SessionDeleted, func(e Event) {
		atomic.AddInt32(&count, 1)
	})

	bus.PublishSync(Event{Type: SessionDeleted, Data: SessionDeletedData{ID: "s1"}})
	require.Equal(t, int32(1), atomic.LoadInt32(&count))

	unsub()
	bus.PublishSync(Event{Type: SessionDeleted, Data: SessionDeletedData{ID: "s2"}})
	assert.Equal(t, int32(1), atomic.LoadInt32(&count), "no delivery after unsubscribe")
}

func TestBus_PublishSyncRunsInline(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	order := make([]string, 0, 2)
	unsub := bus.Subscribe(QuestionResolved, func(e Event) {
		order = append(order, "subscriber")
	})
	defer unsub()

	bus.PublishSync(Event{Type: QuestionResolved, Data: QuestionResolvedData{ID: "q1", Status: "answered"}})
	order = append(order, "after")

	// No synchronization needed: PublishSync returns only after the
	// subscriber ran on this goroutine.
	require.Equal(t, []string{"subscriber", "after"}, order)
}

func TestBus_ClosedBusDropsEverything(t *testing.T) {
	bus := NewBus()

	var count int32
	bus.Subscribe(FileChanged, func(e Event) {
		atomic.AddInt32(&count, 1)
	})
	require.NoError(t, bus.Close())

	bus.PublishSync(Event{Type: FileChanged})
	assert.Zero(t, atomic.LoadInt32(&count))

	// Subscribing after close is a no-op, not a panic.
	unsub := bus.Subscribe(FileChanged, func(e Event) {})
	unsub()
}

func TestGlobalBus_ResetClearsSubscribers(t *testing.T) {
	t.Cleanup(Reset)

	var count int32
	Subscribe(SessionSaved, func(e Event) {
		atomic.AddInt32(&count, 1)
	})
	PublishSync(Event{Type: SessionSaved})
	require.Equal(t, int32(1), atomic.LoadInt32(&count))

	Reset()
	PublishSync(Event{Type: SessionSaved})
	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
}

func TestBus_ConcurrentPublishAndSubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var count int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub := bus.Subscribe(FileChanged, func(e Event) {
				atomic.AddInt32(&count, 1)
			})
			bus.PublishSync(Event{Type: FileChanged})
			unsub()
		}()
	}
	wg.Wait()

	// Each goroutine saw at least its own publish; racing subscribers
	// may see more. The point is no deadlock and no lost registration.
	assert.GreaterOrEqual(t, atomic.LoadInt32(&count), int32(8))
}
