package messaging

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
)

var at = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func TestInMemoryEventBus_SyncOrder(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultInMemoryEventBusConfig())
	defer bus.Close()

	var got []string
	require.NoError(t, bus.Subscribe(shared.EventStreakUpdated, func(e shared.Event) error {
		got = append(got, "typed:"+string(e.EventType()))
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		got = append(got, "all:"+string(e.EventType()))
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewStreakUpdatedEvent("parent-1", 2, 2, at)))
	require.NoError(t, bus.Publish(shared.NewPointsAwardedEvent("parent-1", 10, 10, "manual", at)))

	assert.Equal(t, []string{
		"typed:" + string(shared.EventStreakUpdated),
		"all:" + string(shared.EventStreakUpdated),
		"all:" + string(shared.EventPointsAwarded),
	}, got)

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(2), snap.TotalPublished)
	assert.Equal(t, int64(3), snap.TotalHandlerExecs)
}

func TestInMemoryEventBus_HandlerFailuresAreIsolated(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultInMemoryEventBusConfig())
	defer bus.Close()

	calls := 0
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { return errors.New("boom") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { panic("kaboom") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { calls++; return nil }))

	assert.NoError(t, bus.Publish(shared.NewLevelUpEvent("parent-1", 1, 2, "Attentive Parent", at)))
	assert.Equal(t, 1, calls)

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(2), snap.HandlerFailures)
}

func TestInMemoryEventBus_Async(t *testing.T) {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.AsyncMode = true
	cfg.WorkerPoolSize = 2
	bus := NewInMemoryEventBus(cfg)

	var n int64
	var wg sync.WaitGroup
	wg.Add(10)
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		atomic.AddInt64(&n, 1)
		wg.Done()
		return nil
	}))
	for i := 0; i < 10; i++ {
		require.NoError(t, bus.Publish(shared.NewPointsAwardedEvent("parent-1", 1, i+1, "manual", at)))
	}
	wg.Wait()
	require.NoError(t, bus.Close())
	assert.Equal(t, int64(10), atomic.LoadInt64(&n))
}

func TestInMemoryEventBus_CloseDrainsQueue(t *testing.T) {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.AsyncMode = true
	cfg.WorkerPoolSize = 1
	cfg.QueueSize = 2
	bus := NewInMemoryEventBus(cfg)

	release := make(chan struct{})
	var handled int64
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		<-release
		atomic.AddInt64(&handled, 1)
		return nil
	}))

	// One delivery held by the worker, two queued, the fourth blocks.
	for i := 0; i < 3; i++ {
		require.NoError(t, bus.Publish(shared.NewPointsAwardedEvent("parent-1", 1, i+1, "manual", at)))
	}
	published := make(chan struct{})
	go func() {
		_ = bus.Publish(shared.NewPointsAwardedEvent("parent-1", 1, 4, "manual", at))
		close(published)
	}()
	select {
	case <-published:
		t.Fatal("publish returned while the queue was full")
	case <-time.After(20 * time.Millisecond):
	}

	closed := make(chan struct{})
	go func() {
		_ = bus.Close()
		close(closed)
	}()
	close(release)
	<-published
	<-closed

	assert.Equal(t, int64(4), atomic.LoadInt64(&handled), "no queued delivery is dropped")
	assert.ErrorIs(t, bus.Publish(shared.NewStreakUpdatedEvent("p", 1, 1, at)), ErrEventBusClosed)
}

func TestInMemoryEventBus_Closed(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultInMemoryEventBusConfig())
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(shared.NewStreakUpdatedEvent("p", 1, 1, at)), ErrEventBusClosed)
	assert.ErrorIs(t, bus.SubscribeAll(func(shared.Event) error { return nil }), ErrEventBusClosed)
	assert.Error(t, bus.Publish(nil))
}

func TestRedisEventBus_HandleRemoteMessage(t *testing.T) {
	local := NewInMemoryEventBus(DefaultInMemoryEventBusConfig())
	defer local.Close()
	bus := &RedisEventBus{localBus: local, instanceID: "me", log: local.log}

	var received []shared.Event
	require.NoError(t, local.Subscribe(shared.EventAchievementUnlocked, func(e shared.Event) error {
		received = append(received, e)
		return nil
	}))

	event := shared.NewAchievementUnlockedEvent("parent-1", "streak_3", "consistency", "Getting Started", 50, at)
	encode := func(instance string) string {
		data, err := json.Marshal(eventEnvelope{
			InstanceID:  instance,
			EventType:   event.EventType(),
			AggregateID: event.AggregateID(),
			OccurredAt:  event.OccurredAt(),
			Payload:     event.Payload(),
		})
		require.NoError(t, err)
		return string(data)
	}

	bus.handleRedisMessage(encode("me"))
	assert.Empty(t, received, "own events are already delivered locally")

	bus.handleRedisMessage(encode("other"))
	bus.handleRedisMessage("{not json")
	require.Len(t, received, 1)

	remote, ok := received[0].(RemoteEvent)
	require.True(t, ok)
	assert.Equal(t, "parent-1", remote.AggregateID())
	assert.True(t, at.Equal(remote.OccurredAt()))
	assert.Equal(t, "streak_3", remote.Payload()["achievement_id"])
}
