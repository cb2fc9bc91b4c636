package messaging

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cradlecare/cradlecare-hub/internal/domain/shared"
)

func testEvent() shared.Event {
	return shared.NewGrowthRecordedEvent("infant-1", "rec-1", "as-1",
		"Moderate Underweight", "Underweight", "Moderate", "fallback", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
}

func TestInMemoryEventBus_Sync(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: false})
	defer bus.Close()

	var typed, all int
	require.NoError(t, bus.Subscribe(shared.EventGrowthRecorded, func(shared.Event) error { typed++; return nil }))
	require.NoError(t, bus.Subscribe(shared.EventReferralRaised, func(shared.Event) error { t.Fatal("wrong type"); return nil }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { all++; return errors.New("boom") }))

	require.NoError(t, bus.Publish(testEvent()))

	assert.Equal(t, 1, typed)
	assert.Equal(t, 1, all)

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.Published[shared.EventGrowthRecorded])
	assert.Equal(t, int64(1), snap.Succeeded)
	assert.Equal(t, int64(1), snap.Failed)
}

func TestInMemoryEventBus_AsyncWaitsOnClose(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: true, WorkerPoolSize: 2})

	var calls atomic.Int32
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		time.Sleep(10 * time.Millisecond)
		calls.Add(1)
		return nil
	}))

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(testEvent()))
	}
	require.NoError(t, bus.Close())

	assert.LessOrEqual(t, calls.Load(), int32(5))
	assert.ErrorIs(t, bus.Publish(testEvent()), ErrEventBusClosed)
	assert.ErrorIs(t, bus.Subscribe(shared.EventGrowthRecorded, func(shared.Event) error { return nil }), ErrEventBusClosed)
}

func TestInMemoryEventBus_NoHandlerRunsAfterClose(t *testing.T) {
	for round := 0; round < 50; round++ {
		bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: true, WorkerPoolSize: 4})

		var closed, late atomic.Bool
		require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
			if closed.Load() {
				late.Store(true)
			}
			return nil
		}))

		var publishers sync.WaitGroup
		for i := 0; i < 8; i++ {
			publishers.Add(1)
			go func() {
				defer publishers.Done()
				for j := 0; j < 20; j++ {
					if err := bus.Publish(testEvent()); err != nil {
						assert.ErrorIs(t, err, ErrEventBusClosed)
						return
					}
				}
			}()
		}

		require.NoError(t, bus.Close())
		closed.Store(true)
		publishers.Wait()

		// Handlers started by a Publish that raced Close must have
		// finished before Close returned.
		time.Sleep(time.Millisecond)
		assert.False(t, late.Load(), "round %d: handler ran after Close returned", round)
	}
}

func TestInMemoryEventBus_RecoversPanics(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: false})
	defer bus.Close()

	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { panic("handler bug") }))
	assert.NotPanics(t, func() { _ = bus.Publish(testEvent()) })
	assert.Equal(t, int64(1), bus.Metrics().Snapshot().Failed)
}

func TestInMemoryEventBus_Validation(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultInMemoryEventBusConfig())
	defer bus.Close()

	assert.ErrorIs(t, bus.Subscribe(shared.EventGrowthRecorded, nil), ErrNilHandler)
	assert.ErrorIs(t, bus.Publish(nil), ErrNilEvent)
}

type recordingPublisher struct {
	mu       sync.Mutex
	channels []string
	messages []any
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, message any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
	p.messages = append(p.messages, message)
	return p.err
}

func TestRedisRelay_Handle(t *testing.T) {
	pub := &recordingPublisher{}
	relay := NewRedisRelay(pub, "pubsub:growth-events", "growthd-1")

	require.NoError(t, relay.Handle(testEvent()))

	require.Len(t, pub.messages, 1)
	assert.Equal(t, "pubsub:growth-events", pub.channels[0])

	env, ok := pub.messages[0].(shared.EventEnvelope)
	require.True(t, ok)
	assert.Equal(t, shared.EventGrowthRecorded, env.Type)
	assert.Equal(t, "infant-1", env.AggregateID)
	assert.Equal(t, "growthd-1", env.Source)
	assert.JSONEq(t, `{"record_id":"rec-1","assessment_id":"as-1","risk_status":"Moderate Underweight",
		"primary_factor":"Underweight","severity":"Moderate","generated_by":"fallback"}`, string(env.Payload))

	pub.err = errors.New("redis down")
	assert.Error(t, relay.Handle(testEvent()))
}

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope(`{"type":"assessment.referral_raised","aggregate_id":"i1","payload":{"age_months":4}}`)
	require.NoError(t, err)
	assert.Equal(t, shared.EventReferralRaised, env.Type)

	_, err = DecodeEnvelope("nope")
	assert.Error(t, err)
}
