package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"studio_portal_backend/platform/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinged struct {
	BaseEvent
}

func (pinged) EventName() string { return "test.pinged" }

func TestPublishSyncJoinsHandlerErrors(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	var calls int32

	bus.Subscribe(pinged{}.EventName(), HandlerFunc(func(context.Context, Event) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("first")
	}))
	bus.Subscribe(pinged{}.EventName(), HandlerFunc(func(context.Context, Event) error {
		atomic.AddInt32(&calls, 1)
		panic("boom")
	}))

	err := bus.PublishSync(context.Background(), pinged{BaseEvent: NewBaseEvent()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first")
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestPublishSurvivesCancelledContext(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	var seenCancelled atomic.Bool

	bus.Subscribe(pinged{}.EventName(), HandlerFunc(func(ctx context.Context, _ Event) error {
		seenCancelled.Store(ctx.Err() != nil)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, pinged{BaseEvent: NewBaseEvent()})
	bus.Wait()

	assert.False(t, seenCancelled.Load())
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	require.NoError(t, bus.PublishSync(context.Background(), pinged{}))
}
