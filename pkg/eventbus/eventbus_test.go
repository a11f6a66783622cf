package eventbus

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBus_PublishInOrder(t *testing.T) {
	bus := New(zap.NewNop())
	var got []string

	bus.Subscribe(AuthErrorEvent, func(_ context.Context, e Event) error {
		got = append(got, "first:"+e.(AuthError).SessionID)
		return nil
	})
	bus.Subscribe(AuthErrorEvent, func(_ context.Context, e Event) error {
		got = append(got, "second:"+e.(AuthError).SessionID)
		return errors.New("ignored")
	})
	bus.Subscribe(PermissionsUpdatedEvent, func(context.Context, Event) error {
		got = append(got, "wrong")
		return nil
	})

	bus.Publish(context.Background(), AuthError{SessionID: "s1"})

	assert.Equal(t, []string{"first:s1", "second:s1"}, got)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New(zap.NewNop())
	var calls int

	unsubscribe := bus.Subscribe(StorageChangedEvent, func(context.Context, Event) error {
		calls++
		return nil
	})
	bus.Publish(context.Background(), StorageChanged{Key: "k"})
	unsubscribe()
	unsubscribe()
	bus.Publish(context.Background(), StorageChanged{Key: "k"})

	assert.Equal(t, 1, calls)
	assert.Empty(t, bus.listeners)
}

func TestBus_UnsubscribeDuringPublish(t *testing.T) {
	bus := New(zap.NewNop())
	var calls int

	var unsubscribe func()
	unsubscribe = bus.Subscribe(StorageChangedEvent, func(context.Context, Event) error {
		calls++
		unsubscribe()
		return nil
	})
	bus.Subscribe(StorageChangedEvent, func(context.Context, Event) error {
		calls++
		return nil
	})

	bus.Publish(context.Background(), StorageChanged{Key: "k"})
	bus.Publish(context.Background(), StorageChanged{Key: "k"})

	assert.Equal(t, 3, calls)
}

func TestBus_PublishAsync(t *testing.T) {
	bus := New(zap.NewNop())
	var calls atomic.Int32

	for i := 0; i < 3; i++ {
		bus.Subscribe(PermissionsUpdatedEvent, func(context.Context, Event) error {
			calls.Add(1)
			return nil
		})
	}

	bus.PublishAsync(PermissionsUpdated{SessionID: "s"})

	require.Eventually(t, func() bool { return calls.Load() == 3 }, time.Second, 5*time.Millisecond)
}
