package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHub_SessionClosedAfterLastConnection(t *testing.T) {
	hub := NewHub(zap.NewNop())
	closed := make(chan string, 2)
	hub.OnSessionClosed(func(sessionID string) { closed <- sessionID })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	first := NewClient(hub, nil, "s1")
	second := NewClient(hub, nil, "s1")
	require.True(t, hub.Register(first))
	require.True(t, hub.Register(second))
	assert.Eventually(t, func() bool { return hub.Connected("s1") }, time.Second, 5*time.Millisecond)

	hub.Unregister(first)
	select {
	case sid := <-closed:
		t.Fatalf("session %s reported closed while a connection remains", sid)
	case <-time.After(50 * time.Millisecond):
	}
	assert.True(t, hub.Connected("s1"))

	hub.Unregister(second)
	select {
	case sid := <-closed:
		assert.Equal(t, "s1", sid)
	case <-time.After(time.Second):
		t.Fatal("session close was not reported")
	}
	assert.False(t, hub.Connected("s1"))

	_, open := <-second.Send
	assert.False(t, open)
}

func TestHub_StoppedHubDoesNotBlock(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	done := make(chan bool, 1)
	go func() {
		client := NewClient(hub, nil, "s1")
		ok := hub.Register(client)
		hub.Unregister(client)
		done <- ok
	}()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("registration blocked on a stopped hub")
	}
}
