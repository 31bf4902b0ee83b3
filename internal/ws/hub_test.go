package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"folio-analytics/pkg/logger"
)

func TestHubRegisterAndBroadcast(t *testing.T) {
	hub := NewHub(logger.NewNop())
	hub.Start()
	defer hub.Stop()

	client := NewClient(hub, nil, logger.NewNop())
	hub.Register(client)

	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	hub.Broadcast(MessageTypeLiveStats, map[string]int{"n": 1})

	select {
	case msg := <-client.send:
		assert.Equal(t, MessageTypeLiveStats, msg.Type)
	case <-time.After(time.Second):
		t.Fatal("client never received broadcast")
	}
}

func TestHubPrunesSlowClient(t *testing.T) {
	hub := NewHub(logger.NewNop())
	hub.Start()
	defer hub.Stop()

	client := NewClient(hub, nil, logger.NewNop())
	hub.Register(client)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	// Nobody drains the send channel, so enough broadcasts fill the
	// buffer and the client gets dropped instead of stalling the hub.
	for i := 0; i < cap(client.send)+8; i++ {
		hub.Broadcast(MessageTypeLiveStats, i)
	}

	waitFor(t, func() bool { return hub.ClientCount() == 0 })
}

func TestUnregisterAfterStopDoesNotBlock(t *testing.T) {
	hub := NewHub(logger.NewNop())
	hub.Start()

	client := NewClient(hub, nil, logger.NewNop())
	hub.Register(client)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	hub.Stop()

	// A read pump winding down after shutdown must not hang on the hub.
	done := make(chan struct{})
	go func() {
		hub.Unregister(client)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Unregister blocked after hub stop")
	}
}

func TestHubStopIdempotent(t *testing.T) {
	hub := NewHub(logger.NewNop())
	hub.Start()
	hub.Start()

	hub.Stop()
	hub.Stop()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}
