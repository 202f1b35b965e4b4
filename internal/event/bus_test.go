package event

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestBusSubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var received Event
	var wg sync.WaitGroup
	wg.Add(1)

	unsub := bus.Subscribe(ServerStarted, func(e Event) {
		received = e
		wg.Done()
	})
	defer unsub()

	bus.Publish(Event{Type: ServerStarted, Data: ServerStartedData{Port: 5555}})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if received.Type != ServerStarted {
			t.Errorf("expected ServerStarted, got %v", received.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBusPublishSync(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var count int32
	bus.Subscribe(ServerStopped, func(e Event) {
		atomic.AddInt32(&count, 1)
	})

	bus.PublishSync(Event{Type: ServerStopped})
	bus.PublishSync(Event{Type: ServerStarted}) // different type, not delivered

	if got := atomic.LoadInt32(&count); got != 1 {
		t.Errorf("expected 1 delivery, got %d", got)
	}
}

func TestBusSubscribeAll(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var count int32
	bus.SubscribeAll(func(e Event) {
		atomic.AddInt32(&count, 1)
	})

	bus.PublishSync(Event{Type: ServerStarted})
	bus.PublishSync(Event{Type: WorkspaceInvalidated})

	if got := atomic.LoadInt32(&count); got != 2 {
		t.Errorf("expected 2 deliveries, got %d", got)
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var count int32
	unsub := bus.Subscribe(ServerStarted, func(e Event) {
		atomic.AddInt32(&count, 1)
	})

	bus.PublishSync(Event{Type: ServerStarted})
	unsub()
	bus.PublishSync(Event{Type: ServerStarted})

	if got := atomic.LoadInt32(&count); got != 1 {
		t.Errorf("expected 1 delivery after unsubscribe, got %d", got)
	}
}

func TestBusMirrorsToPubSub(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	msgs, err := bus.PubSub().Subscribe(ctx, string(ServerStarted))
	if err != nil {
		t.Fatal(err)
	}

	bus.PublishSync(Event{Type: ServerStarted, Data: ServerStartedData{Port: 5555}})

	select {
	case msg := <-msgs:
		msg.Ack()
		var e Event
		if err := json.Unmarshal(msg.Payload, &e); err != nil {
			t.Fatal(err)
		}
		if e.Type != ServerStarted {
			t.Errorf("expected ServerStarted, got %v", e.Type)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for mirrored message")
	}
}

func TestBusClosedDeliversNothing(t *testing.T) {
	bus := NewBus()

	var count int32
	bus.Subscribe(ServerStarted, func(e Event) {
		atomic.AddInt32(&count, 1)
	})

	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}

	bus.PublishSync(Event{Type: ServerStarted})
	if got := atomic.LoadInt32(&count); got != 0 {
		t.Errorf("expected no deliveries on closed bus, got %d", got)
	}

	if unsub := bus.Subscribe(ServerStarted, func(Event) {}); unsub == nil {
		t.Error("Subscribe on closed bus should return a no-op unsubscriber")
	}
}
