package event

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestBus_Subscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var received Event
	var wg sync.WaitGroup
	wg.Add(1)

	unsub := bus.Subscribe(SessionCreated, func(e Event) {
		received = e
		wg.Done()
	})
	defer unsub()

	bus.Publish(Event{Type: SessionCreated, Data: SessionCreatedData{SessionID: "user-1"}})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if received.Type != SessionCreated {
			t.Errorf("expected SessionCreated, got %v", received.Type)
		}
		data, ok := received.Data.(SessionCreatedData)
		if !ok || data.SessionID != "user-1" {
			t.Errorf("unexpected event data: %#v", received.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_SubscribeAll(t *testing.T) {
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

	bus.Publish(Event{Type: SessionCreated, Data: nil})
	bus.Publish(Event{Type: TurnStarted, Data: nil})
	bus.Publish(Event{Type: SessionSwept, Data: nil})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if atomic.LoadInt32(&count) != 3 {
			t.Errorf("expected 3 events, got %d", count)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for events")
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var count int32
	unsub := bus.Subscribe(SessionRemoved, func(e Event) {
		atomic.AddInt32(&count, 1)
	})

	bus.PublishSync(Event{Type: SessionRemoved, Data: nil})
	if atomic.LoadInt32(&count) != 1 {
		t.Errorf("expected 1 event before unsub, got %d", count)
	}

	unsub()

	bus.PublishSync(Event{Type: SessionRemoved, Data: nil})
	if atomic.LoadInt32(&count) != 1 {
		t.Errorf("expected still 1 event after unsub, got %d", count)
	}
}

func TestBus_PublishSyncIgnoresOtherTypes(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var count int32
	unsub := bus.Subscribe(TurnCompleted, func(e Event) {
		atomic.AddInt32(&count, 1)
	})
	defer unsub()

	bus.PublishSync(Event{Type: TurnFailed, Data: nil})
	if atomic.LoadInt32(&count) != 0 {
		t.Errorf("expected no events for other types, got %d", count)
	}
}

func TestBus_Close(t *testing.T) {
	bus := NewBus()

	var count int32
	bus.SubscribeAll(func(e Event) {
		atomic.AddInt32(&count, 1)
	})

	if err := bus.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	bus.PublishSync(Event{Type: SessionCreated, Data: nil})
	if atomic.LoadInt32(&count) != 0 {
		t.Errorf("expected no events after close, got %d", count)
	}

	// Closing twice is a no-op.
	if err := bus.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}

	// Subscribing after close returns a no-op unsubscribe.
	unsub := bus.Subscribe(SessionCreated, func(e Event) {})
	unsub()
}
