package events

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestOnAndEmit(t *testing.T) {
	bus := NewBus(nil)
	var got []Event
	bus.On(EventToolStart, func(e Event) {
		got = append(got, e)
	})

	bus.Emit(New(EventToolStart, "sess-1", map[string]any{"tool": "fetch"}))
	bus.Emit(New(EventToolEnd, "sess-1", nil))

	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].Payload["tool"] != "fetch" {
		t.Errorf("unexpected payload: %v", got[0].Payload)
	}
	if got[0].SessionID != "sess-1" {
		t.Errorf("unexpected session id: %s", got[0].SessionID)
	}
}

func TestCatchAllReceivesEverything(t *testing.T) {
	bus := NewBus(nil)
	var count int
	bus.On(EventAny, func(Event) { count++ })

	bus.Emit(New(EventConnected, "", nil))
	bus.Emit(New(EventToolStart, "", nil))
	bus.Emit(New(EventError, "", nil))

	if count != 3 {
		t.Fatalf("expected catch-all to see 3 events, got %d", count)
	}
}

func TestOnceFiresExactlyOnce(t *testing.T) {
	bus := NewBus(nil)
	var count int
	bus.Once(EventMessage, func(Event) { count++ })

	for i := 0; i < 5; i++ {
		bus.Emit(New(EventMessage, "", nil))
	}

	if count != 1 {
		t.Fatalf("expected once handler to fire exactly once, got %d", count)
	}
}

func TestOff(t *testing.T) {
	bus := NewBus(nil)
	var count int
	sub := bus.On(EventThinking, func(Event) { count++ })

	bus.Emit(New(EventThinking, "", nil))
	bus.Off(sub)
	bus.Off(sub) // idempotent
	bus.Emit(New(EventThinking, "", nil))

	if count != 1 {
		t.Fatalf("expected 1 delivery after unsubscribe, got %d", count)
	}
}

func TestPanickingHandlerDoesNotBreakFanOut(t *testing.T) {
	bus := NewBus(nil)
	var delivered int
	bus.On(EventResponse, func(Event) { panic("bad subscriber") })
	bus.On(EventResponse, func(Event) { delivered++ })
	bus.On(EventResponse, func(Event) { delivered++ })

	bus.Emit(New(EventResponse, "", nil))

	if delivered != 2 {
		t.Fatalf("expected remaining handlers to run, got %d deliveries", delivered)
	}
}

func TestConcurrentEmitAndSubscribe(t *testing.T) {
	bus := NewBus(nil)
	var count atomic.Int64

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bus.Emit(New(EventToolEnd, "", nil))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sub := bus.On(EventToolEnd, func(Event) { count.Add(1) })
				bus.Off(sub)
			}
		}()
	}
	wg.Wait()
}
