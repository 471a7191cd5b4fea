package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"notevault/auth-service/internal/telemetry/domain"
)

type captureEmitter struct {
	mu     sync.Mutex
	events []*domain.Event
	err    error
	done   chan struct{}
}

func newCaptureEmitter(err error) *captureEmitter {
	return &captureEmitter{err: err, done: make(chan struct{}, 8)}
}

func (c *captureEmitter) Emit(ctx context.Context, event *domain.Event) error {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
	c.done <- struct{}{}
	return c.err
}

func TestEmitAsync_DeliversEvent(t *testing.T) {
	em := newCaptureEmitter(nil)
	event := &domain.Event{EventType: domain.EventOTPSent, Phone: "+15551234567", Provider: "mock"}

	EmitAsync(em, context.Background(), event)

	select {
	case <-em.done:
	case <-time.After(2 * time.Second):
		t.Fatal("emit never ran")
	}
	em.mu.Lock()
	defer em.mu.Unlock()
	if len(em.events) != 1 || em.events[0] != event {
		t.Errorf("events = %v, want the emitted event", em.events)
	}
}

func TestEmitAsync_NilEmitterOrEvent(t *testing.T) {
	// Must not panic or spawn goroutines.
	EmitAsync(nil, context.Background(), &domain.Event{EventType: domain.EventOTPSent})
	em := newCaptureEmitter(nil)
	EmitAsync(em, context.Background(), nil)
	select {
	case <-em.done:
		t.Fatal("nil event should not be emitted")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEmitAsync_EmitErrorDoesNotPropagate(t *testing.T) {
	em := newCaptureEmitter(errors.New("collector down"))
	EmitAsync(em, context.Background(), &domain.Event{EventType: domain.EventSessionCreated})
	select {
	case <-em.done:
	case <-time.After(2 * time.Second):
		t.Fatal("emit never ran")
	}
}

func TestEmitAsync_SurvivesCanceledRequestContext(t *testing.T) {
	em := newCaptureEmitter(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	EmitAsync(em, ctx, &domain.Event{EventType: domain.EventSessionRevoked})
	select {
	case <-em.done:
	case <-time.After(2 * time.Second):
		t.Fatal("emit should run despite canceled request context")
	}
}
