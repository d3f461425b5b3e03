package audit

import (
	"context"
	"errors"
	"time"
)

// ErrBufferFull is returned by Emit when the worker inbox cannot take more events.
var ErrBufferFull = errors.New("audit buffer full")

// Store is the sink audit events end up in.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Publisher hands events to a background Worker without blocking the caller.
type Publisher struct {
	inbox chan Event
}

// NewPublisher creates a publisher with a bounded inbox. Pair it with
// NewWorker(store, p.Inbox()) and run the worker.
func NewPublisher(buffer int) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{inbox: make(chan Event, buffer)}
}

// Inbox exposes the receive side for the worker.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}

// Emit enqueues an event, stamping it when the caller did not.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.inbox <- event:
		return nil
	default:
		return ErrBufferFull
	}
}
