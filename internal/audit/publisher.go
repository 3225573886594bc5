package audit

import (
	"context"

	"btoflow/pkg/requestcontext"
)

// Publisher hands events to the worker through a bounded channel. Emission is
// best-effort and never blocks a lifecycle transition: when the buffer is
// full the event is dropped rather than stalling the caller.
type Publisher struct {
	outbox chan<- Event
}

func NewPublisher(outbox chan<- Event) *Publisher {
	return &Publisher{outbox: outbox}
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	select {
	case p.outbox <- event:
	default:
	}
	return nil
}
