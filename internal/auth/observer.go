package auth

import (
	"context"
	"time"
)

type EventKind string

const (
	EventState     EventKind = "state"
	EventRequest   EventKind = "request"
	EventAuthError EventKind = "error"
	EventStale     EventKind = "stale"
)

// Event describes one step of the handshake. It never carries prompted input.
type Event struct {
	At     time.Time
	Epoch  uint64
	State  string
	Kind   EventKind
	Detail string
}

// Observer is told about every Event. Implementations must not block for long: they run
// on the dispatch goroutine.
type Observer interface {
	Observe(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) Observe(ctx context.Context, ev Event) { f(ctx, ev) }

// Observers fans an Event out in order.
type Observers []Observer

func (o Observers) Observe(ctx context.Context, ev Event) {
	for _, obs := range o {
		if obs != nil {
			obs.Observe(ctx, ev)
		}
	}
}
