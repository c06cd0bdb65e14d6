// Package notifytest provides a notify.Sink that records events for tests.
package notifytest

import (
	"context"
	"sync"

	"github.com/mmynk/ajo/internal/notify"
)

var _ notify.Sink = (*Recorder)(nil)

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

// Emit implements notify.Sink.
func (r *Recorder) Emit(_ context.Context, e notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Event(nil), r.events...)
}

// Kinds returns the kinds of recorded events in order.
func (r *Recorder) Kinds() []notify.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]notify.Kind, len(r.events))
	for i, e := range r.events {
		kinds[i] = e.Kind
	}
	return kinds
}
