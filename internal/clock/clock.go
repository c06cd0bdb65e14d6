// Package clock provides the time source used by the rotation engine.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time in Unix seconds.
type Clock interface {
	Now() uint64
}

// System reads wall-clock time.
type System struct{}

// Now implements Clock.
func (System) Now() uint64 {
	return uint64(time.Now().Unix())
}

// Manual is a settable clock for tests and offline tooling.
type Manual struct {
	mu  sync.Mutex
	now uint64
}

// NewManual returns a Manual clock starting at now.
func NewManual(now uint64) *Manual {
	return &Manual{now: now}
}

// Now implements Clock.
func (m *Manual) Now() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to now. Moving backwards is ignored so the clock
// stays monotonic.
func (m *Manual) Set(now uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if now > m.now {
		m.now = now
	}
}

// Advance moves the clock forward by d seconds.
func (m *Manual) Advance(d uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now += d
}
