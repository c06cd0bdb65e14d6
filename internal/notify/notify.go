// Package notify delivers rotation events to observers outside the engine.
// Delivery is best-effort: sinks never report failure back to the caller.
package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Kind names an event type.
type Kind string

const (
	GroupCreated        Kind = "created"
	MemberJoined        Kind = "joined"
	ContributionMade    Kind = "contrib"
	PayoutExecuted      Kind = "payout"
	GroupCompleted      Kind = "complete"
	GroupCancelled      Kind = "canceled"
	EmergencyWithdrawal Kind = "withdraw"
	MetadataUpdated     Kind = "metadata"
)

// Event is a structured notification about one state change.
// Fields that don't apply to a Kind are left zero.
type Event struct {
	ID      string `json:"id"`
	Kind    Kind   `json:"kind"`
	GroupID uint64 `json:"group_id"`

	// Member is the acting or affected identity: the creator for created
	// and canceled, the recipient for payout.
	Member string `json:"member,omitempty"`
	Cycle  uint32 `json:"cycle,omitempty"`

	// Amount is the contribution, payout or refund amount.
	Amount  int64 `json:"amount,omitempty"`
	Penalty int64 `json:"penalty,omitempty"`

	// MaxMembers is only set on created events.
	MaxMembers uint32 `json:"max_members,omitempty"`

	At uint64 `json:"at"`
}

// New returns an Event of the given kind with a fresh ID.
func New(kind Kind, groupID uint64, at uint64) Event {
	return Event{
		ID:      uuid.New().String(),
		Kind:    kind,
		GroupID: groupID,
		At:      at,
	}
}

// Sink receives events.
type Sink interface {
	Emit(ctx context.Context, e Event)
}

// Discard drops every event.
type Discard struct{}

// Emit implements Sink.
func (Discard) Emit(context.Context, Event) {}

// Multi fans each event out to every sink in order.
type Multi []Sink

// Emit implements Sink.
func (m Multi) Emit(ctx context.Context, e Event) {
	for _, s := range m {
		s.Emit(ctx, e)
	}
}

// LogSink writes events as structured log records.
type LogSink struct {
	Logger *slog.Logger
}

// NewLogSink returns a LogSink writing to logger, or slog.Default if nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{Logger: logger}
}

// Emit implements Sink.
func (s *LogSink) Emit(ctx context.Context, e Event) {
	attrs := []any{
		"event_id", e.ID,
		"kind", e.Kind,
		"group_id", e.GroupID,
	}
	if e.Member != "" {
		attrs = append(attrs, "member", e.Member)
	}
	if e.Cycle != 0 {
		attrs = append(attrs, "cycle", e.Cycle)
	}
	if e.Amount != 0 {
		attrs = append(attrs, "amount", e.Amount)
	}
	if e.Penalty != 0 {
		attrs = append(attrs, "penalty", e.Penalty)
	}
	s.Logger.InfoContext(ctx, "Group event", attrs...)
}
