// Package rotation implements the Ajo group lifecycle and payout rotation.
//
// Every mutating entry point runs inside a single storage.Store Update, so
// it either commits all of its writes or none of them. Events are emitted
// only after a successful commit.
package rotation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mmynk/ajo/internal/clock"
	"github.com/mmynk/ajo/internal/models"
	"github.com/mmynk/ajo/internal/notify"
	"github.com/mmynk/ajo/internal/storage"
)

const (
	// MinMembers is the smallest group that can rotate.
	MinMembers = 2

	// DefaultMaxMembersLimit caps max_members at creation.
	DefaultMaxMembersLimit = 100

	// DefaultPenaltyPercent is taken from emergency withdrawals.
	DefaultPenaltyPercent = 10
)

// Treasury moves funds on behalf of the engine. Calls happen inside the
// transaction; an error aborts the whole entry point.
type Treasury interface {
	// Collect moves one contribution from member into the group pool.
	Collect(ctx context.Context, groupID uint64, member string, amount int64) error

	// Payout moves the pooled cycle sum to the recipient.
	Payout(ctx context.Context, groupID uint64, recipient string, amount int64) error

	// Refund returns funds to a withdrawing member. Not called for zero refunds.
	Refund(ctx context.Context, groupID uint64, member string, amount int64) error
}

// NoopTreasury accepts every transfer without moving anything.
type NoopTreasury struct{}

func (NoopTreasury) Collect(context.Context, uint64, string, int64) error { return nil }
func (NoopTreasury) Payout(context.Context, uint64, string, int64) error  { return nil }
func (NoopTreasury) Refund(context.Context, uint64, string, int64) error  { return nil }

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	Clock    clock.Clock
	Sink     notify.Sink
	Treasury Treasury
	Logger   *slog.Logger

	// EnforceCycleWindow rejects contributions made after the current
	// cycle's window has closed.
	EnforceCycleWindow bool

	MaxMembersLimit uint32
	PenaltyPercent  int64
}

// Engine is the rotation state machine over a ledger store.
type Engine struct {
	store    storage.Store
	clock    clock.Clock
	sink     notify.Sink
	treasury Treasury
	logger   *slog.Logger

	enforceWindow   bool
	maxMembersLimit uint32
	penaltyPercent  int64
}

// New creates an Engine backed by store.
func New(store storage.Store, opts Options) *Engine {
	e := &Engine{
		store:           store,
		clock:           opts.Clock,
		sink:            opts.Sink,
		treasury:        opts.Treasury,
		logger:          opts.Logger,
		enforceWindow:   opts.EnforceCycleWindow,
		maxMembersLimit: opts.MaxMembersLimit,
		penaltyPercent:  opts.PenaltyPercent,
	}
	if e.clock == nil {
		e.clock = clock.System{}
	}
	if e.sink == nil {
		e.sink = notify.Discard{}
	}
	if e.treasury == nil {
		e.treasury = NoopTreasury{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.maxMembersLimit == 0 {
		e.maxMembersLimit = DefaultMaxMembersLimit
	}
	if e.penaltyPercent <= 0 || e.penaltyPercent > 100 {
		e.penaltyPercent = DefaultPenaltyPercent
	}
	return e
}

// call carries per-entry-point state: one clock reading and the events to
// emit once the transaction commits.
type call struct {
	now    uint64
	events []notify.Event
}

func (c *call) event(kind notify.Kind, groupID uint64) *notify.Event {
	c.events = append(c.events, notify.New(kind, groupID, c.now))
	return &c.events[len(c.events)-1]
}

// update runs fn in a write transaction and publishes its events on commit.
func (e *Engine) update(ctx context.Context, fn func(tx storage.Tx, c *call) error) error {
	c := &call{now: e.clock.Now()}
	err := e.store.Update(ctx, func(tx storage.Tx) error {
		c.events = c.events[:0]
		return fn(tx, c)
	})
	if err != nil {
		return err
	}
	for _, ev := range c.events {
		e.sink.Emit(ctx, ev)
	}
	return nil
}

func (e *Engine) view(ctx context.Context, fn func(tx storage.Tx) error) error {
	return e.store.View(ctx, fn)
}

// loadGroup maps a missing record to ErrGroupNotFound.
func loadGroup(ctx context.Context, tx storage.Tx, groupID uint64) (*models.Group, error) {
	g, err := tx.GetGroup(ctx, groupID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, groupErr(ErrGroupNotFound, groupID)
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

// loadOpenGroup additionally rejects groups in their terminal state.
func loadOpenGroup(ctx context.Context, tx storage.Tx, groupID uint64) (*models.Group, error) {
	g, err := loadGroup(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}
	if g.IsComplete {
		return nil, groupErr(ErrGroupComplete, groupID)
	}
	return g, nil
}
