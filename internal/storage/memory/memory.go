// Package memory provides an in-memory implementation of storage.Store.
// It is used by tests and by short-lived tooling that doesn't need a file.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/mmynk/ajo/internal/models"
	"github.com/mmynk/ajo/internal/storage"
)

var (
	_ storage.Store     = (*Store)(nil)
	_ storage.UserStore = (*Store)(nil)
)

type contributionKey struct {
	groupID uint64
	cycle   uint32
	member  string
}

type memberKey struct {
	groupID uint64
	member  string
}

// state is the full ledger. Transactions stage writes in their own state and
// merge it into the base on commit.
type state struct {
	counter       uint64
	groups        map[uint64]*models.Group
	contributions map[contributionKey]bool
	payouts       map[memberKey]bool
	withdrawals   map[memberKey]bool
	metadata      map[uint64]*models.GroupMetadata
}

func newState() *state {
	return &state{
		groups:        make(map[uint64]*models.Group),
		contributions: make(map[contributionKey]bool),
		payouts:       make(map[memberKey]bool),
		withdrawals:   make(map[memberKey]bool),
		metadata:      make(map[uint64]*models.GroupMetadata),
	}
}

// Store is a mutex-serialized in-memory ledger.
type Store struct {
	mu    sync.RWMutex
	base  *state
	users map[string]*models.User
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		base:  newState(),
		users: make(map[string]*models.User),
	}
}

// Update runs fn with exclusive access. Writes become visible only if fn
// returns nil.
func (s *Store) Update(ctx context.Context, fn func(tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &tx{base: s.base, pending: newState(), writable: true}
	tx.pending.counter = s.base.counter
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// View runs fn with shared access.
func (s *Store) View(ctx context.Context, fn func(tx storage.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&tx{base: s.base, pending: newState()})
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// CreateUser stores a user. Emails are unique, case-insensitively.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("failed to create user: email %s already exists", user.Email)
		}
	}
	u := *user
	s.users[user.ID] = &u
	return nil
}

// GetUserByEmail looks a user up by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

// GetUserByID looks a user up by ID.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

type tx struct {
	base     *state
	pending  *state
	writable bool
}

func (t *tx) checkWritable() error {
	if !t.writable {
		return fmt.Errorf("write in read-only transaction")
	}
	return nil
}

func (t *tx) commit() {
	t.base.counter = t.pending.counter
	maps.Copy(t.base.groups, t.pending.groups)
	maps.Copy(t.base.contributions, t.pending.contributions)
	maps.Copy(t.base.payouts, t.pending.payouts)
	maps.Copy(t.base.withdrawals, t.pending.withdrawals)
	maps.Copy(t.base.metadata, t.pending.metadata)
}

func (t *tx) NextGroupID(ctx context.Context) (uint64, error) {
	if err := t.checkWritable(); err != nil {
		return 0, err
	}
	t.pending.counter++
	return t.pending.counter, nil
}

func (t *tx) GetGroup(ctx context.Context, groupID uint64) (*models.Group, error) {
	if g, ok := t.pending.groups[groupID]; ok {
		return g.Clone(), nil
	}
	if g, ok := t.base.groups[groupID]; ok {
		return g.Clone(), nil
	}
	return nil, fmt.Errorf("group %d: %w", groupID, storage.ErrNotFound)
}

func (t *tx) PutGroup(ctx context.Context, group *models.Group) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	t.pending.groups[group.ID] = group.Clone()
	return nil
}

func (t *tx) ListGroups(ctx context.Context) ([]*models.Group, error) {
	merged := maps.Clone(t.base.groups)
	maps.Copy(merged, t.pending.groups)

	ids := slices.Sorted(maps.Keys(merged))
	groups := make([]*models.Group, 0, len(ids))
	for _, id := range ids {
		groups = append(groups, merged[id].Clone())
	}
	return groups, nil
}

func (t *tx) HasContributed(ctx context.Context, groupID uint64, cycle uint32, member string) (bool, error) {
	k := contributionKey{groupID, cycle, member}
	return t.pending.contributions[k] || t.base.contributions[k], nil
}

func (t *tx) SetContributed(ctx context.Context, groupID uint64, cycle uint32, member string) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	t.pending.contributions[contributionKey{groupID, cycle, member}] = true
	return nil
}

func (t *tx) HasReceivedPayout(ctx context.Context, groupID uint64, member string) (bool, error) {
	k := memberKey{groupID, member}
	return t.pending.payouts[k] || t.base.payouts[k], nil
}

func (t *tx) MarkPayoutReceived(ctx context.Context, groupID uint64, member string) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	t.pending.payouts[memberKey{groupID, member}] = true
	return nil
}

func (t *tx) HasWithdrawn(ctx context.Context, groupID uint64, member string) (bool, error) {
	k := memberKey{groupID, member}
	return t.pending.withdrawals[k] || t.base.withdrawals[k], nil
}

func (t *tx) MarkWithdrawn(ctx context.Context, groupID uint64, member string) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	t.pending.withdrawals[memberKey{groupID, member}] = true
	return nil
}

func (t *tx) GetMetadata(ctx context.Context, groupID uint64) (*models.GroupMetadata, error) {
	m, ok := t.pending.metadata[groupID]
	if !ok {
		m, ok = t.base.metadata[groupID]
	}
	if !ok {
		return nil, nil
	}
	return cloneMetadata(m), nil
}

func (t *tx) PutMetadata(ctx context.Context, groupID uint64, metadata *models.GroupMetadata) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	t.pending.metadata[groupID] = cloneMetadata(metadata)
	return nil
}

func cloneMetadata(m *models.GroupMetadata) *models.GroupMetadata {
	c := &models.GroupMetadata{}
	if m.Name != nil {
		c.Name = new(string)
		*c.Name = *m.Name
	}
	if m.Description != nil {
		c.Description = new(string)
		*c.Description = *m.Description
	}
	if m.Rules != nil {
		c.Rules = new(string)
		*c.Rules = *m.Rules
	}
	return c
}
