// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/ajo/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the ledger storage operations for rotating groups.
// This abstraction allows swapping storage backends (SQLite, in-memory, etc.)
// without changing the engine.
type Store interface {
	// Update runs fn inside a read-write transaction. If fn returns an
	// error nothing it wrote is kept. Updates are serialized.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// View runs fn inside a read-only transaction.
	View(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any resources held by the store.
	Close() error
}

// Tx is the keyed view of the ledger available inside a transaction.
// Write methods must not be called from View.
type Tx interface {
	// NextGroupID increments and returns the global group counter.
	// The first call on a fresh store returns 1.
	NextGroupID(ctx context.Context) (uint64, error)

	// GetGroup returns ErrNotFound if the group doesn't exist.
	GetGroup(ctx context.Context, groupID uint64) (*models.Group, error)

	// PutGroup inserts or replaces the group record, including its members.
	PutGroup(ctx context.Context, group *models.Group) error

	// ListGroups returns all groups ordered by ID.
	ListGroups(ctx context.Context) ([]*models.Group, error)

	HasContributed(ctx context.Context, groupID uint64, cycle uint32, member string) (bool, error)
	SetContributed(ctx context.Context, groupID uint64, cycle uint32, member string) error

	HasReceivedPayout(ctx context.Context, groupID uint64, member string) (bool, error)
	MarkPayoutReceived(ctx context.Context, groupID uint64, member string) error

	HasWithdrawn(ctx context.Context, groupID uint64, member string) (bool, error)
	MarkWithdrawn(ctx context.Context, groupID uint64, member string) error

	// GetMetadata returns nil, nil when no metadata has been set.
	GetMetadata(ctx context.Context, groupID uint64) (*models.GroupMetadata, error)

	// PutMetadata replaces the whole metadata record.
	PutMetadata(ctx context.Context, groupID uint64, metadata *models.GroupMetadata) error
}

// UserStore persists registered accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail returns nil, nil if no user has that email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID returns nil, nil if no user has that ID.
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}
