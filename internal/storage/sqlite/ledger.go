package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/ajo/internal/models"
	"github.com/mmynk/ajo/internal/storage"
)

const groupCounter = "group_id"

// ledgerTx implements storage.Tx on top of a single SQL transaction.
type ledgerTx struct {
	tx       *sql.Tx
	writable bool
}

var _ storage.Tx = (*ledgerTx)(nil)

func (t *ledgerTx) checkWritable() error {
	if !t.writable {
		return errors.New("write in read-only transaction")
	}
	return nil
}

// NextGroupID increments the persistent group counter.
func (t *ledgerTx) NextGroupID(ctx context.Context) (uint64, error) {
	if err := t.checkWritable(); err != nil {
		return 0, err
	}

	var next uint64
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO counters (name, value) VALUES (?, 1)
		 ON CONFLICT(name) DO UPDATE SET value = value + 1
		 RETURNING value`,
		groupCounter,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate group id: %w", err)
	}
	return next, nil
}

const groupColumns = `id, creator, contribution_amount, cycle_duration, max_members,
	current_cycle, payout_index, created_at, cycle_start_time, is_complete`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner) (*models.Group, error) {
	g := &models.Group{}
	err := row.Scan(&g.ID, &g.Creator, &g.ContributionAmount, &g.CycleDuration, &g.MaxMembers,
		&g.CurrentCycle, &g.PayoutIndex, &g.CreatedAt, &g.CycleStartTime, &g.IsComplete)
	return g, err
}

// GetGroup retrieves a group by ID, including its members in rotation order.
func (t *ledgerTx) GetGroup(ctx context.Context, groupID uint64) (*models.Group, error) {
	g, err := scanGroup(t.tx.QueryRowContext(ctx,
		"SELECT "+groupColumns+" FROM groups WHERE id = ?", groupID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group %d: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	if g.Members, err = t.members(ctx, groupID); err != nil {
		return nil, err
	}
	return g, nil
}

func (t *ledgerTx) members(ctx context.Context, groupID uint64) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx,
		"SELECT member FROM group_members WHERE group_id = ? ORDER BY position",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var member string
		if err := rows.Scan(&member); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}

// PutGroup upserts the group row and appends any members not yet stored.
// Existing member positions are never rewritten.
func (t *ledgerTx) PutGroup(ctx context.Context, g *models.Group) error {
	if err := t.checkWritable(); err != nil {
		return err
	}

	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO groups (`+groupColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     current_cycle = excluded.current_cycle,
		     payout_index = excluded.payout_index,
		     cycle_start_time = excluded.cycle_start_time,
		     is_complete = excluded.is_complete`,
		g.ID, g.Creator, g.ContributionAmount, g.CycleDuration, g.MaxMembers,
		g.CurrentCycle, g.PayoutIndex, g.CreatedAt, g.CycleStartTime, g.IsComplete,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert group: %w", err)
	}

	for i, member := range g.Members {
		_, err = t.tx.ExecContext(ctx,
			"INSERT INTO group_members (group_id, position, member) VALUES (?, ?, ?) ON CONFLICT DO NOTHING",
			g.ID, i, member,
		)
		if err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
	}
	return nil
}

// ListGroups returns all groups ordered by ID.
func (t *ledgerTx) ListGroups(ctx context.Context) ([]*models.Group, error) {
	rows, err := t.tx.QueryContext(ctx, "SELECT "+groupColumns+" FROM groups ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	var groups []*models.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	// Members are loaded after the group cursor is closed.
	for _, g := range groups {
		if g.Members, err = t.members(ctx, g.ID); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func (t *ledgerTx) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := t.tx.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *ledgerTx) HasContributed(ctx context.Context, groupID uint64, cycle uint32, member string) (bool, error) {
	ok, err := t.exists(ctx,
		"SELECT 1 FROM contributions WHERE group_id = ? AND cycle = ? AND member = ?",
		groupID, cycle, member)
	if err != nil {
		return false, fmt.Errorf("failed to check contribution: %w", err)
	}
	return ok, nil
}

func (t *ledgerTx) SetContributed(ctx context.Context, groupID uint64, cycle uint32, member string) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO contributions (group_id, cycle, member) VALUES (?, ?, ?) ON CONFLICT DO NOTHING",
		groupID, cycle, member)
	if err != nil {
		return fmt.Errorf("failed to record contribution: %w", err)
	}
	return nil
}

func (t *ledgerTx) HasReceivedPayout(ctx context.Context, groupID uint64, member string) (bool, error) {
	ok, err := t.exists(ctx,
		"SELECT 1 FROM payouts WHERE group_id = ? AND member = ?", groupID, member)
	if err != nil {
		return false, fmt.Errorf("failed to check payout: %w", err)
	}
	return ok, nil
}

func (t *ledgerTx) MarkPayoutReceived(ctx context.Context, groupID uint64, member string) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO payouts (group_id, member) VALUES (?, ?) ON CONFLICT DO NOTHING",
		groupID, member)
	if err != nil {
		return fmt.Errorf("failed to record payout: %w", err)
	}
	return nil
}

func (t *ledgerTx) HasWithdrawn(ctx context.Context, groupID uint64, member string) (bool, error) {
	ok, err := t.exists(ctx,
		"SELECT 1 FROM withdrawals WHERE group_id = ? AND member = ?", groupID, member)
	if err != nil {
		return false, fmt.Errorf("failed to check withdrawal: %w", err)
	}
	return ok, nil
}

func (t *ledgerTx) MarkWithdrawn(ctx context.Context, groupID uint64, member string) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO withdrawals (group_id, member) VALUES (?, ?) ON CONFLICT DO NOTHING",
		groupID, member)
	if err != nil {
		return fmt.Errorf("failed to record withdrawal: %w", err)
	}
	return nil
}

// GetMetadata returns nil, nil if the group has no metadata row.
func (t *ledgerTx) GetMetadata(ctx context.Context, groupID uint64) (*models.GroupMetadata, error) {
	var name, description, rules sql.NullString
	err := t.tx.QueryRowContext(ctx,
		"SELECT name, description, rules FROM group_metadata WHERE group_id = ?",
		groupID,
	).Scan(&name, &description, &rules)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata: %w", err)
	}

	return &models.GroupMetadata{
		Name:        fromNullString(name),
		Description: fromNullString(description),
		Rules:       fromNullString(rules),
	}, nil
}

// PutMetadata replaces the metadata row. Unset fields are stored as NULL.
func (t *ledgerTx) PutMetadata(ctx context.Context, groupID uint64, m *models.GroupMetadata) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO group_metadata (group_id, name, description, rules) VALUES (?, ?, ?, ?)
		 ON CONFLICT(group_id) DO UPDATE SET
		     name = excluded.name,
		     description = excluded.description,
		     rules = excluded.rules`,
		groupID, toNullString(m.Name), toNullString(m.Description), toNullString(m.Rules),
	)
	if err != nil {
		return fmt.Errorf("failed to store metadata: %w", err)
	}
	return nil
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
