package rotation

import (
	"context"

	"github.com/mmynk/ajo/internal/models"
	"github.com/mmynk/ajo/internal/storage"
)

// GetGroup returns the group record.
func (e *Engine) GetGroup(ctx context.Context, groupID uint64) (*models.Group, error) {
	var g *models.Group
	err := e.view(ctx, func(tx storage.Tx) error {
		var err error
		g, err = loadGroup(ctx, tx, groupID)
		return err
	})
	return g, err
}

// ListGroups returns every group ordered by ID.
func (e *Engine) ListGroups(ctx context.Context) ([]*models.Group, error) {
	var groups []*models.Group
	err := e.view(ctx, func(tx storage.Tx) error {
		var err error
		groups, err = tx.ListGroups(ctx)
		return err
	})
	return groups, err
}

// GetGroupMetadata returns nil, nil for an existing group without metadata.
func (e *Engine) GetGroupMetadata(ctx context.Context, groupID uint64) (*models.GroupMetadata, error) {
	var md *models.GroupMetadata
	err := e.view(ctx, func(tx storage.Tx) error {
		if _, err := loadGroup(ctx, tx, groupID); err != nil {
			return err
		}
		var err error
		md, err = tx.GetMetadata(ctx, groupID)
		return err
	})
	return md, err
}

// GetContributionStatus lists every member's paid flag for cycle, in
// rotation order. Any cycle number may be queried.
func (e *Engine) GetContributionStatus(ctx context.Context, groupID uint64, cycle uint32) ([]models.MemberContribution, error) {
	var out []models.MemberContribution
	err := e.view(ctx, func(tx storage.Tx) error {
		g, err := loadGroup(ctx, tx, groupID)
		if err != nil {
			return err
		}
		out = make([]models.MemberContribution, 0, len(g.Members))
		for _, member := range g.Members {
			paid, err := tx.HasContributed(ctx, groupID, cycle, member)
			if err != nil {
				return err
			}
			out = append(out, models.MemberContribution{Member: member, Paid: paid})
		}
		return nil
	})
	return out, err
}

// ListMembers returns members in rotation order.
func (e *Engine) ListMembers(ctx context.Context, groupID uint64) ([]string, error) {
	g, err := e.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return g.Members, nil
}

// IsMember reports whether identity belongs to the group.
func (e *Engine) IsMember(ctx context.Context, groupID uint64, identity string) (bool, error) {
	g, err := e.GetGroup(ctx, groupID)
	if err != nil {
		return false, err
	}
	return g.HasMember(identity), nil
}

// IsComplete reports whether the group has reached its terminal state.
func (e *Engine) IsComplete(ctx context.Context, groupID uint64) (bool, error) {
	g, err := e.GetGroup(ctx, groupID)
	if err != nil {
		return false, err
	}
	return g.IsComplete, nil
}
