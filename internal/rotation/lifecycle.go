package rotation

import (
	"context"
	"math"
	"unicode/utf8"

	"github.com/mmynk/ajo/internal/models"
	"github.com/mmynk/ajo/internal/notify"
	"github.com/mmynk/ajo/internal/storage"
)

// MaxCycleDuration keeps cycle durations storable as a signed 64-bit column.
const MaxCycleDuration = math.MaxInt64

// validateParams checks creation parameters in a fixed order so the first
// violation reported is deterministic. A full pool, and every refund, is at
// most contributionAmount*maxMembers, so bounding that product keeps all
// later arithmetic inside int64.
func (e *Engine) validateParams(contributionAmount int64, cycleDuration uint64, maxMembers uint32) error {
	switch {
	case contributionAmount == 0:
		return ErrContributionAmountZero
	case contributionAmount < 0:
		return ErrContributionAmountNegative
	case cycleDuration == 0:
		return ErrCycleDurationZero
	case cycleDuration > MaxCycleDuration:
		return ErrCycleDurationTooLarge
	case maxMembers < MinMembers:
		return ErrMaxMembersBelowMinimum
	case maxMembers > e.maxMembersLimit:
		return ErrMaxMembersAboveLimit
	case contributionAmount > math.MaxInt64/int64(maxMembers):
		return ErrContributionAmountTooLarge
	}
	return nil
}

// CreateGroup founds a new group with creator as its first member and
// returns the new group's ID.
func (e *Engine) CreateGroup(ctx context.Context, creator string, contributionAmount int64, cycleDuration uint64, maxMembers uint32) (uint64, error) {
	if creator == "" {
		return 0, ErrUnauthorized
	}
	if err := e.validateParams(contributionAmount, cycleDuration, maxMembers); err != nil {
		return 0, err
	}

	var groupID uint64
	err := e.update(ctx, func(tx storage.Tx, c *call) error {
		id, err := tx.NextGroupID(ctx)
		if err != nil {
			return err
		}

		g := &models.Group{
			ID:                 id,
			Creator:            creator,
			ContributionAmount: contributionAmount,
			CycleDuration:      cycleDuration,
			MaxMembers:         maxMembers,
			Members:            []string{creator},
			CurrentCycle:       1,
			PayoutIndex:        0,
			CreatedAt:          c.now,
			CycleStartTime:     c.now,
		}
		if err := tx.PutGroup(ctx, g); err != nil {
			return err
		}

		ev := c.event(notify.GroupCreated, id)
		ev.Member = creator
		ev.Amount = contributionAmount
		ev.MaxMembers = maxMembers

		groupID = id
		return nil
	})
	if err != nil {
		return 0, err
	}

	e.logger.DebugContext(ctx, "Group created", "group_id", groupID, "creator", creator)
	return groupID, nil
}

// JoinGroup appends member to the rotation.
func (e *Engine) JoinGroup(ctx context.Context, member string, groupID uint64) error {
	if member == "" {
		return ErrUnauthorized
	}

	return e.update(ctx, func(tx storage.Tx, c *call) error {
		g, err := loadOpenGroup(ctx, tx, groupID)
		if err != nil {
			return err
		}
		if g.HasMember(member) {
			return groupErr(ErrAlreadyMember, groupID)
		}
		if g.IsFull() {
			return groupErr(ErrMaxMembersExceeded, groupID)
		}

		g.Members = append(g.Members, member)
		if err := tx.PutGroup(ctx, g); err != nil {
			return err
		}

		c.event(notify.MemberJoined, groupID).Member = member
		return nil
	})
}

// requireCreator is the capability check for creator-only operations.
func requireCreator(g *models.Group, caller string) error {
	if caller == "" || caller != g.Creator {
		return groupErr(ErrUnauthorized, g.ID)
	}
	return nil
}

// CancelGroup ends the group early. Only the creator may cancel, and
// cancellation can't be undone. Refunds are not handled here.
func (e *Engine) CancelGroup(ctx context.Context, caller string, groupID uint64) error {
	return e.update(ctx, func(tx storage.Tx, c *call) error {
		g, err := loadGroup(ctx, tx, groupID)
		if err != nil {
			return err
		}
		if err := requireCreator(g, caller); err != nil {
			return err
		}
		if g.IsComplete {
			return groupErr(ErrGroupComplete, groupID)
		}

		g.IsComplete = true
		if err := tx.PutGroup(ctx, g); err != nil {
			return err
		}

		c.event(notify.GroupCancelled, groupID).Member = caller
		return nil
	})
}

// ValidateMetadata enforces the per-field character limits. Unset and
// empty fields are always valid.
func ValidateMetadata(m *models.GroupMetadata) error {
	if m.Name != nil && utf8.RuneCountInString(*m.Name) > models.MaxNameLength {
		return ErrMetadataNameTooLong
	}
	if m.Description != nil && utf8.RuneCountInString(*m.Description) > models.MaxDescriptionLength {
		return ErrMetadataDescriptionTooLong
	}
	if m.Rules != nil && utf8.RuneCountInString(*m.Rules) > models.MaxRulesLength {
		return ErrMetadataRulesTooLong
	}
	return nil
}

// SetGroupMetadata replaces the group's metadata record as a whole. Fields
// left nil become unset. Only the creator may call it, in any group state.
func (e *Engine) SetGroupMetadata(ctx context.Context, caller string, groupID uint64, metadata models.GroupMetadata) error {
	return e.update(ctx, func(tx storage.Tx, c *call) error {
		g, err := loadGroup(ctx, tx, groupID)
		if err != nil {
			return err
		}
		if err := requireCreator(g, caller); err != nil {
			return err
		}
		if err := ValidateMetadata(&metadata); err != nil {
			return err
		}

		if err := tx.PutMetadata(ctx, groupID, &metadata); err != nil {
			return err
		}

		c.event(notify.MetadataUpdated, groupID).Member = caller
		return nil
	})
}
