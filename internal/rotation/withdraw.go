package rotation

import (
	"context"
	"errors"

	"github.com/mmynk/ajo/internal/models"
	"github.com/mmynk/ajo/internal/notify"
	"github.com/mmynk/ajo/internal/storage"
)

// checkWithdrawal returns nil if member may withdraw from g at now.
// Withdrawal doesn't look at IsComplete: members of a cancelled group use
// it to recover what they put in.
func checkWithdrawal(ctx context.Context, tx storage.Tx, g *models.Group, member string, now uint64) error {
	if !g.HasMember(member) {
		return groupErr(ErrNotMember, g.ID)
	}

	withdrawn, err := tx.HasWithdrawn(ctx, g.ID, member)
	if err != nil {
		return err
	}
	if withdrawn {
		return groupErr(ErrAlreadyWithdrawn, g.ID)
	}

	received, err := tx.HasReceivedPayout(ctx, g.ID, member)
	if err != nil {
		return err
	}
	if received {
		return groupErr(ErrWithdrawalAfterPayout, g.ID)
	}

	// The group is stalled once the whole cycle window has passed.
	if now < g.CycleStartTime || now-g.CycleStartTime < g.CycleDuration {
		return groupErr(ErrNotEligibleForWithdrawal, g.ID)
	}
	return nil
}

// EligibleForWithdrawal reports whether member could withdraw right now.
// Only a missing group or a storage fault is returned as an error.
func (e *Engine) EligibleForWithdrawal(ctx context.Context, groupID uint64, member string) (bool, error) {
	now := e.clock.Now()
	var eligible bool
	err := e.view(ctx, func(tx storage.Tx) error {
		g, err := loadGroup(ctx, tx, groupID)
		if err != nil {
			return err
		}

		err = checkWithdrawal(ctx, tx, g, member, now)
		if CodeOf(err).Category() == CategoryWithdrawal || errors.Is(err, ErrNotMember) {
			return nil
		}
		if err != nil {
			return err
		}
		eligible = true
		return nil
	})
	return eligible, err
}

// penalty returns total*percent/100 truncated, without overflowing for any
// non-negative total.
func penalty(total, percent int64) int64 {
	return total/100*percent + total%100*percent/100
}

// EmergencyWithdraw lets a member of a stalled group leave with what they
// contributed, minus the penalty. The member stays in the rotation; only
// the withdrawal fact is recorded.
func (e *Engine) EmergencyWithdraw(ctx context.Context, member string, groupID uint64) (*models.Withdrawal, error) {
	var result *models.Withdrawal
	err := e.update(ctx, func(tx storage.Tx, c *call) error {
		g, err := loadGroup(ctx, tx, groupID)
		if err != nil {
			return err
		}
		if err := checkWithdrawal(ctx, tx, g, member, c.now); err != nil {
			return err
		}

		var cycles uint32
		for cycle := uint32(1); cycle <= g.CurrentCycle; cycle++ {
			paid, err := tx.HasContributed(ctx, groupID, cycle, member)
			if err != nil {
				return err
			}
			if paid {
				cycles++
			}
		}

		total := g.ContributionAmount * int64(cycles)
		pen := penalty(total, e.penaltyPercent)
		refund := total - pen

		if refund > 0 {
			if err := e.treasury.Refund(ctx, groupID, member, refund); err != nil {
				return transferErr(groupID, err)
			}
		}
		if err := tx.MarkWithdrawn(ctx, groupID, member); err != nil {
			return err
		}

		ev := c.event(notify.EmergencyWithdrawal, groupID)
		ev.Member = member
		ev.Cycle = g.CurrentCycle
		ev.Amount = refund
		ev.Penalty = pen

		result = &models.Withdrawal{
			GroupID: groupID,
			Member:  member,
			Cycles:  cycles,
			Refund:  refund,
			Penalty: pen,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
