package rotation

import (
	"context"
	"fmt"

	"github.com/mmynk/ajo/internal/models"
	"github.com/mmynk/ajo/internal/notify"
	"github.com/mmynk/ajo/internal/storage"
)

// Payout describes one executed payout.
type Payout struct {
	GroupID   uint64 `json:"group_id"`
	Cycle     uint32 `json:"cycle"`
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`

	// Completed is true when this payout exhausted the rotation.
	Completed bool `json:"completed"`
}

// Contribute records member's contribution for the current cycle.
func (e *Engine) Contribute(ctx context.Context, member string, groupID uint64) error {
	return e.update(ctx, func(tx storage.Tx, c *call) error {
		g, err := loadOpenGroup(ctx, tx, groupID)
		if err != nil {
			return err
		}
		if !g.HasMember(member) {
			return groupErr(ErrNotMember, groupID)
		}

		paid, err := tx.HasContributed(ctx, groupID, g.CurrentCycle, member)
		if err != nil {
			return err
		}
		if paid {
			return groupErr(ErrAlreadyContributed, groupID)
		}
		if e.enforceWindow && c.now > g.CycleEndTime() {
			return groupErr(ErrOutsideCycleWindow, groupID)
		}

		if err := e.treasury.Collect(ctx, groupID, member, g.ContributionAmount); err != nil {
			return transferErr(groupID, err)
		}
		if err := tx.SetContributed(ctx, groupID, g.CurrentCycle, member); err != nil {
			return err
		}

		ev := c.event(notify.ContributionMade, groupID)
		ev.Member = member
		ev.Cycle = g.CurrentCycle
		ev.Amount = g.ContributionAmount
		return nil
	})
}

// allContributed scans every member's fact for the current cycle.
func allContributed(ctx context.Context, tx storage.Tx, g *models.Group) (bool, error) {
	for _, member := range g.Members {
		paid, err := tx.HasContributed(ctx, g.ID, g.CurrentCycle, member)
		if err != nil {
			return false, err
		}
		if !paid {
			return false, nil
		}
	}
	return true, nil
}

// ExecutePayout pays the pooled cycle sum to the next member in rotation,
// then opens the next cycle. The final payout also completes the group.
func (e *Engine) ExecutePayout(ctx context.Context, groupID uint64) (*Payout, error) {
	var result *Payout
	err := e.update(ctx, func(tx storage.Tx, c *call) error {
		g, err := loadOpenGroup(ctx, tx, groupID)
		if err != nil {
			return err
		}

		ok, err := allContributed(ctx, tx, g)
		if err != nil {
			return err
		}
		if !ok {
			return groupErr(ErrIncompleteContributions, groupID)
		}

		recipient, ok := g.NextRecipient()
		if !ok {
			// is_complete and payout_index disagree; refuse to pay anyone.
			return groupErr(ErrGroupComplete, groupID)
		}
		received, err := tx.HasReceivedPayout(ctx, groupID, recipient)
		if err != nil {
			return err
		}
		if received {
			return groupErr(ErrAlreadyReceivedPayout, groupID)
		}

		amount := g.PayoutAmount()
		if err := e.treasury.Payout(ctx, groupID, recipient, amount); err != nil {
			return transferErr(groupID, err)
		}
		if err := tx.MarkPayoutReceived(ctx, groupID, recipient); err != nil {
			return err
		}

		ev := c.event(notify.PayoutExecuted, groupID)
		ev.Member = recipient
		ev.Cycle = g.CurrentCycle
		ev.Amount = amount

		result = &Payout{
			GroupID:   groupID,
			Cycle:     g.CurrentCycle,
			Recipient: recipient,
			Amount:    amount,
		}

		g.PayoutIndex++
		g.CurrentCycle++
		g.CycleStartTime = c.now
		if g.PayoutIndex == g.MemberCount() {
			g.IsComplete = true
			result.Completed = true
			c.event(notify.GroupCompleted, groupID)
		}

		return tx.PutGroup(ctx, g)
	})
	if err != nil {
		return nil, err
	}

	e.logger.DebugContext(ctx, "Payout executed",
		"group_id", groupID,
		"recipient", result.Recipient,
		"cycle", result.Cycle,
		"amount", result.Amount,
	)
	return result, nil
}

func transferErr(groupID uint64, err error) error {
	return fmt.Errorf("group %d: %w: %w", groupID, ErrTransferFailed, err)
}
