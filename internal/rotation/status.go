package rotation

import (
	"context"

	"github.com/mmynk/ajo/internal/models"
	"github.com/mmynk/ajo/internal/storage"
)

// GetGroupStatus aggregates the current cycle into one snapshot. It never
// writes; rotation only advances in ExecutePayout.
func (e *Engine) GetGroupStatus(ctx context.Context, groupID uint64) (*models.GroupStatus, error) {
	now := e.clock.Now()
	var status *models.GroupStatus
	err := e.view(ctx, func(tx storage.Tx) error {
		g, err := loadGroup(ctx, tx, groupID)
		if err != nil {
			return err
		}

		s := &models.GroupStatus{
			GroupID:             g.ID,
			CurrentCycle:        g.CurrentCycle,
			TotalMembers:        g.MemberCount(),
			PendingContributors: []string{},
			IsComplete:          g.IsComplete,
			CycleStartTime:      g.CycleStartTime,
			CycleEndTime:        g.CycleEndTime(),
			CurrentTime:         now,
		}
		s.NextRecipient, s.HasNextRecipient = g.NextRecipient()

		for _, member := range g.Members {
			paid, err := tx.HasContributed(ctx, g.ID, g.CurrentCycle, member)
			if err != nil {
				return err
			}
			if paid {
				s.ContributionsReceived++
			} else {
				s.PendingContributors = append(s.PendingContributors, member)
			}
		}
		s.CycleComplete = s.ContributionsReceived == s.TotalMembers

		// Same boundary as the contribution window: the end second is still open.
		s.IsCycleActive = !g.IsComplete && now >= g.CycleStartTime && now <= s.CycleEndTime

		status = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}
