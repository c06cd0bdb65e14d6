package models

import (
	"math"
	"slices"
)

// Metadata size limits, in characters.
const (
	MaxNameLength        = 64
	MaxDescriptionLength = 256
	MaxRulesLength       = 512
)

// Group represents one rotating savings circle.
//
// ContributionAmount, CycleDuration and MaxMembers are fixed at creation.
// Members only ever grows and never exceeds MaxMembers.
type Group struct {
	// ID is assigned from a monotonically increasing counter starting at 1.
	ID uint64 `json:"id"`

	// Creator is the founding member and the only one allowed to cancel
	// the group or change its metadata.
	Creator string `json:"creator"`

	// ContributionAmount is what each member pays per cycle, in minor units.
	ContributionAmount int64 `json:"contribution_amount"`

	// CycleDuration is the length of one cycle in seconds.
	CycleDuration uint64 `json:"cycle_duration"`

	// MaxMembers is the upper bound on membership.
	MaxMembers uint32 `json:"max_members"`

	// Members in join order. Members[PayoutIndex] receives the next payout.
	Members []string `json:"members"`

	// CurrentCycle starts at 1 and increments on every payout.
	CurrentCycle uint32 `json:"current_cycle"`

	// PayoutIndex is the number of payouts executed so far.
	PayoutIndex uint32 `json:"payout_index"`

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt uint64 `json:"created_at"`

	// CycleStartTime is reset to the payout time whenever a cycle closes.
	CycleStartTime uint64 `json:"cycle_start_time"`

	// IsComplete is set once every member has been paid, or on cancellation.
	IsComplete bool `json:"is_complete"`
}

// HasMember reports whether identity is in the member list.
func (g *Group) HasMember(identity string) bool {
	return slices.Contains(g.Members, identity)
}

// MemberCount returns the number of members as stored.
func (g *Group) MemberCount() uint32 {
	return uint32(len(g.Members))
}

// IsFull reports whether the group has reached MaxMembers.
func (g *Group) IsFull() bool {
	return g.MemberCount() >= g.MaxMembers
}

// NextRecipient returns the member due the next payout, if any.
func (g *Group) NextRecipient() (string, bool) {
	if g.IsComplete || int(g.PayoutIndex) >= len(g.Members) {
		return "", false
	}
	return g.Members[g.PayoutIndex], true
}

// PayoutAmount is the full pool for one cycle.
func (g *Group) PayoutAmount() int64 {
	return g.ContributionAmount * int64(len(g.Members))
}

// CycleEndTime is when the current cycle's window closes. It saturates at
// math.MaxUint64 rather than wrapping.
func (g *Group) CycleEndTime() uint64 {
	end := g.CycleStartTime + g.CycleDuration
	if end < g.CycleStartTime {
		return math.MaxUint64
	}
	return end
}

// Clone returns a deep copy so callers can't alias the member slice.
func (g *Group) Clone() *Group {
	c := *g
	c.Members = slices.Clone(g.Members)
	return &c
}

// GroupMetadata holds optional display information for a group.
// A nil field is unset. The record is always replaced as a whole.
type GroupMetadata struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Rules       *string `json:"rules,omitempty"`
}

// MemberContribution is one member's paid flag for a given cycle.
type MemberContribution struct {
	Member string `json:"member"`
	Paid   bool   `json:"paid"`
}

// GroupStatus is a derived snapshot of a group's current cycle.
type GroupStatus struct {
	GroupID      uint64 `json:"group_id"`
	CurrentCycle uint32 `json:"current_cycle"`

	// NextRecipient is only meaningful when HasNextRecipient is true.
	NextRecipient    string `json:"next_recipient"`
	HasNextRecipient bool   `json:"has_next_recipient"`

	ContributionsReceived uint32   `json:"contributions_received"`
	TotalMembers          uint32   `json:"total_members"`
	PendingContributors   []string `json:"pending_contributors"`

	// CycleComplete is true when every member has contributed this cycle.
	CycleComplete bool `json:"cycle_complete"`
	IsComplete    bool `json:"is_complete"`

	CycleStartTime uint64 `json:"cycle_start_time"`
	CycleEndTime   uint64 `json:"cycle_end_time"`
	CurrentTime    uint64 `json:"current_time"`
	IsCycleActive  bool   `json:"is_cycle_active"`
}

// Withdrawal is the outcome of an emergency withdrawal.
type Withdrawal struct {
	GroupID uint64 `json:"group_id"`
	Member  string `json:"member"`

	// Cycles is how many cycles the member contributed to.
	Cycles  uint32 `json:"cycles"`
	Refund  int64  `json:"refund"`
	Penalty int64  `json:"penalty"`
}
