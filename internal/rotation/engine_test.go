package rotation

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/ajo/internal/clock"
	"github.com/mmynk/ajo/internal/models"
	"github.com/mmynk/ajo/internal/notify"
	"github.com/mmynk/ajo/internal/notify/notifytest"
	"github.com/mmynk/ajo/internal/storage/memory"
)

const (
	amount   = int64(100_000_000)
	week     = uint64(604_800)
	startAt  = uint64(1_700_000_000)
	creator  = "creator"
	member2  = "member2"
	member3  = "member3"
	outsider = "outsider"
)

type fixture struct {
	engine   *Engine
	clock    *clock.Manual
	events   *notifytest.Recorder
	treasury *recordingTreasury
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		clock:    clock.NewManual(startAt),
		events:   &notifytest.Recorder{},
		treasury: &recordingTreasury{},
	}
	opts.Clock = f.clock
	opts.Sink = f.events
	if opts.Treasury == nil {
		opts.Treasury = f.treasury
	}
	f.engine = New(memory.New(), opts)
	return f
}

// threeMemberGroup creates creator's group and adds member2 and member3.
func (f *fixture) threeMemberGroup(t *testing.T) uint64 {
	t.Helper()
	ctx := context.Background()
	id, err := f.engine.CreateGroup(ctx, creator, amount, week, 3)
	require.NoError(t, err)
	require.NoError(t, f.engine.JoinGroup(ctx, member2, id))
	require.NoError(t, f.engine.JoinGroup(ctx, member3, id))
	return id
}

func (f *fixture) contributeAll(t *testing.T, id uint64) {
	t.Helper()
	for _, m := range []string{creator, member2, member3} {
		require.NoError(t, f.engine.Contribute(context.Background(), m, id))
	}
}

type transfer struct {
	kind   string
	member string
	amount int64
}

type recordingTreasury struct {
	transfers []transfer
	failOn    string
}

func (r *recordingTreasury) record(kind, member string, amount int64) error {
	if r.failOn == kind {
		return errors.New("insufficient balance")
	}
	r.transfers = append(r.transfers, transfer{kind, member, amount})
	return nil
}

func (r *recordingTreasury) Collect(_ context.Context, _ uint64, member string, amount int64) error {
	return r.record("collect", member, amount)
}

func (r *recordingTreasury) Payout(_ context.Context, _ uint64, member string, amount int64) error {
	return r.record("payout", member, amount)
}

func (r *recordingTreasury) Refund(_ context.Context, _ uint64, member string, amount int64) error {
	return r.record("refund", member, amount)
}

func TestCreateGroup(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	id, err := f.engine.CreateGroup(ctx, creator, amount, week, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	g, err := f.engine.GetGroup(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, creator, g.Creator)
	assert.Equal(t, amount, g.ContributionAmount)
	assert.Equal(t, week, g.CycleDuration)
	assert.Equal(t, uint32(10), g.MaxMembers)
	assert.Equal(t, []string{creator}, g.Members)
	assert.Equal(t, uint32(1), g.CurrentCycle)
	assert.Equal(t, uint32(0), g.PayoutIndex)
	assert.Equal(t, startAt, g.CreatedAt)
	assert.Equal(t, startAt, g.CycleStartTime)
	assert.False(t, g.IsComplete)

	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notify.GroupCreated, events[0].Kind)
	assert.Equal(t, creator, events[0].Member)
	assert.Equal(t, amount, events[0].Amount)
	assert.Equal(t, uint32(10), events[0].MaxMembers)
}

func TestCreateGroupIDsIncrease(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	first, err := f.engine.CreateGroup(ctx, creator, amount, week, 3)
	require.NoError(t, err)
	require.NoError(t, f.engine.CancelGroup(ctx, creator, first))

	second, err := f.engine.CreateGroup(ctx, member2, amount, week, 3)
	require.NoError(t, err)
	assert.Equal(t, first+1, second)
}

func TestCreateGroupValidation(t *testing.T) {
	tests := []struct {
		name       string
		amount     int64
		duration   uint64
		maxMembers uint32
		want       error
	}{
		{"zero amount", 0, week, 10, ErrContributionAmountZero},
		{"negative amount", -100, week, 10, ErrContributionAmountNegative},
		{"zero duration", amount, 0, 10, ErrCycleDurationZero},
		{"one member", amount, week, 1, ErrMaxMembersBelowMinimum},
		{"zero members", amount, week, 0, ErrMaxMembersBelowMinimum},
		{"above limit", amount, week, DefaultMaxMembersLimit + 1, ErrMaxMembersAboveLimit},
		{"pool overflows", math.MaxInt64/2 + 1, week, 2, ErrContributionAmountTooLarge},
		{"pool overflows at limit", math.MaxInt64/DefaultMaxMembersLimit + 1, week, DefaultMaxMembersLimit, ErrContributionAmountTooLarge},
		{"duration too large", amount, math.MaxUint64, 2, ErrCycleDurationTooLarge},
		{"duration just too large", amount, math.MaxInt64 + 1, 2, ErrCycleDurationTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Options{})
			_, err := f.engine.CreateGroup(context.Background(), creator, tt.amount, tt.duration, tt.maxMembers)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.events.Events())
		})
	}

	t.Run("at limit", func(t *testing.T) {
		f := newFixture(t, Options{})
		_, err := f.engine.CreateGroup(context.Background(), creator, amount, week, DefaultMaxMembersLimit)
		assert.NoError(t, err)
	})

	t.Run("largest pool pays out exactly", func(t *testing.T) {
		f := newFixture(t, Options{})
		ctx := context.Background()
		big := int64(math.MaxInt64 / 2)
		id, err := f.engine.CreateGroup(ctx, creator, big, week, 2)
		require.NoError(t, err)
		require.NoError(t, f.engine.JoinGroup(ctx, member2, id))
		require.NoError(t, f.engine.Contribute(ctx, creator, id))
		require.NoError(t, f.engine.Contribute(ctx, member2, id))

		p, err := f.engine.ExecutePayout(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 2*big, p.Amount)
		assert.Positive(t, p.Amount)
	})

	t.Run("longest cycle stays active", func(t *testing.T) {
		f := newFixture(t, Options{EnforceCycleWindow: true})
		ctx := context.Background()
		id, err := f.engine.CreateGroup(ctx, creator, amount, MaxCycleDuration, 2)
		require.NoError(t, err)

		s, err := f.engine.GetGroupStatus(ctx, id)
		require.NoError(t, err)
		assert.Greater(t, s.CycleEndTime, s.CycleStartTime)
		assert.True(t, s.IsCycleActive)
		assert.NoError(t, f.engine.Contribute(ctx, creator, id))
	})

	t.Run("custom limit", func(t *testing.T) {
		f := newFixture(t, Options{MaxMembersLimit: 5})
		_, err := f.engine.CreateGroup(context.Background(), creator, amount, week, 6)
		assert.ErrorIs(t, err, ErrMaxMembersAboveLimit)
	})
}

func TestJoinGroup(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	id := f.threeMemberGroup(t)

	members, err := f.engine.ListMembers(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{creator, member2, member3}, members)

	ok, err := f.engine.IsMember(ctx, id, member2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.engine.IsMember(ctx, id, outsider)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []notify.Kind{notify.GroupCreated, notify.MemberJoined, notify.MemberJoined}, f.events.Kinds())
}

func TestJoinGroupFailures(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	id, err := f.engine.CreateGroup(ctx, creator, amount, week, 2)
	require.NoError(t, err)

	assert.ErrorIs(t, f.engine.JoinGroup(ctx, creator, id), ErrAlreadyMember)
	assert.ErrorIs(t, f.engine.JoinGroup(ctx, member2, 999), ErrGroupNotFound)

	require.NoError(t, f.engine.JoinGroup(ctx, member2, id))
	assert.ErrorIs(t, f.engine.JoinGroup(ctx, member3, id), ErrMaxMembersExceeded)

	g, err := f.engine.GetGroup(ctx, id)
	require.NoError(t, err)
	assert.Len(t, g.Members, 2)

	require.NoError(t, f.engine.CancelGroup(ctx, creator, id))
	assert.ErrorIs(t, f.engine.JoinGroup(ctx, member3, id), ErrGroupComplete)
}

func TestCancelGroup(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	id := f.threeMemberGroup(t)

	require.NoError(t, f.engine.Contribute(ctx, creator, id))
	require.NoError(t, f.engine.Contribute(ctx, member2, id))

	assert.ErrorIs(t, f.engine.CancelGroup(ctx, member2, id), ErrUnauthorized)
	assert.ErrorIs(t, f.engine.CancelGroup(ctx, creator, 999), ErrGroupNotFound)

	require.NoError(t, f.engine.CancelGroup(ctx, creator, id))

	done, err := f.engine.IsComplete(ctx, id)
	require.NoError(t, err)
	assert.True(t, done)

	assert.ErrorIs(t, f.engine.Contribute(ctx, member3, id), ErrGroupComplete)
	_, err = f.engine.ExecutePayout(ctx, id)
	assert.ErrorIs(t, err, ErrGroupComplete)
	assert.ErrorIs(t, f.engine.CancelGroup(ctx, creator, id), ErrGroupComplete)

	kinds := f.events.Kinds()
	assert.Equal(t, notify.GroupCancelled, kinds[len(kinds)-1])
}

func TestContribute(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	id := f.threeMemberGroup(t)

	require.NoError(t, f.engine.Contribute(ctx, creator, id))
	assert.ErrorIs(t, f.engine.Contribute(ctx, creator, id), ErrAlreadyContributed)
	assert.ErrorIs(t, f.engine.Contribute(ctx, outsider, id), ErrNotMember)
	assert.ErrorIs(t, f.engine.Contribute(ctx, creator, 999), ErrGroupNotFound)

	status, err := f.engine.GetContributionStatus(ctx, id, 1)
	require.NoError(t, err)
	assert.Equal(t, []models.MemberContribution{
		{Member: creator, Paid: true},
		{Member: member2, Paid: false},
		{Member: member3, Paid: false},
	}, status)

	events := f.events.Events()
	last := events[len(events)-1]
	assert.Equal(t, notify.ContributionMade, last.Kind)
	assert.Equal(t, creator, last.Member)
	assert.Equal(t, uint32(1), last.Cycle)
	assert.Equal(t, amount, last.Amount)

	assert.Equal(t, []transfer{{"collect", creator, amount}}, f.treasury.transfers)
}

func TestContributeCycleWindow(t *testing.T) {
	t.Run("not enforced by default", func(t *testing.T) {
		f := newFixture(t, Options{})
		id := f.threeMemberGroup(t)
		f.clock.Advance(week + 1)
		assert.NoError(t, f.engine.Contribute(context.Background(), creator, id))
	})

	t.Run("enforced", func(t *testing.T) {
		f := newFixture(t, Options{EnforceCycleWindow: true})
		ctx := context.Background()
		id := f.threeMemberGroup(t)

		f.clock.Advance(week)
		require.NoError(t, f.engine.Contribute(ctx, creator, id), "last second of the window is open")

		f.clock.Advance(1)
		assert.ErrorIs(t, f.engine.Contribute(ctx, member2, id), ErrOutsideCycleWindow)

		paid, err := f.engine.GetContributionStatus(ctx, id, 1)
		require.NoError(t, err)
		assert.False(t, paid[1].Paid)
	})
}

func TestExecutePayoutRequiresAllContributions(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	id := f.threeMemberGroup(t)

	require.NoError(t, f.engine.Contribute(ctx, creator, id))
	require.NoError(t, f.engine.Contribute(ctx, member2, id))

	_, err := f.engine.ExecutePayout(ctx, id)
	assert.ErrorIs(t, err, ErrIncompleteContributions)

	g, err := f.engine.GetGroup(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), g.PayoutIndex)
	assert.Equal(t, uint32(1), g.CurrentCycle)

	_, err = f.engine.ExecutePayout(ctx, 999)
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestExecutePayout(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	id := f.threeMemberGroup(t)
	f.contributeAll(t, id)

	f.clock.Advance(3600)
	p, err := f.engine.ExecutePayout(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, &Payout{GroupID: id, Cycle: 1, Recipient: creator, Amount: 3 * amount}, p)

	g, err := f.engine.GetGroup(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), g.CurrentCycle)
	assert.Equal(t, uint32(1), g.PayoutIndex)
	assert.Equal(t, startAt+3600, g.CycleStartTime)
	assert.False(t, g.IsComplete)

	// New cycle starts with no contributions.
	_, err = f.engine.ExecutePayout(ctx, id)
	assert.ErrorIs(t, err, ErrIncompleteContributions)
	require.NoError(t, f.engine.Contribute(ctx, creator, id))

	status, err := f.engine.GetContributionStatus(ctx, id, 2)
	require.NoError(t, err)
	assert.True(t, status[0].Paid)
	assert.False(t, status[1].Paid)
}

func TestFullRotation(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	id := f.threeMemberGroup(t)

	order := []string{creator, member2, member3}
	for i, want := range order {
		f.contributeAll(t, id)
		p, err := f.engine.ExecutePayout(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, p.Recipient, "payout %d", i)
		assert.Equal(t, uint32(i+1), p.Cycle)
		assert.Equal(t, i == len(order)-1, p.Completed)

		g, err := f.engine.GetGroup(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, uint32(i+1), g.PayoutIndex)
		assert.Equal(t, uint32(i+2), g.CurrentCycle)
		assert.Equal(t, i == len(order)-1, g.IsComplete)
	}

	g, err := f.engine.GetGroup(ctx, id)
	require.NoError(t, err)
	assert.True(t, g.IsComplete)
	assert.Equal(t, uint32(3), g.PayoutIndex)

	assert.ErrorIs(t, f.engine.JoinGroup(ctx, outsider, id), ErrGroupComplete)
	assert.ErrorIs(t, f.engine.Contribute(ctx, creator, id), ErrGroupComplete)
	_, err = f.engine.ExecutePayout(ctx, id)
	assert.ErrorIs(t, err, ErrGroupComplete)

	kinds := f.events.Kinds()
	require.GreaterOrEqual(t, len(kinds), 2)
	assert.Equal(t, []notify.Kind{notify.PayoutExecuted, notify.GroupCompleted}, kinds[len(kinds)-2:])

	var payouts []transfer
	for _, tr := range f.treasury.transfers {
		if tr.kind == "payout" {
			payouts = append(payouts, tr)
		}
	}
	assert.Equal(t, []transfer{
		{"payout", creator, 3 * amount},
		{"payout", member2, 3 * amount},
		{"payout", member3, 3 * amount},
	}, payouts)
}

func TestMultipleGroupsAreIndependent(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	a := f.threeMemberGroup(t)
	b, err := f.engine.CreateGroup(ctx, member2, 50, week, 2)
	require.NoError(t, err)
	require.NoError(t, f.engine.JoinGroup(ctx, creator, b))

	f.contributeAll(t, a)
	_, err = f.engine.ExecutePayout(ctx, a)
	require.NoError(t, err)

	require.NoError(t, f.engine.Contribute(ctx, member2, b))
	require.NoError(t, f.engine.Contribute(ctx, creator, b))
	p, err := f.engine.ExecutePayout(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, member2, p.Recipient)
	assert.Equal(t, int64(100), p.Amount)

	groups, err := f.engine.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, uint32(2), groups[0].CurrentCycle)
	assert.Equal(t, uint32(2), groups[1].CurrentCycle)
}

func TestTransferFailureRollsBack(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	id := f.threeMemberGroup(t)
	f.contributeAll(t, id)

	f.treasury.failOn = "payout"
	before := len(f.events.Events())

	_, err := f.engine.ExecutePayout(ctx, id)
	assert.ErrorIs(t, err, ErrTransferFailed)
	assert.Equal(t, CodeTransferFailed, CodeOf(err))
	assert.Len(t, f.events.Events(), before, "no events for an aborted call")

	g, err := f.engine.GetGroup(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), g.PayoutIndex)

	f.treasury.failOn = ""
	p, err := f.engine.ExecutePayout(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, creator, p.Recipient)
}

func TestMetadata(t *testing.T) {
	ctx := context.Background()
	name := "Tech Workers Ajo"
	desc := "Monthly savings for tech workers"

	t.Run("set and get", func(t *testing.T) {
		f := newFixture(t, Options{})
		id := f.threeMemberGroup(t)

		md, err := f.engine.GetGroupMetadata(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, md)

		require.NoError(t, f.engine.SetGroupMetadata(ctx, creator, id, models.GroupMetadata{Name: &name}))
		md, err = f.engine.GetGroupMetadata(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, md)
		assert.Equal(t, name, *md.Name)
		assert.Nil(t, md.Description)
		assert.Nil(t, md.Rules)
	})

	t.Run("update replaces whole record", func(t *testing.T) {
		f := newFixture(t, Options{})
		id := f.threeMemberGroup(t)

		require.NoError(t, f.engine.SetGroupMetadata(ctx, creator, id, models.GroupMetadata{Name: &name, Description: &desc}))
		other := "Renamed"
		require.NoError(t, f.engine.SetGroupMetadata(ctx, creator, id, models.GroupMetadata{Name: &other}))

		md, err := f.engine.GetGroupMetadata(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, other, *md.Name)
		assert.Nil(t, md.Description)
	})

	t.Run("creator only", func(t *testing.T) {
		f := newFixture(t, Options{})
		id := f.threeMemberGroup(t)
		err := f.engine.SetGroupMetadata(ctx, member2, id, models.GroupMetadata{Name: &name})
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("group not found", func(t *testing.T) {
		f := newFixture(t, Options{})
		assert.ErrorIs(t, f.engine.SetGroupMetadata(ctx, creator, 42, models.GroupMetadata{}), ErrGroupNotFound)
		_, err := f.engine.GetGroupMetadata(ctx, 42)
		assert.ErrorIs(t, err, ErrGroupNotFound)
	})

	t.Run("persists after rotation", func(t *testing.T) {
		f := newFixture(t, Options{})
		id := f.threeMemberGroup(t)
		require.NoError(t, f.engine.SetGroupMetadata(ctx, creator, id, models.GroupMetadata{Name: &name}))
		f.contributeAll(t, id)
		_, err := f.engine.ExecutePayout(ctx, id)
		require.NoError(t, err)

		md, err := f.engine.GetGroupMetadata(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, name, *md.Name)
	})
}

func TestMetadataBounds(t *testing.T) {
	ptr := func(s string) *string { return &s }
	tests := []struct {
		name string
		md   models.GroupMetadata
		want error
	}{
		{"name at limit", models.GroupMetadata{Name: ptr(strings.Repeat("a", 64))}, nil},
		{"description at limit", models.GroupMetadata{Description: ptr(strings.Repeat("b", 256))}, nil},
		{"rules at limit", models.GroupMetadata{Rules: ptr(strings.Repeat("c", 512))}, nil},
		{"name too long", models.GroupMetadata{Name: ptr(strings.Repeat("a", 65))}, ErrMetadataNameTooLong},
		{"description too long", models.GroupMetadata{Description: ptr(strings.Repeat("b", 257))}, ErrMetadataDescriptionTooLong},
		{"rules too long", models.GroupMetadata{Rules: ptr(strings.Repeat("c", 513))}, ErrMetadataRulesTooLong},
		{"empty strings", models.GroupMetadata{Name: ptr(""), Description: ptr(""), Rules: ptr("")}, nil},
		{"multibyte counts characters", models.GroupMetadata{Name: ptr(strings.Repeat("é", 64))}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Options{})
			id := f.threeMemberGroup(t)
			err := f.engine.SetGroupMetadata(context.Background(), creator, id, tt.md)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestEndToEnd(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	id, err := f.engine.CreateGroup(ctx, creator, 100_000_000, 604800, 3)
	require.NoError(t, err)
	require.NoError(t, f.engine.JoinGroup(ctx, member2, id))
	require.NoError(t, f.engine.JoinGroup(ctx, member3, id))

	f.contributeAll(t, id)
	p, err := f.engine.ExecutePayout(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, creator, p.Recipient)

	g, err := f.engine.GetGroup(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), g.CurrentCycle)
	assert.Equal(t, uint32(1), g.PayoutIndex)

	for i := 0; i < 2; i++ {
		f.clock.Advance(week)
		f.contributeAll(t, id)
		_, err := f.engine.ExecutePayout(ctx, id)
		require.NoError(t, err)
	}

	g, err = f.engine.GetGroup(ctx, id)
	require.NoError(t, err)
	assert.True(t, g.IsComplete)
	assert.Equal(t, uint32(3), g.PayoutIndex)
}
