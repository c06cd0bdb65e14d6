package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCycleEndTime(t *testing.T) {
	g := &Group{CycleStartTime: 1_700_000_000, CycleDuration: 60}
	assert.Equal(t, uint64(1_700_000_060), g.CycleEndTime())

	g.CycleDuration = math.MaxUint64
	assert.Equal(t, uint64(math.MaxUint64), g.CycleEndTime(), "end time saturates instead of wrapping")

	g.CycleDuration = math.MaxUint64 - g.CycleStartTime
	assert.Equal(t, uint64(math.MaxUint64), g.CycleEndTime())
}

func TestPayoutAmount(t *testing.T) {
	g := &Group{ContributionAmount: 250, Members: []string{"a", "b", "c"}}
	assert.Equal(t, int64(750), g.PayoutAmount())
}
