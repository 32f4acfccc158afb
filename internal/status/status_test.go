package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

func TestEffectiveOwnFlag(t *testing.T) {
	assert.True(t, Effective(now, Leaf(true)))
	assert.False(t, Effective(now, Leaf(false)))
}

func TestEffectiveWindow(t *testing.T) {
	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.March, 31, 23, 59, 59, 0, time.UTC)

	assert.True(t, Effective(now, Windowed(true, start, end)))
	assert.False(t, Effective(now.AddDate(0, 1, 0), Windowed(true, start, end)), "lapsed window")
	assert.False(t, Effective(now.AddDate(0, -1, 0), Windowed(true, start, end)), "window not yet open")
	assert.False(t, Effective(now, Windowed(false, start, end)), "flag wins over window")
}

func TestEffectiveWindowBoundsInclusive(t *testing.T) {
	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)

	assert.True(t, Effective(start, Windowed(true, start, end)))
	assert.True(t, Effective(end, Windowed(true, start, end)))
}

func TestEffectiveFollowsReferences(t *testing.T) {
	group := Leaf(true)
	customer := Leaf(true).WithRefs(group)
	assert.True(t, Effective(now, customer))

	deadGroup := Leaf(false)
	assert.False(t, Effective(now, Leaf(true).WithRefs(deadGroup)))
}

// Flipping a transitively referenced record off must flip every dependent
// record off on the next read without touching the dependents themselves.
func TestEffectiveCascadeMonotonicity(t *testing.T) {
	build := func(groupActive bool) Node {
		group := Leaf(groupActive)
		customer := Leaf(true).WithRefs(group)
		quotation := Windowed(true,
			time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC),
		).WithRefs(customer)
		line := Leaf(true).WithRefs(quotation)
		return line
	}

	assert.True(t, Effective(now, build(true)))
	assert.False(t, Effective(now, build(false)))
}

func TestEffectiveMissingReferenceDefaultsTrue(t *testing.T) {
	// A line whose customer lookup failed carries no ref node at all.
	line := Leaf(true)
	assert.True(t, Effective(now, line))
}

func TestEffectiveMultipleRefsConjunction(t *testing.T) {
	n := Leaf(true).WithRefs(Leaf(true), Leaf(true), Leaf(false))
	assert.False(t, Effective(now, n))
}
