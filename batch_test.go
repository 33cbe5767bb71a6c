package motiongov

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchCoalescesIntoOneTick(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	s := NewBatchScheduler(clock)

	var order []string
	s.AddToBatch("scroll", func() { order = append(order, "a") })
	s.AddToBatch("scroll", func() { order = append(order, "b") })
	s.AddToBatch("parallax", func() { order = append(order, "c") })
	require.True(t, s.Pending(), "one frame tick scheduled for all batches")

	clock.Tick(16 * time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.False(t, s.Pending(), "pending flag clears after the flush")
}

func TestBatchCallbacksPersistAcrossFlushes(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	s := NewBatchScheduler(clock)

	runs := 0
	s.AddToBatch("scroll", func() { runs++ })
	clock.Tick(16 * time.Millisecond)
	require.Equal(t, 1, runs)

	// A new addition reschedules; the surviving callback runs again.
	s.AddToBatch("scroll", func() { runs += 10 })
	clock.Tick(16 * time.Millisecond)
	assert.Equal(t, 12, runs)
}

func TestBatchRemoveDropsOnlyThatCallback(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	s := NewBatchScheduler(clock)

	var got []string
	remove := s.AddToBatch("scroll", func() { got = append(got, "gone") })
	s.AddToBatch("scroll", func() { got = append(got, "kept") })

	remove()
	clock.Tick(16 * time.Millisecond)
	assert.Equal(t, []string{"kept"}, got)

	assert.NotPanics(t, remove, "remove is idempotent")
}

func TestBatchNilCallbackNoop(t *testing.T) {
	s := NewBatchScheduler(NewManualClock(time.Unix(0, 0)))

	remove := s.AddToBatch("scroll", nil)
	assert.NotPanics(t, remove)
	assert.False(t, s.Pending())
}

func TestBatchNoRescheduleWithoutAdditions(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	s := NewBatchScheduler(clock)

	runs := 0
	s.AddToBatch("scroll", func() { runs++ })
	clock.Tick(16 * time.Millisecond)
	clock.Tick(16 * time.Millisecond)
	assert.Equal(t, 1, runs, "flush only happens on a scheduled tick")
}
