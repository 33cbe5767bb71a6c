package motiongov

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthyState() PerformanceState {
	return PerformanceState{FPS: 60, FrameTimeMs: 16.6, IsOptimal: true}
}

func degradedState() PerformanceState {
	return PerformanceState{FPS: 25, FrameTimeMs: 40, ShouldReduceAnimations: true}
}

func newTestRegistry(maxActive int, state *PerformanceState) *AdmissionRegistry {
	return NewAdmissionRegistry(maxActive, func() PerformanceState { return *state }, nil)
}

func TestRegisterAtCapacity(t *testing.T) {
	st := healthyState()
	r := newTestRegistry(1, &st)

	require.True(t, r.Register("x", 4))
	assert.False(t, r.Register("y", 4), "priority<7 refused at capacity")
	assert.Equal(t, 1, r.ActiveCount())

	r.Unregister("x")
	assert.True(t, r.Register("y", 4))
	assert.Equal(t, 1, r.ActiveCount())
}

func TestCriticalPriorityExceedsCeiling(t *testing.T) {
	st := healthyState()
	r := newTestRegistry(12, &st)

	for i := 0; i < 12; i++ {
		require.True(t, r.Register(AnimationID(fmt.Sprintf("a%d", i)), 5))
	}
	require.Equal(t, 12, r.ActiveCount())

	for p := CriticalMin; p <= PriorityMax; p++ {
		id := AnimationID(fmt.Sprintf("crit%d", p))
		assert.True(t, r.Register(id, p), "priority %d is never refused by the cap", p)
	}
	assert.Equal(t, 16, r.ActiveCount())

	assert.False(t, r.Register("standard", 6), "sub-critical still refused over the ceiling")
}

func TestReducedMotionRefusesDecorative(t *testing.T) {
	st := degradedState()
	r := newTestRegistry(12, &st)

	assert.False(t, r.Register("deco", 4), "priority<5 refused under reduced motion")
	assert.True(t, r.Register("std", 5))
	assert.True(t, r.Register("crit", 9))
}

func TestShouldSkipMirrorsRegister(t *testing.T) {
	st := degradedState()
	r := newTestRegistry(2, &st)

	for p := PriorityMin; p <= PriorityMax; p++ {
		skip := r.ShouldSkip(p)
		admitted := r.Register(AnimationID(fmt.Sprintf("p%d", p)), p)
		assert.Equal(t, skip, !admitted, "ShouldSkip(%d) must predict Register", p)
		if admitted {
			r.Unregister(AnimationID(fmt.Sprintf("p%d", p)))
		}
	}
}

func TestLiveCountMatchesRegistrations(t *testing.T) {
	st := healthyState()
	r := newTestRegistry(100, &st)

	ids := make([]AnimationID, 0, 30)
	for i := 0; i < 30; i++ {
		id := NewAnimationID()
		require.True(t, r.Register(id, 5))
		ids = append(ids, id)
	}
	assert.Equal(t, 30, r.ActiveCount())

	for _, id := range ids[:10] {
		r.Unregister(id)
	}
	assert.Equal(t, 20, r.ActiveCount())

	// Double unregister leaks nothing and removes nothing twice.
	for _, id := range ids[:10] {
		r.Unregister(id)
	}
	assert.Equal(t, 20, r.ActiveCount())
}

func TestIDCollisionOverwrites(t *testing.T) {
	st := healthyState()
	r := newTestRegistry(12, &st)

	require.True(t, r.Register("same", 3))
	require.True(t, r.Register("same", 8))
	assert.Equal(t, 1, r.ActiveCount(), "collision overwrites, never double counts")
}

func TestUnregisterNeverRegistered(t *testing.T) {
	st := healthyState()
	r := newTestRegistry(12, &st)

	assert.NotPanics(t, func() { r.Unregister("ghost") })
	assert.Equal(t, 0, r.ActiveCount())
}

func TestPriorityClampAndBands(t *testing.T) {
	assert.Equal(t, PriorityMin, Priority(-3).Clamp())
	assert.Equal(t, PriorityMax, Priority(42).Clamp())

	assert.Equal(t, BandDecorative, Priority(0).Band())
	assert.Equal(t, BandDecorative, Priority(4).Band())
	assert.Equal(t, BandStandard, Priority(5).Band())
	assert.Equal(t, BandStandard, Priority(6).Band())
	assert.Equal(t, BandCritical, Priority(7).Band())
	assert.Equal(t, BandCritical, Priority(10).Band())
}

func TestNewAnimationIDUnique(t *testing.T) {
	seen := make(map[AnimationID]bool)
	for i := 0; i < 100; i++ {
		id := NewAnimationID()
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestRegistrationTimestamp(t *testing.T) {
	st := healthyState()
	now := time.Unix(1000, 0)
	r := NewAdmissionRegistry(12, func() PerformanceState { return st },
		func() time.Time { return now })

	require.True(t, r.Register("a", 5))

	r.mu.RLock()
	reg := r.entries["a"]
	r.mu.RUnlock()
	assert.Equal(t, now, reg.RegisteredAt)
}
