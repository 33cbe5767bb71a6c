package motiongov

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptimizeTransitionReduced(t *testing.T) {
	base := Transition{Duration: 400 * time.Millisecond, Delay: 50 * time.Millisecond, Easing: EaseDefault}

	got := OptimizeTransition(degradedState(), base)
	assert.Equal(t, 200*time.Millisecond, got.Duration)
	assert.Equal(t, 50*time.Millisecond, got.Delay)
	assert.Equal(t, EaseSimple, got.Easing)
}

func TestOptimizeTransitionSubOptimal(t *testing.T) {
	base := Transition{Duration: 400 * time.Millisecond, Easing: EaseDefault}
	state := PerformanceState{FPS: 50, IsOptimal: false}

	got := OptimizeTransition(state, base)
	assert.Equal(t, 300*time.Millisecond, got.Duration)
	assert.Equal(t, EaseDefault, got.Easing, "easing untouched when merely sub-optimal")
}

func TestOptimizeTransitionOptimalUnchanged(t *testing.T) {
	base := Transition{Duration: 400 * time.Millisecond, Delay: 10 * time.Millisecond, Easing: EaseLinear}

	got := OptimizeTransition(healthyState(), base)
	assert.Equal(t, base, got)
}

func TestOptimizeTransitionPure(t *testing.T) {
	base := Transition{Duration: 333 * time.Millisecond, Easing: EaseDefault}

	for _, state := range []PerformanceState{healthyState(), degradedState(), {FPS: 50}} {
		first := OptimizeTransition(state, base)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, OptimizeTransition(state, base))
		}
	}
}
