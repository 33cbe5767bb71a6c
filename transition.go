package motiongov

import "time"

// Easing values the governor hands back. Hosts map these onto their own
// timing functions.
const (
	EaseDefault = "cubic-bezier(0.4, 0, 0.2, 1)"
	EaseSimple  = "ease"
	EaseLinear  = "linear"
)

// Transition is a motion configuration a component intends to run.
type Transition struct {
	Duration time.Duration
	Delay    time.Duration
	Easing   string
}

// OptimizeTransition derives an adjusted motion configuration from the
// performance state: under reduced motion the duration halves and the
// easing collapses to a simple ease; merely sub-optimal conditions cut
// the duration by a quarter. Pure function of (state, base).
func OptimizeTransition(state PerformanceState, base Transition) Transition {
	switch {
	case state.ShouldReduceAnimations:
		return Transition{
			Duration: base.Duration / 2,
			Delay:    base.Delay,
			Easing:   EaseSimple,
		}
	case !state.IsOptimal:
		return Transition{
			Duration: base.Duration * 3 / 4,
			Delay:    base.Delay,
			Easing:   base.Easing,
		}
	default:
		return base
	}
}
