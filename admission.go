package motiongov

import (
	"sync"
	"time"

	"codeberg.org/vireo/motiongov/internal/logger"
	"github.com/google/uuid"
)

// Priority classifies how much an animation matters, 0 through 10.
// Decorative motion (0-4) degrades first under load; the critical band
// (7-10) is reserved so essential affordances keep working.
type Priority int

const (
	PriorityMin Priority = 0
	PriorityMax Priority = 10

	// Band boundaries. StandardMin doubles as the refusal threshold
	// under reduced-motion conditions, CriticalMin as the exemption from
	// the nominal capacity ceiling.
	StandardMin Priority = 5
	CriticalMin Priority = 7

	PriorityDecorative Priority = 2
	PriorityStandard   Priority = 5
	PriorityCritical   Priority = 9
)

// Band is the coarse priority classification.
type Band int

const (
	BandDecorative Band = iota
	BandStandard
	BandCritical
)

func (b Band) String() string {
	switch b {
	case BandDecorative:
		return "decorative"
	case BandStandard:
		return "standard"
	case BandCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Clamp bounds p into the valid 0-10 range.
func (p Priority) Clamp() Priority {
	if p < PriorityMin {
		return PriorityMin
	}
	if p > PriorityMax {
		return PriorityMax
	}

	return p
}

// Band returns the band p falls in.
func (p Priority) Band() Band {
	switch c := p.Clamp(); {
	case c >= CriticalMin:
		return BandCritical
	case c >= StandardMin:
		return BandStandard
	default:
		return BandDecorative
	}
}

// AnimationID identifies one concurrently active animation. Callers that
// manage their own ids supply them; collisions overwrite.
type AnimationID string

// NewAnimationID mints a collision-free id for callers that do not
// manage their own.
func NewAnimationID() AnimationID {
	return AnimationID(uuid.NewString())
}

// Registration is one live entry in the admission registry.
type Registration struct {
	ID           AnimationID
	Priority     Priority
	RegisteredAt time.Time
}

// AdmissionRegistry tracks active animation requests and decides
// admit/refuse under capacity and degraded-performance conditions. It
// owns the animation-slot resource; nothing else counts or caps slots.
type AdmissionRegistry struct {
	state     func() PerformanceState
	now       func() time.Time
	maxActive int

	mu      sync.RWMutex
	entries map[AnimationID]Registration
}

// NewAdmissionRegistry builds a registry with the given nominal ceiling.
// state supplies the sampler's current snapshot; nil means an always
// healthy state.
func NewAdmissionRegistry(maxActive int, state func() PerformanceState, now func() time.Time) *AdmissionRegistry {
	if maxActive <= 0 {
		maxActive = defaultMaxActiveAnimations
	}
	if state == nil {
		state = func() PerformanceState { return PerformanceState{IsOptimal: true} }
	}
	if now == nil {
		now = time.Now
	}

	return &AdmissionRegistry{
		state:     state,
		now:       now,
		maxActive: maxActive,
		entries:   make(map[AnimationID]Registration),
	}
}

// Register admits or refuses the animation. Refusal is not an error:
// the caller renders an unanimated fallback, and must still Unregister
// any id it manages.
func (r *AdmissionRegistry) Register(id AnimationID, priority Priority) bool {
	priority = priority.Clamp()
	st := r.state()

	r.mu.Lock()
	defer r.mu.Unlock()

	if refuse, reason := r.refusalLocked(st, priority); refuse {
		logger.Debug().
			Str("id", string(id)).
			Int("priority", int(priority)).
			Str("reason", reason).
			Msg("Animation refused")

		return false
	}

	r.entries[id] = Registration{
		ID:           id,
		Priority:     priority,
		RegisteredAt: r.now(),
	}

	return true
}

// Unregister removes the id. Idempotent; absent ids are a no-op.
func (r *AdmissionRegistry) Unregister(id AnimationID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, id)
}

// ShouldSkip mirrors the refusal logic without registering, so callers
// can avoid setting up an animation that would be refused anyway.
func (r *AdmissionRegistry) ShouldSkip(priority Priority) bool {
	st := r.state()

	r.mu.RLock()
	defer r.mu.RUnlock()

	refuse, _ := r.refusalLocked(st, priority.Clamp())

	return refuse
}

// ActiveCount returns the live registration count.
func (r *AdmissionRegistry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// OptimizeTransition scales base against the current performance state.
func (r *AdmissionRegistry) OptimizeTransition(base Transition) Transition {
	return OptimizeTransition(r.state(), base)
}

func (r *AdmissionRegistry) refusalLocked(st PerformanceState, priority Priority) (bool, string) {
	if st.ShouldReduceAnimations && priority < StandardMin {
		return true, "reduced_motion"
	}
	if len(r.entries) >= r.maxActive && priority < CriticalMin {
		return true, "at_capacity"
	}

	return false, ""
}
