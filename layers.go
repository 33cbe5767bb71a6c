package motiongov

import (
	"fmt"
	"sync"
	"time"

	"codeberg.org/vireo/motiongov/internal/logger"
)

// ElementID is a stable handle onto a host element, minted by an
// ElementArena. The zero value refers to nothing (and, as an observer
// root, means the viewport).
type ElementID struct {
	index uint32
	gen   uint32
}

// IsZero reports whether the handle refers to nothing.
func (id ElementID) IsZero() bool {
	return id.gen == 0
}

func (id ElementID) String() string {
	return fmt.Sprintf("el-%d.%d", id.index, id.gen)
}

// ElementArena mints and recycles element handles. Generations guard
// against stale handles resolving to a recycled slot.
type ElementArena struct {
	mu   sync.Mutex
	gens []uint32
	live []bool
	free []uint32
}

func NewElementArena() *ElementArena {
	return &ElementArena{}
}

// Acquire mints a live handle.
func (a *ElementArena) Acquire() ElementID {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		a.live[idx] = true

		return ElementID{index: idx, gen: a.gens[idx]}
	}

	idx := uint32(len(a.gens))
	a.gens = append(a.gens, 1)
	a.live = append(a.live, true)

	return ElementID{index: idx, gen: 1}
}

// Release retires the handle. Idempotent; stale handles are a no-op.
func (a *ElementArena) Release(id ElementID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.validLocked(id) {
		return
	}

	a.live[id.index] = false
	a.gens[id.index]++
	a.free = append(a.free, id.index)
}

// Valid reports whether the handle still refers to a live element.
func (a *ElementArena) Valid(id ElementID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.validLocked(id)
}

func (a *ElementArena) validLocked(id ElementID) bool {
	return !id.IsZero() &&
		int(id.index) < len(a.gens) &&
		a.live[id.index] &&
		a.gens[id.index] == id.gen
}

// The fixed CSS hint set that promotes an element to a compositing
// layer. The layer manager is the only component allowed to mutate
// these on arbitrary elements.
const (
	HintWillChange         = "will-change"
	HintTransform          = "transform"
	HintBackfaceVisibility = "backface-visibility"
	HintIsolation          = "isolation"
	HintPerspective        = "perspective"
	HintFontSmoothing      = "-webkit-font-smoothing"
)

const (
	willChangeValue    = "transform, opacity"
	transformSentinel  = "translateZ(0)"
	backfaceValue      = "hidden"
	isolationValue     = "isolate"
	perspectiveValue   = "1000px"
	fontSmoothingValue = "antialiased"
)

// Surface is the host-side style mutation interface the layer manager
// drives. A real embedding maps it onto element styles; MemorySurface
// backs tests and the monitor daemon.
type Surface interface {
	SetHint(el ElementID, name, value string)
	Hint(el ElementID, name string) string
	RemoveHint(el ElementID, name string)
}

// MemorySurface is an in-process Surface holding hints in a map.
type MemorySurface struct {
	mu    sync.Mutex
	hints map[ElementID]map[string]string
}

func NewMemorySurface() *MemorySurface {
	return &MemorySurface{hints: make(map[ElementID]map[string]string)}
}

func (s *MemorySurface) SetHint(el ElementID, name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.hints[el]
	if !ok {
		m = make(map[string]string)
		s.hints[el] = m
	}
	m[name] = value
}

func (s *MemorySurface) Hint(el ElementID, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.hints[el][name]
}

func (s *MemorySurface) RemoveHint(el ElementID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.hints[el]; ok {
		delete(m, name)
		if len(m) == 0 {
			delete(s.hints, el)
		}
	}
}

// Layer is one GPU-composited promotion tracked by the manager.
type Layer struct {
	Element   ElementID
	Priority  Priority
	CreatedAt time.Time
}

// LayerManager tracks elements promoted to GPU-composited layers under
// a hard ceiling, evicting the lowest-priority layer to admit a higher
// one. Priority and age live in the manager's own side-table keyed by
// element handle, never on the element.
type LayerManager struct {
	surface Surface
	ceiling int
	enabled bool
	now     func() time.Time

	mu     sync.Mutex
	layers map[ElementID]Layer
}

// NewLayerManager builds a manager over the given surface. A disabled
// manager refuses every promotion without touching styles.
func NewLayerManager(surface Surface, ceiling int, enabled bool, now func() time.Time) *LayerManager {
	if ceiling <= 0 {
		ceiling = defaultGPULayerCeiling
	}
	if now == nil {
		now = time.Now
	}

	return &LayerManager{
		surface: surface,
		ceiling: ceiling,
		enabled: enabled && surface != nil,
		now:     now,
		layers:  make(map[ElementID]Layer),
	}
}

// EnableGPULayer promotes the element. Below the ceiling it always
// admits; at the ceiling it evicts the single lowest-priority layer
// when one qualifies (priority <= the new one for critical requests,
// strictly lower otherwise) and refuses when none does.
func (m *LayerManager) EnableGPULayer(el ElementID, priority Priority) bool {
	if !m.enabled || el.IsZero() {
		return false
	}
	priority = priority.Clamp()

	m.mu.Lock()
	defer m.mu.Unlock()

	if l, ok := m.layers[el]; ok {
		// Already composited: refresh priority, keep age.
		l.Priority = priority
		m.layers[el] = l

		return true
	}

	if len(m.layers) >= m.ceiling {
		victim, ok := m.lowestLocked()
		if !ok || victim.Priority > priority ||
			(priority < CriticalMin && victim.Priority == priority) {
			logger.Debug().
				Str("element", el.String()).
				Int("priority", int(priority)).
				Int("ceiling", m.ceiling).
				Msg("GPU layer refused")

			return false
		}

		m.revertLocked(victim.Element)
		delete(m.layers, victim.Element)
		logger.Debug().
			Str("evicted", victim.Element.String()).
			Int("evicted_priority", int(victim.Priority)).
			Str("admitted", el.String()).
			Int("priority", int(priority)).
			Msg("GPU layer evicted")
	}

	m.applyLocked(el)
	m.layers[el] = Layer{
		Element:   el,
		Priority:  priority,
		CreatedAt: m.now(),
	}

	return true
}

// DisableGPULayer reverts the promotion. Idempotent; never-enabled
// elements are a no-op.
func (m *LayerManager) DisableGPULayer(el ElementID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.layers[el]; !ok {
		return
	}

	m.revertLocked(el)
	delete(m.layers, el)
}

// ActiveLayerCount returns the number of live promotions.
func (m *LayerManager) ActiveLayerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.layers)
}

// Ceiling returns the capacity limit.
func (m *LayerManager) Ceiling() int {
	return m.ceiling
}

// lowestLocked picks the eviction candidate: minimum priority, oldest
// CreatedAt among equals.
func (m *LayerManager) lowestLocked() (Layer, bool) {
	var (
		victim Layer
		found  bool
	)
	for _, l := range m.layers {
		if !found || l.Priority < victim.Priority ||
			(l.Priority == victim.Priority && l.CreatedAt.Before(victim.CreatedAt)) {
			victim = l
			found = true
		}
	}

	return victim, found
}

func (m *LayerManager) applyLocked(el ElementID) {
	m.surface.SetHint(el, HintWillChange, willChangeValue)
	// A caller-authored transform stays; the sentinel only fills a gap.
	if m.surface.Hint(el, HintTransform) == "" {
		m.surface.SetHint(el, HintTransform, transformSentinel)
	}
	m.surface.SetHint(el, HintBackfaceVisibility, backfaceValue)
	m.surface.SetHint(el, HintIsolation, isolationValue)
	m.surface.SetHint(el, HintPerspective, perspectiveValue)
	m.surface.SetHint(el, HintFontSmoothing, fontSmoothingValue)
}

func (m *LayerManager) revertLocked(el ElementID) {
	m.surface.RemoveHint(el, HintWillChange)
	if m.surface.Hint(el, HintTransform) == transformSentinel {
		m.surface.RemoveHint(el, HintTransform)
	}
	m.surface.RemoveHint(el, HintBackfaceVisibility)
	m.surface.RemoveHint(el, HintIsolation)
	m.surface.RemoveHint(el, HintPerspective)
	m.surface.RemoveHint(el, HintFontSmoothing)
}
