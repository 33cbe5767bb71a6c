package motiongov

import (
	"sync"
	"time"
)

// AnimationParams is a small parameter record describing one animation
// run. Records cycle through the ParamPool to cut allocation churn in
// scroll-heavy UIs.
type AnimationParams struct {
	Archetype  string
	Duration   time.Duration
	Delay      time.Duration
	Easing     string
	Distance   float64
	Scale      float64
	Opacity    float64
	Iterations int
}

// Built-in archetypes. Unknown archetypes start from the fade preset.
const (
	ArchetypeFade  = "fade"
	ArchetypeSlide = "slide"
	ArchetypeScale = "scale"
	ArchetypeSpin  = "spin"
)

var archetypeDefaults = map[string]AnimationParams{
	ArchetypeFade: {
		Archetype:  ArchetypeFade,
		Duration:   300 * time.Millisecond,
		Easing:     EaseDefault,
		Opacity:    1,
		Iterations: 1,
	},
	ArchetypeSlide: {
		Archetype:  ArchetypeSlide,
		Duration:   400 * time.Millisecond,
		Easing:     EaseDefault,
		Distance:   24,
		Opacity:    1,
		Iterations: 1,
	},
	ArchetypeScale: {
		Archetype:  ArchetypeScale,
		Duration:   250 * time.Millisecond,
		Easing:     EaseDefault,
		Scale:      1.05,
		Opacity:    1,
		Iterations: 1,
	},
	ArchetypeSpin: {
		Archetype:  ArchetypeSpin,
		Duration:   time.Second,
		Easing:     EaseLinear,
		Iterations: 0, // infinite
	},
}

func archetypePreset(archetype string) AnimationParams {
	if preset, ok := archetypeDefaults[archetype]; ok {
		return preset
	}

	preset := archetypeDefaults[ArchetypeFade]
	preset.Archetype = archetype

	return preset
}

// ParamPool recycles AnimationParams records per archetype, bounded to
// a fixed number of pooled records each; excess returns are dropped.
type ParamPool struct {
	mu   sync.Mutex
	free map[string][]*AnimationParams
	cap  int
}

func NewParamPool(perArchetypeCap int) *ParamPool {
	if perArchetypeCap <= 0 {
		perArchetypeCap = defaultParamPoolCap
	}

	return &ParamPool{
		free: make(map[string][]*AnimationParams),
		cap:  perArchetypeCap,
	}
}

// Get pops a pooled record for the archetype, or constructs one. The
// record is reset to the archetype preset and overrides applied in
// order.
func (p *ParamPool) Get(archetype string, overrides ...func(*AnimationParams)) *AnimationParams {
	p.mu.Lock()
	var rec *AnimationParams
	if stack := p.free[archetype]; len(stack) > 0 {
		rec = stack[len(stack)-1]
		p.free[archetype] = stack[:len(stack)-1]
	}
	p.mu.Unlock()

	if rec == nil {
		rec = new(AnimationParams)
	}
	*rec = archetypePreset(archetype)

	for _, o := range overrides {
		if o != nil {
			o(rec)
		}
	}

	return rec
}

// Put returns a record to its archetype's pool. Records beyond the cap
// are silently dropped; nil is a no-op.
func (p *ParamPool) Put(rec *AnimationParams) {
	if rec == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	stack := p.free[rec.Archetype]
	if len(stack) >= p.cap {
		return
	}
	p.free[rec.Archetype] = append(stack, rec)
}

// PooledCount reports how many records are pooled for the archetype.
func (p *ParamPool) PooledCount(archetype string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.free[archetype])
}
