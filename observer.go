package motiongov

import (
	"fmt"
	"sync"
	"time"
)

// IntersectionEntry is one viewport-visibility notification.
type IntersectionEntry struct {
	Element      ElementID
	Ratio        float64
	Intersecting bool
}

// IntersectionCallback receives visibility notifications for one element.
type IntersectionCallback func(IntersectionEntry)

// ObserverOptions selects which native observer an element shares. One
// native observer exists per distinct option set. A zero Root means the
// viewport.
type ObserverOptions struct {
	Threshold  float64
	RootMargin string
	Root       ElementID
}

func (o ObserverOptions) normalized(defaults ObserverOptions) ObserverOptions {
	// Malformed options are absorbed, not surfaced.
	if o.Threshold < 0 {
		o.Threshold = 0
	}
	if o.Threshold > 1 {
		o.Threshold = 1
	}
	if o.Threshold == 0 {
		o.Threshold = defaults.Threshold
	}
	if o.RootMargin == "" {
		o.RootMargin = defaults.RootMargin
	}

	return o
}

func (o ObserverOptions) key() string {
	return fmt.Sprintf("%.4f|%s|%s", o.Threshold, o.RootMargin, o.Root)
}

// NativeObserver is the host's viewport-intersection primitive.
type NativeObserver interface {
	Observe(el ElementID)
	Unobserve(el ElementID)
	Disconnect()
}

// ObserverFactory creates native observers lazily, one per distinct
// option set. deliver is the pool's dispatch entry point.
type ObserverFactory interface {
	NewObserver(deliver func([]IntersectionEntry), opts ObserverOptions) NativeObserver
}

type observerEntry struct {
	key          string
	native       NativeObserver
	callbacks    map[ElementID]map[uint64]IntersectionCallback
	lastDispatch time.Time
}

// ObserverPool shares native intersection observers across callers,
// keyed by serialized options, with dispatch throttled to once per
// frame budget per key. The platform batches per frame already; the
// throttle is a second line of defense.
type ObserverPool struct {
	factory  ObserverFactory
	now      func() time.Time
	defaults ObserverOptions

	mu      sync.Mutex
	entries map[string]*observerEntry
	nextSub uint64
}

// NewObserverPool builds a pool over the host factory. A nil factory
// degrades every Observe to a no-op unsubscribe: visibility gating is
// simply unavailable, never an error.
func NewObserverPool(factory ObserverFactory, defaults ObserverOptions, now func() time.Time) *ObserverPool {
	if now == nil {
		now = time.Now
	}
	if defaults.Threshold == 0 {
		defaults.Threshold = defaultObserverThreshold
	}
	if defaults.RootMargin == "" {
		defaults.RootMargin = defaultObserverRootMargin
	}

	return &ObserverPool{
		factory:  factory,
		now:      now,
		defaults: defaults,
		entries:  make(map[string]*observerEntry),
	}
}

// Observe registers cb for the element's visibility changes and returns
// an idempotent unsubscribe. The native observer for the option set is
// created on first use and persists for reuse; the element is unobserved
// only when its callback set empties.
func (p *ObserverPool) Observe(el ElementID, cb IntersectionCallback, opts ObserverOptions) func() {
	if p.factory == nil || cb == nil || el.IsZero() {
		return func() {}
	}

	opts = opts.normalized(p.defaults)
	key := opts.key()

	p.mu.Lock()
	e, ok := p.entries[key]
	if !ok {
		e = &observerEntry{
			key:       key,
			callbacks: make(map[ElementID]map[uint64]IntersectionCallback),
		}
		e.native = p.factory.NewObserver(func(entries []IntersectionEntry) {
			p.dispatch(key, entries)
		}, opts)
		p.entries[key] = e
	}

	set, seen := e.callbacks[el]
	if !seen {
		set = make(map[uint64]IntersectionCallback)
		e.callbacks[el] = set
	}
	p.nextSub++
	sub := p.nextSub
	set[sub] = cb
	p.mu.Unlock()

	if !seen {
		e.native.Observe(el)
	}

	var once sync.Once

	return func() {
		once.Do(func() { p.remove(key, el, sub) })
	}
}

// ObserverCount reports how many native observers exist. One per
// distinct option set, regardless of callback count.
func (p *ObserverPool) ObserverCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.entries)
}

func (p *ObserverPool) remove(key string, el ElementID, sub uint64) {
	p.mu.Lock()
	e, ok := p.entries[key]
	if !ok {
		p.mu.Unlock()
		return
	}

	set, ok := e.callbacks[el]
	if ok {
		delete(set, sub)
	}

	var unobserve bool
	if ok && len(set) == 0 {
		delete(e.callbacks, el)
		unobserve = true
	}
	native := e.native
	p.mu.Unlock()

	if unobserve {
		native.Unobserve(el)
	}
}

func (p *ObserverPool) dispatch(key string, entries []IntersectionEntry) {
	p.mu.Lock()
	e, ok := p.entries[key]
	if !ok {
		p.mu.Unlock()
		return
	}

	now := p.now()
	if !e.lastDispatch.IsZero() && now.Sub(e.lastDispatch) < FrameBudget {
		p.mu.Unlock()
		return
	}
	e.lastDispatch = now

	type delivery struct {
		cb    IntersectionCallback
		entry IntersectionEntry
	}
	var deliveries []delivery
	for _, entry := range entries {
		for _, cb := range e.callbacks[entry.Element] {
			deliveries = append(deliveries, delivery{cb: cb, entry: entry})
		}
	}
	p.mu.Unlock()

	for _, d := range deliveries {
		d.cb(d.entry)
	}
}
