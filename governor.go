package motiongov

import (
	"context"
	"sync"

	"codeberg.org/vireo/motiongov/internal/logger"
	"codeberg.org/vireo/motiongov/internal/telemetry"
)

const (
	defaultTargetFPS           = 60
	defaultMaxActiveAnimations = 12
	defaultMemoryThresholdMB   = 120.0
	defaultGPULayerCeiling     = 20
	defaultParamPoolCap        = 10
	defaultObserverThreshold   = 0.1
	defaultObserverRootMargin  = "50px"
)

// Config carries the recognized governor options. Zero fields fall back
// to the documented defaults.
type Config struct {
	TargetFPS             int
	MaxActiveAnimations   int
	MemoryThresholdMB     float64
	EnableGPUAcceleration bool
	GPULayerCeiling       int
	ObserverDefaults      ObserverOptions
}

func DefaultConfig() Config {
	return Config{
		TargetFPS:             defaultTargetFPS,
		MaxActiveAnimations:   defaultMaxActiveAnimations,
		MemoryThresholdMB:     defaultMemoryThresholdMB,
		EnableGPUAcceleration: true,
		GPULayerCeiling:       defaultGPULayerCeiling,
		ObserverDefaults: ObserverOptions{
			Threshold:  defaultObserverThreshold,
			RootMargin: defaultObserverRootMargin,
		},
	}
}

// Option customizes a Governor at construction.
type Option func(*Governor)

// WithFrameClock supplies the host's frame-tick source. Without it the
// governor runs its own ticker at the target frame rate.
func WithFrameClock(clock FrameClock) Option {
	return func(g *Governor) { g.clock = clock }
}

// WithSurface supplies the host's style mutation surface. Without one,
// GPU layer promotion is unavailable and every EnableGPULayer refuses.
func WithSurface(surface Surface) Option {
	return func(g *Governor) { g.surface = surface }
}

// WithObserverFactory supplies the host's intersection primitive.
// Without one, Observe degrades to a no-op unsubscribe.
func WithObserverFactory(factory ObserverFactory) Option {
	return func(g *Governor) { g.observerFactory = factory }
}

// WithMemoryReader supplies the optional memory-usage hint. Absent, the
// sampler reports 0MB.
func WithMemoryReader(memory MemoryReader) Option {
	return func(g *Governor) { g.memory = memory }
}

// WithTelemetry records one performance snapshot per sampling window
// into a SQLite database at dbPath.
func WithTelemetry(dbPath string) Option {
	return func(g *Governor) { g.telemetryDB = dbPath }
}

// Governor is an explicitly constructed root context owning one instance
// of every component, so multiple independent governors can coexist
// without shared global state.
type Governor struct {
	cfg             Config
	clock           FrameClock
	ownClock        *TickerClock
	surface         Surface
	observerFactory ObserverFactory
	memory          MemoryReader
	telemetryDB     string

	arena     *ElementArena
	sampler   *FrameSampler
	registry  *AdmissionRegistry
	layers    *LayerManager
	observers *ObserverPool
	batches   *BatchScheduler
	params    *ParamPool
	collector telemetry.Collector

	closeOnce sync.Once
}

// New constructs a governor. The only failure mode is telemetry storage
// initialization; everything else has a working default.
func New(cfg Config, opts ...Option) (*Governor, error) {
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = defaultTargetFPS
	}
	if cfg.MaxActiveAnimations <= 0 {
		cfg.MaxActiveAnimations = defaultMaxActiveAnimations
	}
	if cfg.MemoryThresholdMB <= 0 {
		cfg.MemoryThresholdMB = defaultMemoryThresholdMB
	}
	if cfg.GPULayerCeiling <= 0 {
		cfg.GPULayerCeiling = defaultGPULayerCeiling
	}

	g := &Governor{cfg: cfg}
	for _, opt := range opts {
		opt(g)
	}

	if g.clock == nil {
		g.ownClock = NewTickerClock(FrameBudget)
		g.clock = g.ownClock
	}

	collector, err := telemetry.NewService(telemetry.Config{
		Enabled: g.telemetryDB != "",
		DBPath:  g.telemetryDB,
	})
	if err != nil {
		return nil, err
	}
	g.collector = collector

	g.arena = NewElementArena()
	g.registry = NewAdmissionRegistry(cfg.MaxActiveAnimations,
		func() PerformanceState { return g.sampler.State() }, g.clock.Now)
	g.sampler = NewFrameSampler(g.clock, SamplerConfig{
		TargetFPS:           cfg.TargetFPS,
		MemoryThresholdMB:   cfg.MemoryThresholdMB,
		MaxActiveAnimations: cfg.MaxActiveAnimations,
	}, g.memory, g.registry.ActiveCount, g.onSample)
	g.layers = NewLayerManager(g.surface, cfg.GPULayerCeiling,
		cfg.EnableGPUAcceleration, g.clock.Now)
	g.observers = NewObserverPool(g.observerFactory, cfg.ObserverDefaults, g.clock.Now)
	g.batches = NewBatchScheduler(g.clock)
	g.params = NewParamPool(defaultParamPoolCap)

	return g, nil
}

// Run drives the sampler's frame loop until ctx is cancelled.
func (g *Governor) Run(ctx context.Context) {
	g.sampler.Run(ctx)
}

// Close stops the loop, the owned clock if any, and flushes telemetry.
// Idempotent.
func (g *Governor) Close() error {
	var err error
	g.closeOnce.Do(func() {
		g.sampler.Stop()
		if g.ownClock != nil {
			g.ownClock.Stop()
		}
		if cerr := g.collector.Close(); cerr != nil {
			err = cerr
		}
	})

	return err
}

// State returns the current performance snapshot.
func (g *Governor) State() PerformanceState {
	return g.sampler.State()
}

// Register admits or refuses an animation request.
func (g *Governor) Register(id AnimationID, priority Priority) bool {
	return g.registry.Register(id, priority)
}

// Unregister removes an animation registration. Idempotent.
func (g *Governor) Unregister(id AnimationID) {
	g.registry.Unregister(id)
}

// ShouldSkip mirrors the refusal logic without registering.
func (g *Governor) ShouldSkip(priority Priority) bool {
	return g.registry.ShouldSkip(priority)
}

// OptimizeTransition scales base against the current performance state.
func (g *Governor) OptimizeTransition(base Transition) Transition {
	return g.registry.OptimizeTransition(base)
}

// ActiveAnimations returns the live registration count.
func (g *Governor) ActiveAnimations() int {
	return g.registry.ActiveCount()
}

// EnableGPULayer promotes the element to a composited layer.
func (g *Governor) EnableGPULayer(el ElementID, priority Priority) bool {
	return g.layers.EnableGPULayer(el, priority)
}

// DisableGPULayer reverts the promotion. Idempotent.
func (g *Governor) DisableGPULayer(el ElementID) {
	g.layers.DisableGPULayer(el)
}

// ActiveLayerCount returns the number of live promotions.
func (g *Governor) ActiveLayerCount() int {
	return g.layers.ActiveLayerCount()
}

// Observe registers a visibility callback for the element.
func (g *Governor) Observe(el ElementID, cb IntersectionCallback, opts ObserverOptions) func() {
	return g.observers.Observe(el, cb, opts)
}

// AddToBatch coalesces cb into the named before-paint batch.
func (g *Governor) AddToBatch(batchID string, cb func()) func() {
	return g.batches.AddToBatch(batchID, cb)
}

// GetAnimation pops a pooled parameter record for the archetype.
func (g *Governor) GetAnimation(archetype string, overrides ...func(*AnimationParams)) *AnimationParams {
	return g.params.Get(archetype, overrides...)
}

// ReturnAnimation recycles a parameter record.
func (g *Governor) ReturnAnimation(rec *AnimationParams) {
	g.params.Put(rec)
}

// Elements returns the handle arena for host elements.
func (g *Governor) Elements() *ElementArena {
	return g.arena
}

// Clock returns the governor's frame clock.
func (g *Governor) Clock() FrameClock {
	return g.clock
}

// OnVisible arms animate to run when the element enters the viewport and
// admission succeeds. With triggerOnce, the subscription ends at the
// first intersection whether or not admission succeeded: an element
// refused at its only opportunity never animates. Callers wanting
// guaranteed eventual animation keep triggerOnce off and unregister
// themselves.
func (g *Governor) OnVisible(el ElementID, id AnimationID, priority Priority,
	opts ObserverOptions, triggerOnce bool, animate func(),
) (cancel func()) {
	var (
		mu    sync.Mutex
		unsub func()
		done  bool
	)

	stop := func() {
		mu.Lock()
		u := unsub
		unsub = nil
		done = true
		mu.Unlock()
		if u != nil {
			u()
		}
	}

	u := g.observers.Observe(el, func(e IntersectionEntry) {
		if !e.Intersecting {
			return
		}

		mu.Lock()
		fired := done
		mu.Unlock()
		if fired {
			return
		}

		if triggerOnce {
			stop()
		}
		if g.Register(id, priority) {
			animate()
		}
	}, opts)

	mu.Lock()
	if done {
		// Stop raced the subscription; release it.
		mu.Unlock()
		u()
	} else {
		unsub = u
		mu.Unlock()
	}

	return stop
}

func (g *Governor) onSample(state PerformanceState) {
	snapshot := &telemetry.PerformanceSnapshot{
		Timestamp:        g.clock.Now(),
		FPS:              state.FPS,
		FrameTimeMs:      state.FrameTimeMs,
		MemoryUsageMB:    state.MemoryUsageMB,
		ActiveAnimations: state.ActiveAnimations,
		ActiveLayers:     g.layers.ActiveLayerCount(),
		IsOptimal:        state.IsOptimal,
		ShouldReduce:     state.ShouldReduceAnimations,
	}

	if err := g.collector.Record(context.Background(), snapshot); err != nil {
		logger.Warn().Err(err).Msg("failed to record performance snapshot")
	}
}
