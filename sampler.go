package motiongov

import (
	"context"
	"math"
	"runtime"
	"sync"
	"time"

	"codeberg.org/vireo/motiongov/internal/logger"
)

const (
	frameWindowSize   = 60
	recomputeInterval = 10

	// Baseline frame budget in milliseconds at 60Hz.
	baseFrameTimeMs = 1000.0 / 60.0

	optimalFPSFactor   = 0.9
	reduceFPSFactor    = 0.7
	optimalFrameFactor = 1.1
	reduceMemoryFactor = 1.2

	bytesPerMB = 1024 * 1024
)

// PerformanceState is the sampler's view of rendering health, recomputed
// once per sampling window. It is a value snapshot: read-only everywhere
// outside the sampler.
type PerformanceState struct {
	FPS                    int
	FrameTimeMs            float64
	MemoryUsageMB          float64
	ActiveAnimations       int
	IsOptimal              bool
	ShouldReduceAnimations bool
}

// MemoryReader is an optional host hint for memory usage. A nil reader
// degrades to 0MB, which never breaches a positive threshold.
type MemoryReader interface {
	UsageMB() float64
}

// RuntimeMemoryReader reports the process heap via runtime.MemStats.
type RuntimeMemoryReader struct{}

func (RuntimeMemoryReader) UsageMB() float64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return float64(ms.HeapAlloc) / bytesPerMB
}

// SamplerConfig carries the thresholds the sampler derives state from.
type SamplerConfig struct {
	TargetFPS           int
	MemoryThresholdMB   float64
	MaxActiveAnimations int
}

// FrameSampler measures per-frame timing on a self-rescheduling frame
// loop. Frame deltas land in a 60-slot ring buffer; every 10 samples the
// buffer mean is folded into a fresh PerformanceState.
type FrameSampler struct {
	clock       FrameClock
	memory      MemoryReader
	activeCount func() int
	onSample    func(PerformanceState)

	targetFPS         int
	memoryThresholdMB float64
	maxActive         int

	mu           sync.RWMutex
	window       [frameWindowSize]float64
	size         int
	head         int
	sinceCompute int
	lastTick     time.Time
	hasLast      bool
	state        PerformanceState
	cancel       func()
	running      bool
}

// NewFrameSampler builds a sampler against the given clock. activeCount
// reports the admission registry's live count at recompute time; nil
// means 0. onSample, if set, receives every freshly computed state.
func NewFrameSampler(clock FrameClock, cfg SamplerConfig, memory MemoryReader,
	activeCount func() int, onSample func(PerformanceState),
) *FrameSampler {
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = defaultTargetFPS
	}
	if cfg.MemoryThresholdMB <= 0 {
		cfg.MemoryThresholdMB = defaultMemoryThresholdMB
	}
	if cfg.MaxActiveAnimations <= 0 {
		cfg.MaxActiveAnimations = defaultMaxActiveAnimations
	}

	return &FrameSampler{
		clock:             clock,
		memory:            memory,
		activeCount:       activeCount,
		onSample:          onSample,
		targetFPS:         cfg.TargetFPS,
		memoryThresholdMB: cfg.MemoryThresholdMB,
		maxActive:         cfg.MaxActiveAnimations,
		// Optimistic until the first window completes, so early
		// registrations are not refused on no data.
		state: PerformanceState{
			FPS:         cfg.TargetFPS,
			FrameTimeMs: 1000.0 / float64(cfg.TargetFPS),
			IsOptimal:   true,
		},
	}
}

// Start begins the frame loop. Safe to call once; a running sampler
// ignores further Starts.
func (s *FrameSampler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.hasLast = false
	s.mu.Unlock()

	s.schedule()
}

// Stop halts the loop. Idempotent.
func (s *FrameSampler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.running = false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Run drives the sampler until ctx is cancelled.
func (s *FrameSampler) Run(ctx context.Context) {
	s.Start()
	<-ctx.Done()
	s.Stop()
}

// State returns the current performance snapshot.
func (s *FrameSampler) State() PerformanceState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

// RecordSample feeds one externally measured frame duration, for hosts
// that own their frame timing instead of the sampler's clock loop.
func (s *FrameSampler) RecordSample(frameTime time.Duration) {
	s.record(float64(frameTime) / float64(time.Millisecond))
}

func (s *FrameSampler) schedule() {
	cancel := s.clock.RequestFrame(s.tick)

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		cancel()
		return
	}
	s.cancel = cancel
	s.mu.Unlock()
}

func (s *FrameSampler) tick(now time.Time) {
	s.mu.Lock()
	running := s.running
	if running {
		if s.hasLast {
			delta := now.Sub(s.lastTick)
			s.mu.Unlock()
			s.record(float64(delta) / float64(time.Millisecond))
			s.mu.Lock()
		}
		s.lastTick = now
		s.hasLast = true
	}
	s.mu.Unlock()

	if running {
		s.schedule()
	}
}

func (s *FrameSampler) record(frameTimeMs float64) {
	var (
		computed PerformanceState
		fresh    bool
	)

	s.mu.Lock()
	s.window[s.head] = frameTimeMs
	s.head = (s.head + 1) % frameWindowSize
	if s.size < frameWindowSize {
		s.size++
	}

	s.sinceCompute++
	if s.sinceCompute >= recomputeInterval {
		s.sinceCompute = 0
		computed = s.recomputeLocked()
		s.state = computed
		fresh = true
	}
	s.mu.Unlock()

	if fresh && s.onSample != nil {
		s.onSample(computed)
	}
}

func (s *FrameSampler) recomputeLocked() PerformanceState {
	var sum float64
	for i := 0; i < s.size; i++ {
		sum += s.window[i]
	}
	avg := sum / float64(s.size)

	fps := 0
	if avg > 0 {
		fps = int(math.Round(1000.0 / avg))
	}

	var memMB float64
	if s.memory != nil {
		memMB = s.memory.UsageMB()
	}

	active := 0
	if s.activeCount != nil {
		active = s.activeCount()
	}

	state := PerformanceState{
		FPS:              fps,
		FrameTimeMs:      avg,
		MemoryUsageMB:    memMB,
		ActiveAnimations: active,
		IsOptimal: float64(fps) >= optimalFPSFactor*float64(s.targetFPS) &&
			avg <= optimalFrameFactor*baseFrameTimeMs &&
			memMB <= s.memoryThresholdMB,
		ShouldReduceAnimations: float64(fps) < reduceFPSFactor*float64(s.targetFPS) ||
			active > s.maxActive ||
			memMB > reduceMemoryFactor*s.memoryThresholdMB,
	}

	if state.ShouldReduceAnimations && !s.state.ShouldReduceAnimations {
		logger.Debug().
			Int("fps", fps).
			Float64("frame_time_ms", avg).
			Float64("memory_mb", memMB).
			Int("active_animations", active).
			Msg("Entering reduced-motion state")
	}

	return state
}
