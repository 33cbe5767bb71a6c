package motiongov

import (
	"sync"
	"sync/atomic"
	"time"
)

// FrameBudget is the time available per rendered frame at 60Hz before
// perceived stutter (~16.67ms).
const FrameBudget = time.Second / 60

// FrameClock schedules callbacks for the next rendered frame. It is the
// host-platform surface behind the sampler and the batch scheduler; a
// real UI embedding supplies its own implementation, TickerClock and
// ManualClock cover daemons and tests.
type FrameClock interface {
	Now() time.Time

	// RequestFrame schedules cb to run exactly once on the next frame
	// tick. The returned cancel is idempotent and a no-op after the tick.
	RequestFrame(cb func(now time.Time)) (cancel func())
}

type frameRequest struct {
	fn        func(time.Time)
	cancelled atomic.Bool
}

func runRequests(reqs []*frameRequest, now time.Time) {
	for _, r := range reqs {
		if !r.cancelled.Load() {
			r.fn(now)
		}
	}
}

// TickerClock drives frame callbacks off a time.Ticker at a fixed
// interval. All callbacks run on the clock's single goroutine, in the
// order they were requested.
type TickerClock struct {
	mu      sync.Mutex
	pending []*frameRequest
	ticker  *time.Ticker
	done    chan struct{}
	stop    sync.Once
}

// NewTickerClock starts a clock ticking every interval. Non-positive
// intervals fall back to the frame budget.
func NewTickerClock(interval time.Duration) *TickerClock {
	if interval <= 0 {
		interval = FrameBudget
	}

	c := &TickerClock{
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}
	go c.loop()

	return c
}

func (c *TickerClock) loop() {
	for {
		select {
		case <-c.done:
			return
		case now := <-c.ticker.C:
			c.mu.Lock()
			reqs := c.pending
			c.pending = nil
			c.mu.Unlock()

			runRequests(reqs, now)
		}
	}
}

func (c *TickerClock) Now() time.Time {
	return time.Now()
}

func (c *TickerClock) RequestFrame(cb func(now time.Time)) func() {
	r := &frameRequest{fn: cb}

	c.mu.Lock()
	c.pending = append(c.pending, r)
	c.mu.Unlock()

	return func() { r.cancelled.Store(true) }
}

// Stop halts the ticker. Pending callbacks never fire after Stop.
func (c *TickerClock) Stop() {
	c.stop.Do(func() {
		c.ticker.Stop()
		close(c.done)
	})
}

// ManualClock is a deterministic FrameClock for tests and synthetic
// feeds: time only advances when Tick is called, and pending callbacks
// fire synchronously on the caller's goroutine.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []*frameRequest
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *ManualClock) RequestFrame(cb func(now time.Time)) func() {
	r := &frameRequest{fn: cb}

	c.mu.Lock()
	c.pending = append(c.pending, r)
	c.mu.Unlock()

	return func() { r.cancelled.Store(true) }
}

// Tick advances the clock by d and fires all callbacks pending at the
// time of the call. Callbacks scheduled during the tick wait for the
// next one.
func (c *ManualClock) Tick(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	reqs := c.pending
	c.pending = nil
	c.mu.Unlock()

	runRequests(reqs, now)
}
