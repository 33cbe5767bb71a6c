package motiongov

import (
	"sync"
	"time"
)

type batch struct {
	order     []uint64
	callbacks map[uint64]func()
}

// BatchScheduler coalesces many independent "run before next paint"
// callbacks into one frame tick, for scroll-linked effects that would
// otherwise each schedule their own frame. Pure coalescing: no priority
// or capacity semantics.
type BatchScheduler struct {
	clock FrameClock

	mu         sync.Mutex
	batches    map[string]*batch
	batchOrder []string
	pending    bool
	nextID     uint64
}

func NewBatchScheduler(clock FrameClock) *BatchScheduler {
	return &BatchScheduler{
		clock:   clock,
		batches: make(map[string]*batch),
	}
}

// AddToBatch adds cb to the named batch and schedules one frame tick if
// none is pending. The returned remove drops just this callback and is
// idempotent. Callbacks stay in their batch across flushes until
// removed; batches persist empty for reuse.
func (s *BatchScheduler) AddToBatch(batchID string, cb func()) (remove func()) {
	if cb == nil || s.clock == nil {
		return func() {}
	}

	s.mu.Lock()
	b, ok := s.batches[batchID]
	if !ok {
		b = &batch{callbacks: make(map[uint64]func())}
		s.batches[batchID] = b
		s.batchOrder = append(s.batchOrder, batchID)
	}

	s.nextID++
	id := s.nextID
	b.callbacks[id] = cb
	b.order = append(b.order, id)

	schedule := !s.pending
	s.pending = true
	s.mu.Unlock()

	if schedule {
		s.clock.RequestFrame(s.flush)
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(b.callbacks, id)
			s.mu.Unlock()
		})
	}
}

// Pending reports whether a flush tick is scheduled.
func (s *BatchScheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pending
}

func (s *BatchScheduler) flush(_ time.Time) {
	s.mu.Lock()
	s.pending = false

	var run []func()
	for _, batchID := range s.batchOrder {
		b := s.batches[batchID]
		// Compact out removed callbacks while collecting.
		kept := b.order[:0]
		for _, id := range b.order {
			if cb, ok := b.callbacks[id]; ok {
				run = append(run, cb)
				kept = append(kept, id)
			}
		}
		b.order = kept
	}
	s.mu.Unlock()

	for _, cb := range run {
		cb()
	}
}
