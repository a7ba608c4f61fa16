// Package semaphore provides a weighted concurrency limiter for the
// analysis orchestrator, wrapping golang.org/x/sync/semaphore the way the
// rest of this module wraps its x/sync sibling, errgroup, for bounded
// fan-out elsewhere (ingest, scheduler).
package semaphore

import (
	"context"
	"sync"

	xsemaphore "golang.org/x/sync/semaphore"
)

// Semaphore is a fixed-capacity concurrency limiter with utilization
// telemetry: active count, available, peak depth, utilization%.
type Semaphore struct {
	capacity int64
	sem      *xsemaphore.Weighted

	mu     sync.Mutex
	active int64
	peak   int64
}

func New(capacity int64) *Semaphore {
	return &Semaphore{capacity: capacity, sem: xsemaphore.NewWeighted(capacity)}
}

// Acquire blocks until a slot is free or ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	s.mu.Lock()
	s.active++
	if s.active > s.peak {
		s.peak = s.active
	}
	s.mu.Unlock()
	return nil
}

// TryAcquire attempts to acquire a slot without blocking, reporting
// whether it succeeded. The run governor uses this as the pre-flight
// saturation check before admitting new work.
func (s *Semaphore) TryAcquire() bool {
	if !s.sem.TryAcquire(1) {
		return false
	}
	s.mu.Lock()
	s.active++
	if s.active > s.peak {
		s.peak = s.active
	}
	s.mu.Unlock()
	return true
}

// Release frees one slot.
func (s *Semaphore) Release() {
	s.mu.Lock()
	s.active--
	s.mu.Unlock()
	s.sem.Release(1)
}

// Stats is a point-in-time snapshot of semaphore utilization.
type Stats struct {
	Capacity    int64
	Active      int64
	Available   int64
	Peak        int64
	Utilization float64
}

func (s *Semaphore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	util := 0.0
	if s.capacity > 0 {
		util = float64(s.active) / float64(s.capacity)
	}
	return Stats{
		Capacity:    s.capacity,
		Active:      s.active,
		Available:   s.capacity - s.active,
		Peak:        s.peak,
		Utilization: util,
	}
}

// IsSaturated reports whether the semaphore is at full capacity, for the
// governor's pre-flight admission check.
func (s *Semaphore) IsSaturated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active >= s.capacity
}
