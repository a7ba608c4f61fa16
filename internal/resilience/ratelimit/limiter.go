// Package ratelimit provides an adaptive token-bucket limiter for outbound
// LLM provider calls, built on golang.org/x/time/rate the same way the
// teacher's internal/infra/notifier/ratelimit.go wraps it — this
// generalizes that fixed-rate wrapper into one whose rate self-adjusts to
// a downstream provider's observed error rate.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Config governs one Limiter instance.
type Config struct {
	Name string

	// InitialRate and Burst seed the token bucket.
	InitialRate float64
	Burst       int

	// MinRate is the floor the adaptive decrease will not go below.
	MinRate float64

	// ErrorThreshold is the windowed error rate (0..1) above which, combined
	// with FailureThreshold consecutive failures, the rate is decreased.
	ErrorThreshold float64

	// FailureThreshold is the consecutive-failure count required alongside
	// ErrorThreshold before decreasing the rate.
	FailureThreshold int

	// WindowDuration is how often the adaptive evaluation runs.
	WindowDuration time.Duration

	// DecreasePct and RecoveryPct are the per-window adjustment fractions
	// (spec: -25% on sustained errors, +10%/window on sustained success).
	DecreasePct float64
	RecoveryPct float64
}

func DefaultConfig(name string) Config {
	return Config{
		Name:              name,
		InitialRate:       5.0,
		Burst:             5,
		MinRate:           0.5,
		ErrorThreshold:    0.2,
		FailureThreshold:  3,
		WindowDuration:    30 * time.Second,
		DecreasePct:       0.25,
		RecoveryPct:       0.10,
	}
}

// AcquireResult is the outcome of an Acquire call.
type AcquireResult string

const (
	AcquireOK      AcquireResult = "ok"
	AcquireTimeout AcquireResult = "timeout"
)

// Stats is a point-in-time snapshot of the limiter's adaptive state.
type Stats struct {
	CurrentRate         float64
	ConfiguredRate       float64
	State                string // "normal" or "degraded"
	WindowErrorRate      float64
	ConsecutiveFailures  int
	Transitions          int64
}

// Limiter is an adaptive token-bucket rate limiter.
type Limiter struct {
	cfg     Config
	limiter *rate.Limiter

	mu                  sync.Mutex
	currentRate         float64
	windowSuccess       int
	windowFailure       int
	consecutiveFailures int
	transitions         int64

	stop chan struct{}
	wg   sync.WaitGroup
}

func New(cfg Config) *Limiter {
	if cfg.WindowDuration <= 0 {
		cfg = DefaultConfig(cfg.Name)
	}
	l := &Limiter{
		cfg:         cfg,
		limiter:     rate.NewLimiter(rate.Limit(cfg.InitialRate), cfg.Burst),
		currentRate: cfg.InitialRate,
		stop:        make(chan struct{}),
	}
	l.wg.Add(1)
	go l.adjustLoop()
	return l
}

// Acquire blocks for up to timeout for one token.
func (l *Limiter) Acquire(ctx context.Context, timeout time.Duration) (AcquireResult, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := l.limiter.Wait(waitCtx); err != nil {
		if waitCtx.Err() != nil {
			return AcquireTimeout, nil
		}
		return AcquireTimeout, fmt.Errorf("ratelimit: acquire: %w", err)
	}
	return AcquireOK, nil
}

// RecordResult feeds one call outcome into the current evaluation window.
func (l *Limiter) RecordResult(success bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if success {
		l.windowSuccess++
		l.consecutiveFailures = 0
	} else {
		l.windowFailure++
		l.consecutiveFailures++
	}
}

// Stop ends the background adjustment loop.
func (l *Limiter) Stop() {
	close(l.stop)
	l.wg.Wait()
}

func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		CurrentRate:         l.currentRate,
		ConfiguredRate:      l.cfg.InitialRate,
		State:               l.stateLocked(),
		WindowErrorRate:     l.errorRateLocked(),
		ConsecutiveFailures: l.consecutiveFailures,
		Transitions:         atomic.LoadInt64(&l.transitions),
	}
}

func (l *Limiter) stateLocked() string {
	if l.currentRate < l.cfg.InitialRate {
		return "degraded"
	}
	return "normal"
}

func (l *Limiter) errorRateLocked() float64 {
	total := l.windowSuccess + l.windowFailure
	if total == 0 {
		return 0
	}
	return float64(l.windowFailure) / float64(total)
}

// adjustLoop periodically evaluates the current window and smoothly
// adjusts the token bucket rate — a fixed percentage step per window,
// not a jump straight to a computed target.
func (l *Limiter) adjustLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(l.cfg.WindowDuration)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.evaluateWindow()
		}
	}
}

func (l *Limiter) evaluateWindow() {
	l.mu.Lock()
	defer l.mu.Unlock()

	errorRate := l.errorRateLocked()
	degraded := errorRate > l.cfg.ErrorThreshold && l.consecutiveFailures >= l.cfg.FailureThreshold

	newRate := l.currentRate
	if degraded {
		newRate = l.currentRate * (1 - l.cfg.DecreasePct)
		if newRate < l.cfg.MinRate {
			newRate = l.cfg.MinRate
		}
	} else if l.windowSuccess > 0 && l.windowFailure == 0 && l.currentRate < l.cfg.InitialRate {
		newRate = l.currentRate * (1 + l.cfg.RecoveryPct)
		if newRate > l.cfg.InitialRate {
			newRate = l.cfg.InitialRate
		}
	}

	if newRate != l.currentRate {
		l.currentRate = newRate
		l.limiter.SetLimit(rate.Limit(newRate))
		atomic.AddInt64(&l.transitions, 1)
	}

	l.windowSuccess = 0
	l.windowFailure = 0
}
