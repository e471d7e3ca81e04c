// Package ratelimit enforces a minimum interval between actions per key,
// such as one listing or post creation per seller per interval.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is satisfied by both the in-process and the Redis limiter.
type RateLimiter interface {
	AllowContext(ctx context.Context, key string) bool
}

// Limiter tracks the last permitted action per key in memory.
type Limiter struct {
	mu          sync.Mutex
	keys        map[string]time.Time
	minInterval time.Duration
}

// New creates a limiter that permits one action per key every minInterval.
func New(minInterval time.Duration) *Limiter {
	return &Limiter{
		keys:        make(map[string]time.Time),
		minInterval: minInterval,
	}
}

// Allow reports whether key may act now and, if so, records the action.
// A refused call does not move the window.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if last, ok := l.keys[key]; ok && now.Sub(last) < l.minInterval {
		return false
	}
	l.keys[key] = now
	return true
}

// AllowContext is Allow for callers holding a RateLimiter.
func (l *Limiter) AllowContext(_ context.Context, key string) bool {
	return l.Allow(key)
}

// Wait blocks until key may act, then records the action. It returns the
// context error if ctx ends first.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	for {
		l.mu.Lock()
		now := time.Now()
		last, ok := l.keys[key]
		wait := time.Duration(0)
		if ok {
			wait = l.minInterval - now.Sub(last)
		}
		if wait <= 0 {
			l.keys[key] = now
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Reset forgets key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.keys, key)
}

// ResetAll forgets every key.
func (l *Limiter) ResetAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = make(map[string]time.Time)
}

var _ RateLimiter = (*Limiter)(nil)
