// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinsync

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterStaleAge        = 10 * time.Minute
	limiterCleanupInterval = time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter is a per-IP token bucket whose idle entries are evicted by a
// background goroutine until Stop is called.
type ipLimiter struct {
	mu       sync.Mutex
	entries  map[string]*limiterEntry
	limit    rate.Limit
	burst    int
	staleAge time.Duration
	stop     chan struct{}
	once     sync.Once
}

func newIPLimiter(r float64, burst int, staleAge, interval time.Duration) *ipLimiter {
	l := &ipLimiter{
		entries:  make(map[string]*limiterEntry),
		limit:    rate.Limit(r),
		burst:    burst,
		staleAge: staleAge,
		stop:     make(chan struct{}),
	}
	go l.evictLoop(interval)
	return l
}

// Allow reports whether ip may open another connection now.
func (l *ipLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[ip] = e
	}
	e.lastSeen = time.Now()
	return e.limiter.Allow()
}

func (l *ipLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Stop ends eviction. It is safe to call more than once.
func (l *ipLimiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

func (l *ipLimiter) evictLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case now := <-ticker.C:
			l.evict(now)
		}
	}
}

func (l *ipLimiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, e := range l.entries {
		if now.Sub(e.lastSeen) > l.staleAge {
			delete(l.entries, ip)
		}
	}
}
