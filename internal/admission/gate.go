// Package admission implements the per-client sliding-window rate limiter
// that gates intake requests.
package admission

import (
	"context"
	"sync"
	"time"
)

// Admitter decides whether an intake request from a client identity is
// accepted. Implementations must make the check-then-record sequence atomic
// per identity.
type Admitter interface {
	Allow(ctx context.Context, clientID string) (bool, error)
}

// Gate is the in-process sliding-window admitter. It tracks, per client
// identity, the timestamps of admitted requests within the trailing window.
// The identity map is capped: when full, the least-recently-seen identity
// is evicted.
type Gate struct {
	mu            sync.Mutex
	limit         int
	window        time.Duration
	maxIdentities int
	entries       map[string]*gateEntry
	now           func() time.Time
}

type gateEntry struct {
	timestamps []time.Time
	lastSeen   time.Time
}

type GateOption func(*Gate)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) { g.now = now }
}

// WithMaxIdentities bounds the number of tracked client identities.
func WithMaxIdentities(n int) GateOption {
	return func(g *Gate) { g.maxIdentities = n }
}

func NewGate(limit int, window time.Duration, opts ...GateOption) *Gate {
	g := &Gate{
		limit:         limit,
		window:        window,
		maxIdentities: 10000,
		entries:       make(map[string]*gateEntry),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Allow prunes timestamps older than the trailing window, rejects without
// recording when the remaining count has reached the limit, and otherwise
// records now and accepts. The whole read-modify-write is one critical
// section so concurrent requests from the same identity cannot over-admit.
func (g *Gate) Allow(_ context.Context, clientID string) (bool, error) {
	now := g.now()
	cutoff := now.Add(-g.window)

	g.mu.Lock()
	defer g.mu.Unlock()

	ent, ok := g.entries[clientID]
	if !ok {
		if len(g.entries) >= g.maxIdentities {
			g.evictOldest()
		}
		ent = &gateEntry{}
		g.entries[clientID] = ent
	}
	ent.lastSeen = now

	kept := ent.timestamps[:0]
	for _, ts := range ent.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	ent.timestamps = kept

	if len(ent.timestamps) >= g.limit {
		return false, nil
	}

	ent.timestamps = append(ent.timestamps, now)
	return true, nil
}

// evictOldest removes the least-recently-seen identity. Caller holds the
// lock.
func (g *Gate) evictOldest() {
	var oldestKey string
	var oldestSeen time.Time
	for k, ent := range g.entries {
		if oldestKey == "" || ent.lastSeen.Before(oldestSeen) {
			oldestKey = k
			oldestSeen = ent.lastSeen
		}
	}
	if oldestKey != "" {
		delete(g.entries, oldestKey)
	}
}

// TrackedIdentities returns the number of client identities currently held.
func (g *Gate) TrackedIdentities() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}
