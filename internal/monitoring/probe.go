// Package monitoring watches database reachability in the background and
// raises webhook alerts when it degrades.
package monitoring

import (
	"context"
	"time"

	"github.com/brightpath/studycoach/internal/store"
)

// Snapshot holds a point-in-time view of store health.
type Snapshot struct {
	StoreUp      bool          `json:"store_up"`
	StoreLatency time.Duration `json:"store_latency"`
	Error        string        `json:"error,omitempty"`
	CollectedAt  time.Time     `json:"collected_at"`
}

// Prober checks whether the store answers within a bounded window.
type Prober struct {
	store   store.Store
	timeout time.Duration
}

// NewProber creates a store health prober.
func NewProber(st store.Store, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Prober{store: st, timeout: timeout}
}

// Probe pings the store once. It never returns an error; failures are
// recorded in the snapshot.
func (p *Prober) Probe(ctx context.Context) *Snapshot {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now().UTC()
	snap := &Snapshot{CollectedAt: start}

	if err := p.store.Ping(ctx); err != nil {
		snap.Error = err.Error()
		snap.StoreLatency = time.Since(start)
		return snap
	}

	snap.StoreUp = true
	snap.StoreLatency = time.Since(start)
	return snap
}
