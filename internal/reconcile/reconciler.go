// Package reconcile keeps local strategy status consistent with the bridge's
// authoritative position list. Streams are per-strategy and opt-in; position
// existence is the ground truth for "is this strategy actually live".
package reconcile

import (
	"context"
	"log"
	"time"

	"tradesim/internal/bridge"
	"tradesim/internal/events"
	"tradesim/internal/model"
	"tradesim/internal/store"
)

// Reconciler polls the bridge's open positions on a fixed interval and
// promotes any inactive strategy whose magic number appears among them.
type Reconciler struct {
	bridge   *bridge.Client
	store    *store.Store
	bus      *events.Bus
	interval time.Duration
}

// New builds a reconciler polling every interval.
func New(b *bridge.Client, st *store.Store, bus *events.Bus, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Reconciler{bridge: b, store: st, bus: bus, interval: interval}
}

// Start begins the polling loop. It stops when ctx is cancelled. There is no
// backoff: a failed fetch is logged and the next tick retries.
func (r *Reconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.Tick(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
	log.Printf("position reconciler started (interval: %v)", r.interval)
}

// Tick fetches open positions and reconciles strategy status once. Every
// position's magic tag is checked, not just the first, so concurrently live
// strategies are all promoted.
func (r *Reconciler) Tick(ctx context.Context) {
	positions, err := r.bridge.Trades(ctx)
	if err != nil {
		log.Printf("reconciler: fetch trades: %v", err)
		return
	}

	if r.bus != nil {
		r.bus.Publish(events.EventPositions, events.PositionsPayload{Positions: positions})
	}
	if len(positions) == 0 {
		return
	}

	live := make(map[int64]bool, len(positions))
	for _, p := range positions {
		live[p.Magic] = true
	}

	promoted := false
	for _, s := range r.store.Strategies() {
		if s.Status != model.StatusInactive || !live[s.MagicNumber] {
			continue
		}
		// Per-id status flip under the store lock; a strategy deleted
		// since the snapshot was taken is simply not resurrected.
		if !r.store.UpdateStrategyStatus(s.ID, model.StatusActive) {
			continue
		}
		promoted = true
		log.Printf("reconciler: strategy %s (%s) has live positions, marking active", s.Name, s.ID)
		if r.bus != nil {
			r.bus.Publish(events.EventStrategyStatus, events.StatusPayload{
				StrategyID: s.ID,
				Status:     model.StatusActive,
			})
		}
	}
	if promoted {
		r.store.SetStartActiveStrategy(true)
	}
}
