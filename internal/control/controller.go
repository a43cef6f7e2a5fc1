// Package control drives strategy lifecycle: creation from the template,
// run/stop through the bridge, backtests and data range lookups.
package control

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tradesim/internal/bridge"
	"tradesim/internal/events"
	"tradesim/internal/model"
	"tradesim/internal/store"
)

var (
	// ErrNotFound is returned when a strategy id is unknown.
	ErrNotFound = errors.New("strategy not found")
	// ErrIncomplete is returned when a strategy is missing required fields.
	ErrIncomplete = errors.New("strategy configuration is incomplete")
)

// Controller mediates between the store and the bridge for strategy
// operations. Status only flips on an acknowledged bridge response.
type Controller struct {
	bridge   *bridge.Client
	store    *store.Store
	bus      *events.Bus
	defaults Defaults
}

// New builds a controller using the given strategy defaults template.
func New(b *bridge.Client, st *store.Store, bus *events.Bus, defaults Defaults) *Controller {
	return &Controller{bridge: b, store: st, bus: bus, defaults: defaults}
}

// Create adds a new strategy from the template and persists it.
func (c *Controller) Create(name string, pairs [2]string, magic int64) model.Strategy {
	s := c.defaults.NewStrategy()
	s.Name = name
	s.CurrencyPairs = pairs
	s.MagicNumber = magic
	c.store.MutateStrategies(func(list []model.Strategy) []model.Strategy {
		return append(list, s)
	})
	return s
}

// Update replaces the stored strategy with the same id. The status field is
// kept from the stored copy; only Run and Stop may change it.
func (c *Controller) Update(s model.Strategy) (model.Strategy, error) {
	found := false
	c.store.MutateStrategies(func(list []model.Strategy) []model.Strategy {
		for i, cur := range list {
			if cur.ID != s.ID {
				continue
			}
			s.Status = cur.Status
			list[i] = s
			found = true
			break
		}
		return list
	})
	if !found {
		return model.Strategy{}, ErrNotFound
	}
	return s, nil
}

// Delete removes a strategy. Active strategies must be stopped first.
func (c *Controller) Delete(id string) error {
	err := ErrNotFound
	c.store.MutateStrategies(func(list []model.Strategy) []model.Strategy {
		for i, cur := range list {
			if cur.ID != id {
				continue
			}
			if cur.Status == model.StatusActive {
				err = fmt.Errorf("strategy %s is active, stop it before deleting", cur.Name)
				return list
			}
			err = nil
			return append(list[:i], list[i+1:]...)
		}
		return list
	})
	return err
}

// Run submits a strategy to the bridge. The strategy must be complete; its
// status flips to active only when the bridge acknowledges with "success".
// The store's loading flag is held for the duration of the call.
func (c *Controller) Run(ctx context.Context, id string) error {
	s, ok := c.store.StrategyByID(id)
	if !ok {
		return ErrNotFound
	}
	if !s.IsComplete() {
		return ErrIncomplete
	}

	c.store.SetIsLoading(true)
	defer c.store.SetIsLoading(false)

	status, err := c.bridge.StartStrategy(ctx, s)
	if err != nil {
		return err
	}
	if status != "success" {
		return fmt.Errorf("bridge rejected strategy start: %s", status)
	}

	c.store.UpdateStrategyStatus(id, model.StatusActive)
	c.publishStatus(id, model.StatusActive)
	log.Printf("strategy %s (%s) running", s.Name, id)
	return nil
}

// Stop asks the bridge to halt a strategy. Status flips to inactive only on
// a "stopped" acknowledgement.
func (c *Controller) Stop(ctx context.Context, id string) error {
	s, ok := c.store.StrategyByID(id)
	if !ok {
		return ErrNotFound
	}

	c.store.SetIsLoading(true)
	defer c.store.SetIsLoading(false)

	status, err := c.bridge.StopStrategy(ctx, s)
	if err != nil {
		return err
	}
	if status != "stopped" {
		return fmt.Errorf("bridge did not confirm stop: %s", status)
	}

	c.store.UpdateStrategyStatus(id, model.StatusInactive)
	c.publishStatus(id, model.StatusInactive)
	log.Printf("strategy %s (%s) stopped", s.Name, id)
	return nil
}

// Backtest runs a historical simulation. It never touches live status.
func (c *Controller) Backtest(ctx context.Context, id, start, end string) (bridge.BacktestReport, error) {
	s, ok := c.store.StrategyByID(id)
	if !ok {
		return nil, ErrNotFound
	}
	if !s.IsComplete() {
		return nil, ErrIncomplete
	}
	from, err := time.Parse("2006-01-02", start)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	to, err := time.Parse("2006-01-02", end)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	if !from.Before(to) {
		return nil, fmt.Errorf("start date %s must be before end date %s", start, end)
	}

	c.store.SetStrategyToBackTest(&s)
	return c.bridge.Backtest(ctx, s, start, end)
}

// DataRanges reports the available history for each of the strategy's pairs.
// When both legs share a symbol only one lookup is made.
func (c *Controller) DataRanges(ctx context.Context, id string) ([]bridge.DataRange, error) {
	s, ok := c.store.StrategyByID(id)
	if !ok {
		return nil, ErrNotFound
	}

	seen := make(map[string]bool, 2)
	ranges := make([]bridge.DataRange, 0, 2)
	for _, symbol := range s.CurrencyPairs {
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true
		dr, err := c.bridge.DataRange(ctx, symbol, s.TimeFrame)
		if err != nil {
			return nil, fmt.Errorf("data range for %s: %w", symbol, err)
		}
		ranges = append(ranges, *dr)
	}
	return ranges, nil
}

// ResumeActive re-submits every active strategy to the bridge. It runs at
// boot when the persisted state says strategies were live on shutdown. A
// single failure is logged and does not stop the others from resuming.
func (c *Controller) ResumeActive(ctx context.Context) {
	if !c.store.StartActiveStrategy() {
		return
	}
	for _, s := range c.store.Strategies() {
		if s.Status != model.StatusActive {
			continue
		}
		status, err := c.bridge.StartStrategy(ctx, s)
		if err != nil {
			log.Printf("resume strategy %s: %v", s.Name, err)
			continue
		}
		if status != "success" {
			log.Printf("resume strategy %s: bridge answered %q", s.Name, status)
			continue
		}
		log.Printf("resumed strategy %s (%s)", s.Name, s.ID)
	}
}

func (c *Controller) publishStatus(id, status string) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(events.EventStrategyStatus, events.StatusPayload{StrategyID: id, Status: status})
}
