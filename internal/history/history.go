// Package history turns the bridge's flat deal list into per-position trade
// records suitable for the analytics views.
package history

import (
	"sort"

	"tradesim/internal/model"
)

// Trade is one round trip on a position: the entry deal and, once the
// position is closed, the exit deal.
type Trade struct {
	PositionID int64        `json:"positionId"`
	Symbol     string       `json:"symbol"`
	Magic      int64        `json:"magic"`
	Comment    string       `json:"comment"`
	OpenTime   int64        `json:"openTime"`
	CloseTime  int64        `json:"closeTime,omitempty"`
	Volume     float64      `json:"volume"`
	Profit     float64      `json:"profit"`
	Open       bool         `json:"open"`
	Deals      []model.Deal `json:"-"`
}

// Summary aggregates a set of trades for the dashboard cards.
type Summary struct {
	TotalProfit float64 `json:"totalProfit"`
	TotalTrades int     `json:"totalTrades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	WinRate     float64 `json:"winRate"`
}

// Group pairs deals sharing a position id into trades. The earlier deal on a
// position is its entry, the later one its exit; a position with a single
// deal is still open. Trades come back ordered by entry time, newest first.
func Group(deals []model.Deal) []Trade {
	byPos := make(map[int64][]model.Deal)
	order := make([]int64, 0)
	for _, d := range deals {
		id := d.Position.PositionID
		if _, seen := byPos[id]; !seen {
			order = append(order, id)
		}
		byPos[id] = append(byPos[id], d)
	}

	trades := make([]Trade, 0, len(order))
	for _, id := range order {
		group := byPos[id]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Position.TimeSetupMsc < group[j].Position.TimeSetupMsc
		})
		entry := group[0]
		t := Trade{
			PositionID: id,
			Symbol:     entry.Position.Symbol,
			Magic:      entry.Trade.Magic,
			Comment:    entry.Trade.Comment,
			OpenTime:   entry.Position.TimeSetupMsc,
			Volume:     entry.Trade.Volume,
			Open:       len(group) < 2,
			Deals:      group,
		}
		// Profit accumulates across every deal on the position, entry
		// included, so swaps and commissions booked on entry count too.
		for _, d := range group {
			t.Profit += d.Trade.Profit
		}
		if !t.Open {
			t.CloseTime = group[len(group)-1].Position.TimeSetupMsc
		}
		trades = append(trades, t)
	}

	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].OpenTime > trades[j].OpenTime
	})
	return trades
}

// Summarize reduces closed trades to the headline numbers. Open trades are
// excluded from win/loss counts but their running profit is included in
// TotalProfit. A win is strictly positive profit; break-even closes count as
// losses.
func Summarize(trades []Trade) Summary {
	var s Summary
	for _, t := range trades {
		s.TotalProfit += t.Profit
		if t.Open {
			continue
		}
		s.TotalTrades++
		if t.Profit > 0 {
			s.Wins++
		} else {
			s.Losses++
		}
	}
	if s.TotalTrades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.TotalTrades) * 100
	}
	return s
}

// FilterByMagic keeps only trades tagged with the given magic number.
func FilterByMagic(trades []Trade, magic int64) []Trade {
	out := make([]Trade, 0, len(trades))
	for _, t := range trades {
		if t.Magic == magic {
			out = append(out, t)
		}
	}
	return out
}
