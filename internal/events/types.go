package events

import "tradesim/internal/model"

// Event enumerates high-level topics inside the dashboard core.
type Event string

const (
	EventIndicatorSample Event = "indicator_sample"
	EventStreamState     Event = "stream_state"
	EventStrategyStatus  Event = "strategy_status"
	EventPositions       Event = "positions"
)

// SamplePayload carries one accepted indicator sample from a stream session.
type SamplePayload struct {
	StrategyID  string            `json:"strategy_id"`
	Correlation string            `json:"correlation"`
	RSI1        string            `json:"rsi1"`
	RSI2        string            `json:"rsi2"`
	Pair1       string            `json:"pair1"`
	Pair2       string            `json:"pair2"`
	Label       string            `json:"label"`
	Thresholds  *model.Thresholds `json:"thresholds,omitempty"`
}

// StreamStatePayload reports a session's connection state transition.
type StreamStatePayload struct {
	StrategyID string `json:"strategy_id"`
	State      string `json:"state"`
	Error      string `json:"error,omitempty"`
}

// StatusPayload reports a strategy flipping between active and inactive.
type StatusPayload struct {
	StrategyID string `json:"strategy_id"`
	Status     string `json:"status"`
}

// PositionsPayload is the reconciler's latest view of open positions.
type PositionsPayload struct {
	Positions []model.Position `json:"positions"`
}
