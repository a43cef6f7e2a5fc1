package model

// Position is one open position reported by the bridge's trade list. Magic
// correlates it back to the strategy that opened it.
type Position struct {
	Ticket       int64   `json:"id"`
	Symbol       string  `json:"symbol"`
	Type         int     `json:"type"` // 0 buy, 1 sell
	Magic        int64   `json:"magic"`
	Time         int64   `json:"time"` // epoch seconds
	PriceOpen    float64 `json:"price_open"`
	PriceCurrent float64 `json:"price_current"`
	Volume       float64 `json:"volume"`
	Profit       float64 `json:"profit"`
}

// Deal is one historical deal record from the bridge. The bridge reports each
// deal twice over: once with the position snapshot it belonged to and once
// with the executed trade leg.
type Deal struct {
	Position DealPosition `json:"position"`
	Trade    DealTrade    `json:"trade"`
}

// DealPosition is the position side of a historical deal.
type DealPosition struct {
	PositionID   int64   `json:"position_id"`
	Symbol       string  `json:"symbol"`
	TimeSetupMsc int64   `json:"time_setup_msc"`
	PriceCurrent float64 `json:"price_current"`
}

// DealTrade is the executed leg of a historical deal.
type DealTrade struct {
	Type    int     `json:"type"`
	Magic   int64   `json:"magic"`
	Volume  float64 `json:"volume"`
	Profit  float64 `json:"profit"`
	Comment string  `json:"comment"`
}
