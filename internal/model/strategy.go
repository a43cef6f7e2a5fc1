package model

// StrategyStatus values recognised by the dashboard.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Strategy is a named trading configuration tracked by the dashboard. Orders
// placed by the bridge carry MagicNumber so live positions can be matched back
// to the strategy that opened them.
type Strategy struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	CurrencyPairs     [2]string  `json:"currencyPairs"`
	LotSize           [2]float64 `json:"lotSize"`
	TimeFrame         int        `json:"timeFrame"`
	MagicNumber       int64      `json:"magicNumber"`
	TradeComment      string     `json:"tradeComment"`
	RSIPeriod         int        `json:"rsiPeriod"`
	CorrelationWindow int        `json:"correlationWindow"`
	RSIOverbought     float64    `json:"rsiOverbought"`
	RSIOversold       float64    `json:"rsiOversold"`
	EntryThreshold    float64    `json:"entryThreshold"`
	ExitThreshold     float64    `json:"exitThreshold"`
	StartingBalance   float64    `json:"startingBalance"`
	Status            string     `json:"status"`
}

// IsComplete reports whether every identifying and parameter field is
// populated. Array-valued fields are checked element by element; Status is
// ignored because run/stop flips it. Thresholds and RSI levels may legally be
// zero, so only the fields the bridge rejects when empty are enforced.
func (s Strategy) IsComplete() bool {
	if s.ID == "" || s.Name == "" || s.TradeComment == "" {
		return false
	}
	for _, pair := range s.CurrencyPairs {
		if pair == "" {
			return false
		}
	}
	for _, lot := range s.LotSize {
		if lot <= 0 {
			return false
		}
	}
	if s.TimeFrame <= 0 || s.MagicNumber <= 0 {
		return false
	}
	if s.RSIPeriod <= 0 || s.CorrelationWindow <= 0 {
		return false
	}
	return true
}

// AccountInfo is the read-only account snapshot reported by the bridge.
type AccountInfo struct {
	AccountNumber int64   `json:"account_number"`
	Balance       float64 `json:"balance"`
	Equity        float64 `json:"equity"`
}
