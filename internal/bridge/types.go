package bridge

import (
	"encoding/json"
	"fmt"

	"tradesim/internal/model"
)

// StatusResponse is the session probe payload from GET /status.
type StatusResponse struct {
	Status        string  `json:"status"`
	AccountNumber int64   `json:"account_number"`
	Balance       float64 `json:"balance"`
	Equity        float64 `json:"equity"`
}

// LoggedIn reports whether the bridge holds a live terminal session.
func (r *StatusResponse) LoggedIn() bool { return r.Status == "logged_in" }

// Account converts the probe into the account snapshot the store holds.
func (r *StatusResponse) Account() *model.AccountInfo {
	return &model.AccountInfo{
		AccountNumber: r.AccountNumber,
		Balance:       r.Balance,
		Equity:        r.Equity,
	}
}

// DataRange describes the historical bars available for one symbol.
type DataRange struct {
	Status    string `json:"status"`
	Symbol    string `json:"symbol"`
	TotalBars int    `json:"total_bars"`
	Range     struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"data_range"`
}

// BacktestReport is the raw metrics/trades report from the backtest endpoint.
// The analytics view renders it as-is, so it stays opaque here.
type BacktestReport map[string]json.RawMessage

// Error is a structured error extracted from a bridge response body. The
// bridge mixes three shapes: {"detail":{"message":...}}, {"detail":"..."} and
// {"error":"..."}; AvailableSymbols is populated by the data-range endpoint.
type Error struct {
	StatusCode       int
	Message          string
	AvailableSymbols []string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("bridge returned status %d", e.StatusCode)
}

// decodeError pulls the most specific message out of an error body. A body
// that matches none of the known shapes yields the fallback message.
func decodeError(statusCode int, body []byte, fallback string) *Error {
	be := &Error{StatusCode: statusCode, Message: fallback}

	var payload struct {
		Detail           json.RawMessage `json:"detail"`
		Err              string          `json:"error"`
		AvailableSymbols []string        `json:"available_symbols"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return be
	}
	be.AvailableSymbols = payload.AvailableSymbols

	if len(payload.Detail) > 0 {
		var detail struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload.Detail, &detail); err == nil && detail.Message != "" {
			be.Message = detail.Message
			return be
		}
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil && s != "" {
			be.Message = s
			return be
		}
	}
	if payload.Err != "" {
		be.Message = payload.Err
	}
	return be
}

// strategyPayload is the wire form of a strategy: the bridge expects lot
// sizes and the magic number as text.
type strategyPayload struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	CurrencyPairs     [2]string `json:"currencyPairs"`
	LotSize           [2]string `json:"lotSize"`
	TimeFrame         int       `json:"timeFrame"`
	MagicNumber       string    `json:"magicNumber"`
	TradeComment      string    `json:"tradeComment"`
	RSIPeriod         int       `json:"rsiPeriod"`
	CorrelationWindow int       `json:"correlationWindow"`
	RSIOverbought     float64   `json:"rsiOverbought"`
	RSIOversold       float64   `json:"rsiOversold"`
	EntryThreshold    float64   `json:"entryThreshold"`
	ExitThreshold     float64   `json:"exitThreshold"`
	StartingBalance   float64   `json:"startingBalance"`
	Status            string    `json:"status"`
	StartDate         string    `json:"startDate,omitempty"`
	EndDate           string    `json:"endDate,omitempty"`
}

func toPayload(s model.Strategy) strategyPayload {
	return strategyPayload{
		ID:            s.ID,
		Name:          s.Name,
		CurrencyPairs: s.CurrencyPairs,
		LotSize: [2]string{
			formatLot(s.LotSize[0]),
			formatLot(s.LotSize[1]),
		},
		TimeFrame:         s.TimeFrame,
		MagicNumber:       fmt.Sprintf("%d", s.MagicNumber),
		TradeComment:      s.TradeComment,
		RSIPeriod:         s.RSIPeriod,
		CorrelationWindow: s.CorrelationWindow,
		RSIOverbought:     s.RSIOverbought,
		RSIOversold:       s.RSIOversold,
		EntryThreshold:    s.EntryThreshold,
		ExitThreshold:     s.ExitThreshold,
		StartingBalance:   s.StartingBalance,
		Status:            s.Status,
	}
}

func formatLot(v float64) string {
	return trimZeros(fmt.Sprintf("%f", v))
}

func trimZeros(s string) string {
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}
