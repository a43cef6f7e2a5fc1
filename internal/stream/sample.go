package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tradesim/internal/model"
)

// frame is one decoded websocket message from the indicator stream. The
// symbol order of current_prices matters (it decides which instrument is
// pair1 and which pair2), so the map is decoded token-wise to preserve
// encounter order.
type frame struct {
	Err         string
	Timestamp   string
	Correlation float64
	HasSample   bool
	Symbols     []string
	Prices      map[string]float64
	RSI         map[string]float64
	Thresholds  *model.Thresholds
}

var errBadCorrelation = errors.New("correlation is not numeric")

func parseFrame(data []byte) (*frame, error) {
	var wire struct {
		Err           string             `json:"error"`
		Timestamp     string             `json:"timestamp"`
		Correlation   json.RawMessage    `json:"correlation"`
		CurrentPrices json.RawMessage    `json:"current_prices"`
		RSIValues     map[string]float64 `json:"rsi_values"`
		Thresholds    *model.Thresholds  `json:"thresholds"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode stream frame: %w", err)
	}

	f := &frame{
		Err:        wire.Err,
		Timestamp:  wire.Timestamp,
		RSI:        wire.RSIValues,
		Thresholds: wire.Thresholds,
	}
	if f.Err != "" {
		return f, nil
	}

	if len(wire.Correlation) > 0 && !bytes.Equal(wire.Correlation, []byte("null")) {
		var corr float64
		if err := json.Unmarshal(wire.Correlation, &corr); err != nil {
			// The wire may quote the number; anything else is malformed.
			var s string
			if err := json.Unmarshal(wire.Correlation, &s); err != nil {
				return nil, errBadCorrelation
			}
			if _, err := fmt.Sscanf(s, "%f", &corr); err != nil {
				return nil, errBadCorrelation
			}
		}
		f.Correlation = corr
		f.HasSample = true
	}

	if len(wire.CurrentPrices) > 0 && !bytes.Equal(wire.CurrentPrices, []byte("null")) {
		symbols, prices, err := orderedPrices(wire.CurrentPrices)
		if err != nil {
			return nil, err
		}
		f.Symbols = symbols
		f.Prices = prices
	}
	return f, nil
}

// orderedPrices walks the current_prices object token by token so the symbol
// keys come back in wire order, which encoding/json maps do not guarantee.
func orderedPrices(raw json.RawMessage) ([]string, map[string]float64, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("decode current_prices: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, errors.New("current_prices is not an object")
	}

	var symbols []string
	prices := make(map[string]float64)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("decode current_prices key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, nil, errors.New("current_prices key is not a string")
		}
		var price float64
		if err := dec.Decode(&price); err != nil {
			return nil, nil, fmt.Errorf("decode price for %s: %w", key, err)
		}
		symbols = append(symbols, key)
		prices[key] = price
	}
	return symbols, prices, nil
}

// label renders the sample timestamp the way the chart axis shows it. An
// unparseable timestamp is used verbatim.
func (f *frame) label() string {
	if ts, err := time.Parse(time.RFC3339, f.Timestamp); err == nil {
		return ts.Local().Format("15:04:05")
	}
	return f.Timestamp
}

// pair returns the i-th instrument symbol in encounter order, or "".
func (f *frame) pair(i int) string {
	if i < len(f.Symbols) {
		return f.Symbols[i]
	}
	return ""
}

// rsiFor formats the RSI reading for a symbol, "N/A" when the stream did not
// report one.
func (f *frame) rsiFor(symbol string) string {
	if v, ok := f.RSI[symbol]; ok && symbol != "" {
		return fmt.Sprintf("%.2f", v)
	}
	return "N/A"
}

// rsiAverage averages both pairs' RSI readings; nil when either is missing so
// the chart shows a gap instead of a fabricated point.
func (f *frame) rsiAverage() *float64 {
	r1, ok1 := f.RSI[f.pair(0)]
	r2, ok2 := f.RSI[f.pair(1)]
	if !ok1 || !ok2 {
		return nil
	}
	avg := (r1 + r2) / 2
	return &avg
}
