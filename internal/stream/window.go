package stream

// MaxPoints caps the chart window; the oldest points are evicted first.
const MaxPoints = 100

// Window holds three parallel bounded sequences for charting: correlation
// values, averaged RSI (nil where one leg was missing) and display labels.
// It is owned by exactly one session and rebuilt fresh on reconnect.
type Window struct {
	Correlation []float64  `json:"correlation"`
	RSI         []*float64 `json:"rsi"`
	Labels      []string   `json:"labels"`
}

// Append pushes one point and truncates all three sequences to the most
// recent MaxPoints entries.
func (w *Window) Append(correlation float64, rsi *float64, label string) {
	w.Correlation = append(w.Correlation, correlation)
	w.RSI = append(w.RSI, rsi)
	w.Labels = append(w.Labels, label)

	if len(w.Labels) > MaxPoints {
		w.Correlation = w.Correlation[len(w.Correlation)-MaxPoints:]
		w.RSI = w.RSI[len(w.RSI)-MaxPoints:]
		w.Labels = w.Labels[len(w.Labels)-MaxPoints:]
	}
}

// Len returns the number of points held.
func (w Window) Len() int { return len(w.Labels) }

// Clone returns an independent copy safe to hand to consumers.
func (w *Window) Clone() Window {
	return Window{
		Correlation: append([]float64(nil), w.Correlation...),
		RSI:         append([]*float64(nil), w.RSI...),
		Labels:      append([]string(nil), w.Labels...),
	}
}
