package model

// Thresholds is the optional decision-level block attached to indicator
// samples and chart overlays.
type Thresholds struct {
	Entry         float64 `json:"entry"`
	Exit          float64 `json:"exit"`
	RSIOverbought float64 `json:"rsi_overbought"`
	RSIOversold   float64 `json:"rsi_oversold"`
}
