package control

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"tradesim/internal/model"
)

// Defaults is the template merged into newly created strategies.
type Defaults struct {
	Name              string     `yaml:"name"`
	TimeFrame         int        `yaml:"timeFrame"`
	RSIPeriod         int        `yaml:"rsiPeriod"`
	CorrelationWindow int        `yaml:"correlationWindow"`
	RSIOverbought     float64    `yaml:"rsiOverbought"`
	RSIOversold       float64    `yaml:"rsiOversold"`
	EntryThreshold    float64    `yaml:"entryThreshold"`
	ExitThreshold     float64    `yaml:"exitThreshold"`
	LotSize           [2]float64 `yaml:"lotSize"`
	StartingBalance   float64    `yaml:"startingBalance"`
	TradeComment      string     `yaml:"tradeComment"`
}

// BuiltinDefaults mirrors configs/strategy_defaults.yaml and is used when no
// template file is available.
func BuiltinDefaults() Defaults {
	return Defaults{
		TimeFrame:         16385,
		RSIPeriod:         14,
		CorrelationWindow: 50,
		RSIOverbought:     70,
		RSIOversold:       30,
		LotSize:           [2]float64{0.01, 0.01},
		StartingBalance:   10000,
		TradeComment:      "tradesim",
	}
}

// LoadDefaults reads the strategy template from path. A missing file is not
// an error; the builtin template is returned instead.
func LoadDefaults(path string) (Defaults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return BuiltinDefaults(), nil
		}
		return Defaults{}, fmt.Errorf("read strategy defaults: %w", err)
	}
	d := BuiltinDefaults()
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Defaults{}, fmt.Errorf("parse strategy defaults: %w", err)
	}
	return d, nil
}

// NewStrategy materializes the template into a fresh inactive strategy with
// its own id.
func (d Defaults) NewStrategy() model.Strategy {
	return model.Strategy{
		ID:                uuid.NewString(),
		Name:              d.Name,
		TimeFrame:         d.TimeFrame,
		RSIPeriod:         d.RSIPeriod,
		CorrelationWindow: d.CorrelationWindow,
		RSIOverbought:     d.RSIOverbought,
		RSIOversold:       d.RSIOversold,
		EntryThreshold:    d.EntryThreshold,
		ExitThreshold:     d.ExitThreshold,
		LotSize:           d.LotSize,
		StartingBalance:   d.StartingBalance,
		TradeComment:      d.TradeComment,
		Status:            model.StatusInactive,
	}
}
