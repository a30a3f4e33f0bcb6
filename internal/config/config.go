package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type RebalanceFrequency string

const (
	RebalanceDaily     RebalanceFrequency = "daily"
	RebalanceWeekly    RebalanceFrequency = "weekly"
	RebalanceMonthly   RebalanceFrequency = "monthly"
	RebalanceQuarterly RebalanceFrequency = "quarterly"
	RebalanceYearly    RebalanceFrequency = "yearly"
)

func (f RebalanceFrequency) Valid() bool {
	switch f {
	case RebalanceDaily, RebalanceWeekly, RebalanceMonthly, RebalanceQuarterly, RebalanceYearly:
		return true
	}
	return false
}

// Config holds the run parameters. It is constructed once at the top of a
// run and passed into the planner, execution engine and driver constructors;
// there is no process-wide settings state.
type Config struct {
	InitialCapital     float64
	CommissionRate     float64
	SlippageRate       float64
	RebalanceFrequency RebalanceFrequency
	ExecutionDelay     int
}

// rawConfig uses pointers so a missing key is distinguishable from a zero
// value; commission and slippage of 0 are legitimate settings.
type rawConfig struct {
	InitialCapital     *float64 `json:"initialCapital"`
	CommissionRate     *float64 `json:"commissionRate"`
	SlippageRate       *float64 `json:"slippageRate"`
	RebalanceFrequency *string  `json:"rebalanceFrequency"`
	ExecutionDelay     *int     `json:"executionDelay"`
}

// Load reads a JSON config file and fails fast on missing or invalid
// required parameters.
func Load(path string) (*Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not open config file: %w", err)
	}

	raw := rawConfig{}
	if err := json.Unmarshal(f, &raw); err != nil {
		return nil, fmt.Errorf("could not parse config file: %w", err)
	}

	missing := []string{}
	if raw.InitialCapital == nil {
		missing = append(missing, "initialCapital")
	}
	if raw.CommissionRate == nil {
		missing = append(missing, "commissionRate")
	}
	if raw.SlippageRate == nil {
		missing = append(missing, "slippageRate")
	}
	if raw.RebalanceFrequency == nil {
		missing = append(missing, "rebalanceFrequency")
	}
	if raw.ExecutionDelay == nil {
		missing = append(missing, "executionDelay")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required config parameter(s): %s", strings.Join(missing, ", "))
	}

	cfg := &Config{
		InitialCapital:     *raw.InitialCapital,
		CommissionRate:     *raw.CommissionRate,
		SlippageRate:       *raw.SlippageRate,
		RebalanceFrequency: RebalanceFrequency(strings.ToLower(*raw.RebalanceFrequency)),
		ExecutionDelay:     *raw.ExecutionDelay,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.InitialCapital <= 0 {
		return fmt.Errorf("initialCapital must be positive, got %f", c.InitialCapital)
	}
	if c.CommissionRate < 0 || c.CommissionRate >= 1 {
		return fmt.Errorf("commissionRate must be in [0, 1), got %f", c.CommissionRate)
	}
	if c.SlippageRate < 0 || c.SlippageRate >= 1 {
		return fmt.Errorf("slippageRate must be in [0, 1), got %f", c.SlippageRate)
	}
	if !c.RebalanceFrequency.Valid() {
		return fmt.Errorf("unknown rebalance frequency %q", c.RebalanceFrequency)
	}
	if c.ExecutionDelay < 0 {
		return fmt.Errorf("executionDelay must be non-negative, got %d", c.ExecutionDelay)
	}
	return nil
}
