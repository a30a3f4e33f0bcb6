package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfigFile(t, `{
		"initialCapital": 100000,
		"commissionRate": 0.001,
		"slippageRate": 0.0005,
		"rebalanceFrequency": "Monthly",
		"executionDelay": 1
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 100000.0, cfg.InitialCapital)
	assert.Equal(t, 0.001, cfg.CommissionRate)
	assert.Equal(t, 0.0005, cfg.SlippageRate)
	assert.Equal(t, RebalanceMonthly, cfg.RebalanceFrequency)
	assert.Equal(t, 1, cfg.ExecutionDelay)
}

func TestLoad_ZeroRatesAreValid(t *testing.T) {
	path := writeConfigFile(t, `{
		"initialCapital": 1000,
		"commissionRate": 0,
		"slippageRate": 0,
		"rebalanceFrequency": "daily",
		"executionDelay": 0
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Zero(t, cfg.CommissionRate)
	assert.Zero(t, cfg.SlippageRate)
}

func TestLoad_MissingParametersListedByName(t *testing.T) {
	path := writeConfigFile(t, `{"initialCapital": 1000, "executionDelay": 0}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commissionRate")
	assert.Contains(t, err.Error(), "slippageRate")
	assert.Contains(t, err.Error(), "rebalanceFrequency")
	assert.NotContains(t, err.Error(), "initialCapital")
}

func TestLoad_FileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestLoad_MalformedJSON(t *testing.T) {
	path := writeConfigFile(t, `{"initialCapital": `)
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		InitialCapital:     1000,
		CommissionRate:     0.01,
		SlippageRate:       0.01,
		RebalanceFrequency: RebalanceWeekly,
		ExecutionDelay:     2,
	}
	require.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"non-positive capital", func(c *Config) { c.InitialCapital = 0 }},
		{"negative commission", func(c *Config) { c.CommissionRate = -0.1 }},
		{"commission at 1", func(c *Config) { c.CommissionRate = 1 }},
		{"negative slippage", func(c *Config) { c.SlippageRate = -0.1 }},
		{"unknown frequency", func(c *Config) { c.RebalanceFrequency = "fortnightly" }},
		{"negative delay", func(c *Config) { c.ExecutionDelay = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestRebalanceFrequencyValid(t *testing.T) {
	assert.True(t, RebalanceDaily.Valid())
	assert.True(t, RebalanceYearly.Valid())
	assert.False(t, RebalanceFrequency("hourly").Valid())
}
