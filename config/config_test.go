package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, int64(100), cfg.Pipeline.MinVolume)
	assert.Equal(t, 50.0, cfg.Pipeline.MaxPriceChangePct)
	assert.Equal(t, []int{14, 28}, cfg.Pipeline.RSIPeriods)
	assert.Equal(t, 20, cfg.Pipeline.AvgVolumeWindow)
	assert.Equal(t, 20, cfg.Pipeline.MinCorrelationOverlap)
	assert.Equal(t, 0.3, cfg.Pipeline.SignalThreshold)
	assert.Equal(t, "session", cfg.Pipeline.VWAPMode)
	assert.Equal(t, 100, cfg.API.RateLimitPerMinute)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("DB_PORT", "6543")
	t.Setenv("RSI_PERIODS", "9")
	t.Setenv("VWAP_MODE", "rolling")
	t.Setenv("PIPELINE_INTERVAL", "1h")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, []int{9}, cfg.Pipeline.RSIPeriods)
	assert.Equal(t, "rolling", cfg.Pipeline.VWAPMode)
	assert.Equal(t, "1h0m0s", cfg.Pipeline.Interval.String())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := LoadFromEnv()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero workers", func(c *Config) { c.Pipeline.MaxWorkers = 0 }},
		{"three rsi periods", func(c *Config) { c.Pipeline.RSIPeriods = []int{7, 14, 28} }},
		{"rsi period one", func(c *Config) { c.Pipeline.RSIPeriods = []int{1} }},
		{"unknown vwap mode", func(c *Config) { c.Pipeline.VWAPMode = "anchored" }},
		{"bad timezone", func(c *Config) { c.Pipeline.MarketTimezone = "Mars/Olympus" }},
		{"signal threshold above one", func(c *Config) { c.Pipeline.SignalThreshold = 1.5 }},
		{"unknown source format", func(c *Config) { c.Source.Format = "xlsx" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "n", SSLMode: "require"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=n sslmode=require", d.DSN())
}
