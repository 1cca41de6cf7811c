package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/propbot/market"
	"github.com/rustyeddy/propbot/risk"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()
	require.NoError(t, Default().Validate())
}

func TestDefaultPolicyMatchesRisk(t *testing.T) {
	t.Parallel()

	p, err := Default().Policy()
	require.NoError(t, err)

	want := risk.DefaultPolicy()
	assert.Equal(t, want.RiskPct, p.RiskPct)
	assert.Equal(t, want.MaxPositions, p.MaxPositions)
	assert.Equal(t, want.MaxDrawdownPct, p.MaxDrawdownPct)
	assert.Equal(t, want.MaxSpreadPips, p.MaxSpreadPips)
	assert.Equal(t, want.MaxCurrencyExposure, p.MaxCurrencyExposure)
	assert.Equal(t, want.CorrelationMode, p.CorrelationMode)
	assert.Equal(t, want.NewsBuffer, p.NewsBuffer)
	assert.Equal(t, want.EarningsEmbargoDays, p.EarningsEmbargoDays)
	assert.Equal(t, want.Rollover.Start, p.Rollover.Start)
	assert.Equal(t, want.Rollover.End, p.Rollover.End)
	assert.Equal(t, want.Enabled, p.Enabled)
}

func TestValidateCollectsFieldErrors(t *testing.T) {
	t.Parallel()

	c := Default()
	c.Risk.CorrelationMode = "HEDGE"
	c.Risk.MaxPositions = 0
	c.Risk.RolloverStart = "25:99"
	c.Log.Level = "loud"

	err := c.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)

	var fe *FieldError
	require.True(t, errors.As(err, &fe))

	for _, field := range []string{"risk.correlation_mode", "risk.max_positions", "risk.rollover_start", "log.level"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestValidateRanges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"risk too high", func(c *Config) { c.Risk.RiskPerTradePct = 0.2 }, "risk.risk_per_trade_pct"},
		{"modifier one", func(c *Config) { c.Risk.CorrelationRiskModifier = 1 }, "risk.correlation_risk_modifier"},
		{"drawdown zero", func(c *Config) { c.Risk.MaxDailyDrawdownPct = 0 }, "risk.max_daily_drawdown_pct"},
		{"bad zone", func(c *Config) { c.Risk.RolloverZone = "Mars/Olympus" }, "risk.rollover_zone"},
		{"slow faster than fast", func(c *Config) { c.Schedule.SlowInterval = Duration(time.Second) }, "schedule.slow_interval"},
		{"redis without addr", func(c *Config) { c.Earnings.Source = "redis" }, "redis.addr"},
		{"currency", func(c *Config) { c.Account.Currency = "US" }, "account.currency"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			var fe *FieldError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestLoadFromFileYAMLOverDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "propbot.yaml")
	body := `
categories:
  crypto: true
  stocks: false
risk:
  correlation_mode: REDUCE
  max_positions: 5
schedule:
  fast_interval: 30s
signals:
  allow_shorts: false
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	c, err := LoadFromFile(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.True(t, c.Categories.Crypto)
	assert.False(t, c.Categories.Stocks)
	assert.True(t, c.Categories.Forex, "untouched keys keep defaults")
	assert.Equal(t, 5, c.Risk.MaxPositions)
	assert.Equal(t, 30*time.Second, c.Schedule.FastInterval.D())
	assert.Equal(t, 5*time.Minute, c.Schedule.SlowInterval.D())
	assert.False(t, c.SignalParams().AllowShorts)
	assert.Equal(t, 21, c.SignalParams().LookbackDays)

	p, err := c.Policy()
	require.NoError(t, err)
	assert.Equal(t, risk.Reduce, p.CorrelationMode)
	assert.True(t, p.Enabled[market.Crypto])
}

func TestSaveAndReload(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"cfg.yaml", "cfg.json"} {
		name := name
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), name)

			c := Default()
			c.Risk.MaxSpreadPips = 2.2
			c.Timeouts.Venue = Duration(3 * time.Second)
			require.NoError(t, c.SaveToFile(path))

			got, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, 2.2, got.Risk.MaxSpreadPips)
			assert.Equal(t, 3*time.Second, got.Timeouts.Venue.D())
		})
	}
}

func TestSecretsNotSaved(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	c := Default()
	c.Telegram.Token = "secret-token"
	require.NoError(t, c.SaveToFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret-token")
}

func TestLoadFromFileGarbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("risk: [unterminated"), 0o644))
	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestDisable(t *testing.T) {
	t.Parallel()

	c := Default()
	c.Disable(market.Stocks)
	c.Disable(market.Forex)
	p, err := c.Policy()
	require.NoError(t, err)
	assert.False(t, p.Enabled[market.Stocks])
	assert.False(t, p.Enabled[market.Forex])
	assert.True(t, p.Enabled[market.Metals])
}

// Not parallel: mutates the process environment.
func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PROPBOT_TELEGRAM_TOKEN", "tok")
	t.Setenv("PROPBOT_TRADE_ALLOWED", "false")
	t.Setenv("PROPBOT_MAGIC", "777")
	t.Setenv("PROPBOT_SLOW_INTERVAL", "10m")
	t.Setenv("PROPBOT_REDIS_DB", "not-a-number")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "tok", c.Telegram.Token)
	assert.False(t, c.Account.TradeAllowed)
	assert.Equal(t, int64(777), c.Account.Magic)
	assert.Equal(t, 10*time.Minute, c.Schedule.SlowInterval.D())
	assert.Equal(t, 0, c.Redis.DB, "unparsable values are ignored")
}

func TestLoadInvalid(t *testing.T) {
	t.Setenv("PROPBOT_RISK_PER_TRADE_PCT", "0.5")

	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalid)
}
