package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load builds the runtime configuration: defaults, then the file at path
// (if any), then .env and PROPBOT_* environment overrides. The result is
// validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}

	// A missing .env is normal.
	_ = godotenv.Load()
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides injects secrets and deploy-time switches.
func applyEnvOverrides(cfg *Config) {
	// Account
	setStr(&cfg.Account.Currency, "PROPBOT_ACCOUNT_CURRENCY")
	setInt64(&cfg.Account.Magic, "PROPBOT_MAGIC")
	setBool(&cfg.Account.TradeAllowed, "PROPBOT_TRADE_ALLOWED")

	// Risk
	setFloat64(&cfg.Risk.RiskPerTradePct, "PROPBOT_RISK_PER_TRADE_PCT")
	setFloat64(&cfg.Risk.MaxDailyDrawdownPct, "PROPBOT_MAX_DAILY_DRAWDOWN_PCT")

	// Schedule
	setDuration(&cfg.Schedule.FastInterval, "PROPBOT_FAST_INTERVAL")
	setDuration(&cfg.Schedule.SlowInterval, "PROPBOT_SLOW_INTERVAL")

	// Paths and logging
	setStr(&cfg.Paths.DataDir, "PROPBOT_DATA_DIR")
	setStr(&cfg.Paths.JournalCSV, "PROPBOT_JOURNAL_CSV")
	setStr(&cfg.Log.Level, "PROPBOT_LOG_LEVEL")
	setStr(&cfg.Log.File, "PROPBOT_LOG_FILE")

	// Secrets
	setStr(&cfg.Telegram.Token, "PROPBOT_TELEGRAM_TOKEN")
	setStr(&cfg.Telegram.ChatID, "PROPBOT_TELEGRAM_CHAT_ID")
	setStr(&cfg.Earnings.APIKey, "PROPBOT_ALPHAVANTAGE_API_KEY")
	setStr(&cfg.Redis.Addr, "PROPBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PROPBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PROPBOT_REDIS_DB")

	setStr(&cfg.Metrics.Addr, "PROPBOT_METRICS_ADDR")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}
