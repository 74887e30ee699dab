package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config is populated from a TOML file and then overridden by PAPERDESK_*
// environment variables, so operators can tweak runs without editing files.
type Config struct {
	Session SessionConfig `toml:"session"`
	Account AccountConfig `toml:"account"`
	Risk    RiskConfig    `toml:"risk"`
	Journal JournalConfig `toml:"journal"`
	State   StateConfig   `toml:"state"`
}

type SessionConfig struct {
	Seed            int64   `toml:"seed"`
	DurationMinutes int     `toml:"duration_minutes"`
	MuAnnual        float64 `toml:"mu_annual"`
	SigmaAnnual     float64 `toml:"sigma_annual"`
	LatencyMs       int     `toml:"latency_ms"`
	FillProbability float64 `toml:"fill_probability"`
	OrderSize       float64 `toml:"order_size"`
}

type AccountConfig struct {
	Asset   string  `toml:"asset"`
	Deposit float64 `toml:"deposit"`
}

type RiskConfig struct {
	MaxDrawdown           float64 `toml:"max_drawdown"`
	MaxInstrumentNotional float64 `toml:"max_instrument_notional"`
	MaxNetExposure        float64 `toml:"max_net_exposure"`
}

type JournalConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type StateConfig struct {
	Enabled          bool   `toml:"enabled"`
	Path             string `toml:"path"`
	SnapshotInterval string `toml:"snapshot_interval"`
}

func Defaults() Config {
	return Config{
		Session: SessionConfig{
			Seed:            42,
			DurationMinutes: 60,
			MuAnnual:        0.05,
			SigmaAnnual:     0.5,
			LatencyMs:       50,
			FillProbability: 1.0,
			OrderSize:       0.01,
		},
		Account: AccountConfig{
			Asset:   "USDT",
			Deposit: 100_000,
		},
		Risk: RiskConfig{
			MaxDrawdown:           0.2,
			MaxInstrumentNotional: 50_000,
			MaxNetExposure:        80_000,
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    "paperdesk.duckdb",
		},
		State: StateConfig{
			Enabled:          true,
			Path:             "paperdesk_state.json",
			SnapshotInterval: "10s",
		},
	}
}

// Load reads the TOML file at path (skipped when empty), merges it over the
// defaults and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("unable to load config %q: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return cfg, nil
}

func (c Config) SnapshotInterval() time.Duration {
	d, err := time.ParseDuration(c.State.SnapshotInterval)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

func applyEnvOverrides(cfg *Config) {
	setInt64(&cfg.Session.Seed, "PAPERDESK_SEED")
	setInt(&cfg.Session.DurationMinutes, "PAPERDESK_DURATION_MINUTES")
	setFloat64(&cfg.Session.MuAnnual, "PAPERDESK_MU_ANNUAL")
	setFloat64(&cfg.Session.SigmaAnnual, "PAPERDESK_SIGMA_ANNUAL")
	setInt(&cfg.Session.LatencyMs, "PAPERDESK_LATENCY_MS")
	setFloat64(&cfg.Session.OrderSize, "PAPERDESK_ORDER_SIZE")

	setStr(&cfg.Account.Asset, "PAPERDESK_ACCOUNT_ASSET")
	setFloat64(&cfg.Account.Deposit, "PAPERDESK_ACCOUNT_DEPOSIT")

	setFloat64(&cfg.Risk.MaxDrawdown, "PAPERDESK_MAX_DRAWDOWN")
	setFloat64(&cfg.Risk.MaxInstrumentNotional, "PAPERDESK_MAX_INSTRUMENT_NOTIONAL")
	setFloat64(&cfg.Risk.MaxNetExposure, "PAPERDESK_MAX_NET_EXPOSURE")

	setBool(&cfg.Journal.Enabled, "PAPERDESK_JOURNAL_ENABLED")
	setStr(&cfg.Journal.Path, "PAPERDESK_JOURNAL_PATH")

	setBool(&cfg.State.Enabled, "PAPERDESK_STATE_ENABLED")
	setStr(&cfg.State.Path, "PAPERDESK_STATE_PATH")
	setStr(&cfg.State.SnapshotInterval, "PAPERDESK_SNAPSHOT_INTERVAL")
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
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
