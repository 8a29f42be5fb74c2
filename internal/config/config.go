package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"TradeSentinel/internal/logger"
	"TradeSentinel/internal/model"
	"TradeSentinel/internal/store"
)

// DefaultPath is used when CONFIG_PATH is unset.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Log        logger.Config `yaml:"log"`
	DataSource struct {
		Provider          string        `yaml:"provider"` // yahoo, rest, mock
		BaseURL           string        `yaml:"base_url"`
		APIKey            string        `yaml:"api_key"`
		Timeout           time.Duration `yaml:"timeout"`
		RequestsPerSecond float64       `yaml:"requests_per_second"`
		Burst             int           `yaml:"burst"`
		BreakerFailures   uint32        `yaml:"breaker_failures"`
		BreakerTimeout    time.Duration `yaml:"breaker_timeout"`
		HistoryDays       int           `yaml:"history_days"`
		Benchmark         string        `yaml:"benchmark"`
		Volatility        string        `yaml:"volatility"`
		SectorSymbols     []string      `yaml:"sector_symbols"`
		MarketTTL         time.Duration `yaml:"market_ttl"`
	} `yaml:"data_source"`
	Sentiment struct {
		Provider string             `yaml:"provider"` // none, static, http
		BaseURL  string             `yaml:"base_url"`
		Timeout  time.Duration      `yaml:"timeout"`
		Static   map[string]float64 `yaml:"static"`
	} `yaml:"sentiment"`
	Schedule struct {
		TickInterval time.Duration `yaml:"tick_interval"`
		RunOnStart   bool          `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Trading struct {
		MinNotional  float64 `yaml:"min_notional"`
		LearnedBlend float64 `yaml:"learned_blend"`
		Parallelism  int     `yaml:"parallelism"`
	} `yaml:"trading"`
	Store    store.Options `yaml:"store"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	API struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"api"`
	Proxy         string              `yaml:"proxy"`
	Personalities []model.Personality `yaml:"personalities"`
}

// Load reads config from a YAML file, then applies environment variable overrides and defaults.
// A missing file yields a default configuration.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.API.Enabled = true

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"TELEGRAM_BOT_TOKEN": &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":   &c.Telegram.ChatID,
		"HTTPS_PROXY":        &c.Proxy,
		"DATA_PROVIDER":      &c.DataSource.Provider,
		"DATA_BASE_URL":      &c.DataSource.BaseURL,
		"DATA_API_KEY":       &c.DataSource.APIKey,
		"STORE_BACKEND":      &c.Store.Backend,
		"REDIS_ADDR":         &c.Store.Redis.Addr,
		"SQLITE_PATH":        &c.Database.SQLitePath,
		"LOG_LEVEL":          &c.Log.Level,
		"API_ADDR":           &c.API.Addr,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("TICK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TICK_INTERVAL: %w", err)
		}
		c.Schedule.TickInterval = d
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RUN_ON_START: %w", err)
		}
		c.Schedule.RunOnStart = b
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	ds := &c.DataSource
	if ds.Provider == "" {
		ds.Provider = "yahoo"
	}
	if ds.Timeout == 0 {
		ds.Timeout = 10 * time.Second
	}
	if ds.RequestsPerSecond == 0 {
		ds.RequestsPerSecond = 5
	}
	if ds.Burst == 0 {
		ds.Burst = 10
	}
	if ds.BreakerFailures == 0 {
		ds.BreakerFailures = 5
	}
	if ds.BreakerTimeout == 0 {
		ds.BreakerTimeout = time.Minute
	}
	if ds.HistoryDays == 0 {
		ds.HistoryDays = 260
	}
	if ds.Benchmark == "" {
		ds.Benchmark = "SPY"
	}
	if ds.Volatility == "" {
		ds.Volatility = "VIX"
	}
	if ds.MarketTTL == 0 {
		ds.MarketTTL = 5 * time.Minute
	}
	if c.Sentiment.Provider == "" {
		c.Sentiment.Provider = "none"
	}
	if c.Sentiment.Timeout == 0 {
		c.Sentiment.Timeout = 5 * time.Second
	}
	if c.Schedule.TickInterval == 0 {
		c.Schedule.TickInterval = 15 * time.Minute
	}
	if c.Trading.MinNotional == 0 {
		c.Trading.MinNotional = 10
	}
	if c.Trading.LearnedBlend == 0 {
		c.Trading.LearnedBlend = 0.6
	}
	if c.Trading.Parallelism == 0 {
		c.Trading.Parallelism = 4
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "sqlite"
	}
	if c.Store.Dir == "" {
		c.Store.Dir = "data/state"
	}
	if c.Store.SQLitePath == "" {
		c.Store.SQLitePath = "data/state.db"
	}
	if c.Store.Redis.Addr == "" {
		c.Store.Redis.Addr = "localhost:6379"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/history.db"
	}
	if c.API.Addr == "" {
		c.API.Addr = ":8080"
	}
	if len(c.Personalities) == 0 {
		c.Personalities = DefaultPersonalities()
	}
	for i := range c.Personalities {
		p := &c.Personalities[i]
		if p.Name == "" {
			p.Name = p.ID
		}
		for j, s := range p.Symbols {
			p.Symbols[j] = strings.ToUpper(strings.TrimSpace(s))
		}
	}
}

// DefaultPersonalities returns the built-in Conservative, Balanced and Aggressive traders.
func DefaultPersonalities() []model.Personality {
	return []model.Personality{
		{
			ID: "conservative", Name: "Conservative",
			Symbols:         []string{"SPY", "AAPL", "MSFT", "JNJ", "PG", "KO"},
			StartingCapital: 10000, BuyScoreThreshold: 68, SellScoreThreshold: 45,
			PositionSizeFraction: 0.15, MaxPositions: 4, StopLossPct: 5, TakeProfitPct: 12,
		},
		{
			ID: "balanced", Name: "Balanced",
			Symbols:         []string{"SPY", "AAPL", "MSFT", "GOOGL", "AMZN", "JPM", "XOM"},
			StartingCapital: 10000, BuyScoreThreshold: 60, SellScoreThreshold: 42,
			PositionSizeFraction: 0.25, MaxPositions: 5, StopLossPct: 7, TakeProfitPct: 20,
		},
		{
			ID: "aggressive", Name: "Aggressive",
			Symbols:         []string{"NVDA", "TSLA", "AMD", "META", "AAPL", "COIN"},
			StartingCapital: 10000, BuyScoreThreshold: 55, SellScoreThreshold: 38,
			PositionSizeFraction: 0.35, MaxPositions: 6, StopLossPct: 10, TakeProfitPct: 30,
		},
	}
}

// Validate checks that all settings are usable.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("data_source.provider %q is not one of yahoo, rest, mock", c.DataSource.Provider)
	}
	switch c.Sentiment.Provider {
	case "none", "static":
	case "http":
		if c.Sentiment.BaseURL == "" {
			return fmt.Errorf("sentiment.base_url is required for the http provider")
		}
	default:
		return fmt.Errorf("sentiment.provider %q is not one of none, static, http", c.Sentiment.Provider)
	}
	switch c.Store.Backend {
	case "memory", "file", "sqlite", "redis":
	default:
		return fmt.Errorf("store.backend %q is not one of memory, file, sqlite, redis", c.Store.Backend)
	}
	if c.Schedule.TickInterval < time.Second {
		return fmt.Errorf("schedule.tick_interval must be at least 1s")
	}
	if c.Trading.MinNotional < 0 {
		return fmt.Errorf("trading.min_notional must not be negative")
	}
	if c.Trading.LearnedBlend < 0 || c.Trading.LearnedBlend > 1 {
		return fmt.Errorf("trading.learned_blend must be within [0,1]")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if len(c.Personalities) == 0 {
		return fmt.Errorf("at least one personality is required")
	}
	seen := make(map[string]bool)
	for _, p := range c.Personalities {
		if err := validatePersonality(p); err != nil {
			return err
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate personality id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

func validatePersonality(p model.Personality) error {
	if p.ID == "" {
		return fmt.Errorf("personality %q: id is required", p.Name)
	}
	switch {
	case len(p.Symbols) == 0:
		return fmt.Errorf("personality %s: symbols are required", p.ID)
	case p.StartingCapital <= 0:
		return fmt.Errorf("personality %s: starting_capital must be positive", p.ID)
	case p.BuyScoreThreshold < 0 || p.BuyScoreThreshold > 100:
		return fmt.Errorf("personality %s: buy_score_threshold must be within [0,100]", p.ID)
	case p.SellScoreThreshold < 0 || p.SellScoreThreshold >= p.BuyScoreThreshold:
		return fmt.Errorf("personality %s: sell_score_threshold must be within [0,buy_score_threshold)", p.ID)
	case p.PositionSizeFraction <= 0 || p.PositionSizeFraction > 1:
		return fmt.Errorf("personality %s: position_size_fraction must be within (0,1]", p.ID)
	case p.MaxPositions < 1:
		return fmt.Errorf("personality %s: max_positions must be at least 1", p.ID)
	case p.StopLossPct < 0 || p.StopLossPct >= 100:
		return fmt.Errorf("personality %s: stop_loss_pct must be within [0,100)", p.ID)
	case p.TakeProfitPct < 0:
		return fmt.Errorf("personality %s: take_profit_pct must not be negative", p.ID)
	}
	return nil
}
