package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "yahoo", cfg.DataSource.Provider)
	assert.Equal(t, 15*time.Minute, cfg.Schedule.TickInterval)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, 0.6, cfg.Trading.LearnedBlend)
	assert.True(t, cfg.API.Enabled)
	require.Len(t, cfg.Personalities, 3)
	assert.Equal(t, "conservative", cfg.Personalities[0].ID)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: json
data_source:
  provider: mock
  timeout: 3s
  sector_symbols: [XLK, XLE]
schedule:
  tick_interval: 30s
  run_on_start: true
store:
  backend: redis
  redis:
    addr: redis:6379
    prefix: ts
api:
  enabled: false
personalities:
  - id: scalper
    symbols: [" nvda", amd]
    starting_capital: 2500
    buy_score_threshold: 62
    sell_score_threshold: 48
    position_size_fraction: 0.5
    max_positions: 2
    stop_loss_pct: 3
    take_profit_pct: 6
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 3*time.Second, cfg.DataSource.Timeout)
	assert.Equal(t, []string{"XLK", "XLE"}, cfg.DataSource.SectorSymbols)
	assert.Equal(t, 30*time.Second, cfg.Schedule.TickInterval)
	assert.True(t, cfg.Schedule.RunOnStart)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, "ts", cfg.Store.Redis.Prefix)
	assert.False(t, cfg.API.Enabled)

	require.Len(t, cfg.Personalities, 1)
	p := cfg.Personalities[0]
	assert.Equal(t, "scalper", p.Name)
	assert.Equal(t, []string{"NVDA", "AMD"}, p.Symbols)
	assert.Equal(t, 0.5, p.PositionSizeFraction)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "99")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("TICK_INTERVAL", "90s")
	t.Setenv("RUN_ON_START", "true")
	t.Setenv("API_ADDR", ":9999")

	cfg, err := Load(writeConfig(t, "store:\n  backend: file\n"))
	require.NoError(t, err)
	assert.Equal(t, "tok", cfg.Telegram.BotToken)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 90*time.Second, cfg.Schedule.TickInterval)
	assert.True(t, cfg.Schedule.RunOnStart)
	assert.Equal(t, ":9999", cfg.API.Addr)

	t.Setenv("TICK_INTERVAL", "soon")
	_, err = Load(writeConfig(t, ""))
	assert.ErrorContains(t, err, "TICK_INTERVAL")
}

func TestParseError(t *testing.T) {
	_, err := Load(writeConfig(t, "schedule: [oops"))
	assert.ErrorContains(t, err, "parse config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown provider", func(c *Config) { c.DataSource.Provider = "bloomberg" }, "data_source.provider"},
		{"rest without url", func(c *Config) { c.DataSource.Provider = "rest" }, "base_url"},
		{"unknown backend", func(c *Config) { c.Store.Backend = "etcd" }, "store.backend"},
		{"fast tick", func(c *Config) { c.Schedule.TickInterval = time.Millisecond }, "tick_interval"},
		{"blend", func(c *Config) { c.Trading.LearnedBlend = 1.5 }, "learned_blend"},
		{"half telegram", func(c *Config) { c.Telegram.BotToken = "x" }, "telegram"},
		{"duplicate id", func(c *Config) { c.Personalities[1].ID = c.Personalities[0].ID }, "duplicate"},
		{"inverted thresholds", func(c *Config) { c.Personalities[0].SellScoreThreshold = 90 }, "sell_score_threshold"},
		{"fraction", func(c *Config) { c.Personalities[0].PositionSizeFraction = 0 }, "position_size_fraction"},
		{"no symbols", func(c *Config) { c.Personalities[0].Symbols = nil }, "symbols"},
		{"no personalities", func(c *Config) { c.Personalities = nil }, "at least one personality"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}
