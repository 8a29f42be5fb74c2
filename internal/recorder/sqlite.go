package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"TradeSentinel/internal/model"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if err := ensureParent(dbPath); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	// WAL lets dashboards read while the trader writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("component", "recorder").Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id             TEXT PRIMARY KEY,
			personality_id TEXT NOT NULL,
			timestamp      INTEGER NOT NULL,
			symbol         TEXT NOT NULL,
			action         TEXT NOT NULL,
			price          REAL,
			shares         REAL,
			amount         REAL,
			reason         TEXT,
			score          REAL,
			realized_pnl   REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_personality_ts ON trades(personality_id, timestamp)`,

		`CREATE TABLE IF NOT EXISTS decisions (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			personality_id  TEXT NOT NULL,
			timestamp       INTEGER NOT NULL,
			symbol          TEXT NOT NULL,
			price           REAL,
			regime          TEXT,
			core_score      REAL,
			pulse_score     REAL,
			news_score      REAL,
			composite_score REAL,
			signal          TEXT,
			confidence      TEXT,
			contributing    INTEGER,
			warnings        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_symbol_ts ON decisions(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS ticks (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			personality_id TEXT NOT NULL,
			timestamp      INTEGER NOT NULL,
			evaluated      INTEGER,
			buys           INTEGER,
			sells          INTEGER,
			missed         INTEGER,
			errors         INTEGER,
			cash           REAL,
			total_value    REAL,
			duration_ms    INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ticks_personality_ts ON ticks(personality_id, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordTrade(personalityID string, t *model.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pnl sql.NullFloat64
	if t.RealizedPnL != nil {
		pnl = sql.NullFloat64{Float64: *t.RealizedPnL, Valid: true}
	}
	_, err := r.db.Exec(`INSERT OR IGNORE INTO trades
		(id, personality_id, timestamp, symbol, action, price, shares, amount, reason, score, realized_pnl)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, personalityID, t.Timestamp.Unix(), t.Symbol, string(t.Action),
		t.Price, t.Shares, t.Amount, t.Reason, t.Score, pnl,
	)
	return err
}

func (r *SQLiteRecorder) RecordDecision(evt *DecisionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d := evt.Decision
	warnings, err := json.Marshal(d.Warnings)
	if err != nil {
		return fmt.Errorf("encode warnings: %w", err)
	}
	_, err = r.db.Exec(`INSERT INTO decisions
		(personality_id, timestamp, symbol, price, regime, core_score, pulse_score, news_score,
		 composite_score, signal, confidence, contributing, warnings)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		evt.PersonalityID, time.Now().Unix(), evt.Symbol, evt.Price, string(d.Regime),
		d.CoreScore, d.PulseScore, d.NewsScore, d.CompositeScore,
		string(d.CompositeSignal), string(d.Confidence), d.Contributing, string(warnings),
	)
	return err
}

func (r *SQLiteRecorder) RecordTick(evt *TickEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO ticks
		(personality_id, timestamp, evaluated, buys, sells, missed, errors, cash, total_value, duration_ms)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		evt.PersonalityID, time.Now().Unix(), evt.Evaluated, evt.Buys, evt.Sells,
		evt.Missed, evt.Errors, evt.Cash, evt.TotalValue, evt.Duration.Milliseconds(),
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Str("component", "recorder").Msg("closing sqlite recorder")
	return r.db.Close()
}

// ensureParent creates the directory holding a file-backed database.
func ensureParent(dbPath string) error {
	if dbPath == "" || dbPath == ":memory:" || strings.HasPrefix(dbPath, "file:") {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(dbPath), err)
	}
	return nil
}
