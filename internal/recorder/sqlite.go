package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"GoldSentinel/internal/cache"
	"GoldSentinel/internal/model"
)

// SQLiteRecorder persists the journal to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp        INTEGER NOT NULL,
			price            REAL,
			source           TEXT,
			market_open      INTEGER,
			technical_signal TEXT,
			technical_score  REAL,
			macro_score      REAL,
			macro_action     TEXT,
			verdict          TEXT,
			verdict_score    REAL,
			confidence       REAL,
			calls_today      INTEGER,
			calls_month      INTEGER,
			error_code       INTEGER,
			warnings         INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON snapshots(timestamp)`,

		`CREATE TABLE IF NOT EXISTS fetch_events (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			series      TEXT NOT NULL,
			duration_ms INTEGER,
			ok          INTEGER,
			error_code  INTEGER,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fetch_ts ON fetch_events(timestamp)`,

		`CREATE TABLE IF NOT EXISTS quota_events (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			period       TEXT,
			calls_today  INTEGER,
			calls_month  INTEGER,
			monthly_cap  INTEGER,
			used_percent REAL,
			projected    INTEGER,
			level        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_quota_ts ON quota_events(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordSnapshot(snap *model.Snapshot) error {
	if snap == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		techSignal  string
		techScore   float64
		macroScore  sql.NullFloat64
		macroAction sql.NullString
		errorCode   int
	)
	if snap.Sentiment != nil {
		techSignal = snap.Sentiment.Category
		techScore = snap.Sentiment.Score
	}
	if m := snap.MacroImpact; m != nil {
		macroScore = sql.NullFloat64{Float64: m.Score, Valid: true}
		macroAction = sql.NullString{String: string(m.Recommendation), Valid: true}
	}
	if snap.LastError != nil {
		errorCode = snap.LastError.Code
	}

	_, err := r.db.Exec(`INSERT INTO snapshots
		(timestamp, price, source, market_open, technical_signal, technical_score,
		 macro_score, macro_action, verdict, verdict_score, confidence,
		 calls_today, calls_month, error_code, warnings)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		snap.GeneratedAt.Unix(), snap.CurrentPrice, snap.Source, snap.Schedule.Open,
		techSignal, techScore, macroScore, macroAction,
		string(snap.Verdict.Action), snap.Verdict.Score, snap.Verdict.Confidence,
		snap.Quota.CallsToday, snap.Quota.CallsThisMonth, errorCode, len(snap.Warnings),
	)
	return err
}

func (r *SQLiteRecorder) RecordFetch(evt *FetchEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO fetch_events
		(timestamp, series, duration_ms, ok, error_code, error)
		VALUES (?,?,?,?,?,?)`,
		r.now().Unix(), evt.Series, evt.Duration.Milliseconds(), evt.OK, evt.Code, evt.Error,
	)
	return err
}

func (r *SQLiteRecorder) RecordQuota(evt *QuotaEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	q := evt.Status
	_, err := r.db.Exec(`INSERT INTO quota_events
		(timestamp, period, calls_today, calls_month, monthly_cap, used_percent, projected, level)
		VALUES (?,?,?,?,?,?,?,?)`,
		r.now().Unix(), evt.Period, q.CallsToday, q.CallsThisMonth, q.MonthlyLimit,
		q.UsedPercent, q.EstimatedMonthly, q.WarningLevel,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}

// FetchHook adapts a Recorder to the cache fetch callback. Journal failures
// are logged and otherwise ignored.
func FetchHook(rec Recorder) func(series string, took time.Duration, err error) {
	return func(series string, took time.Duration, err error) {
		evt := &FetchEvent{Series: series, Duration: took, OK: err == nil}
		if err != nil {
			evt.Error = err.Error()
			var coded cache.CodedError
			if errors.As(err, &coded) {
				evt.Code = coded.ErrorInfo().Code
			}
		}
		if jerr := rec.RecordFetch(evt); jerr != nil {
			log.Warn().Err(jerr).Str("series", series).Msg("journal fetch event")
		}
	}
}
