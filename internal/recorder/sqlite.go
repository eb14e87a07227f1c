package recorder

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"IndicatorMaster/internal/model"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so dashboards can read while a run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id      TEXT PRIMARY KEY,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			path        TEXT,
			backup_path TEXT,
			merged      INTEGER,
			skipped     INTEGER,
			failed      INTEGER,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS indicator_status (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id        TEXT NOT NULL REFERENCES runs(run_id),
			name          TEXT NOT NULL,
			status        TEXT NOT NULL,
			message       TEXT,
			points        INTEGER,
			current_value REAL,
			signal_value  REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_status_name ON indicator_status(name)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores the run row and one row per indicator in a single
// transaction.
func (r *SQLiteRecorder) RecordRun(res *model.RunResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var runErr string
	if res.Err != nil {
		runErr = res.Err.Error()
	}
	_, err = tx.Exec(`INSERT INTO runs
		(run_id, started_at, finished_at, path, backup_path, merged, skipped, failed, error)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		res.RunID, res.StartedAt.Unix(), res.FinishedAt.Unix(), res.Path, res.BackupPath,
		res.Count(model.StatusMerged), res.Count(model.StatusSkipped), res.Count(model.StatusFailed),
		runErr,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, st := range res.Statuses {
		_, err := tx.Exec(`INSERT INTO indicator_status
			(run_id, name, status, message, points, current_value, signal_value)
			VALUES (?,?,?,?,?,?,?)`,
			res.RunID, st.Name, string(st.Status), st.Message, st.Points,
			st.CurrentValue, st.SignalValue,
		)
		if err != nil {
			return fmt.Errorf("insert status %s: %w", st.Name, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
