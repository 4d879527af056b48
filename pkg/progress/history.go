package progress

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/KaifAhmad1/repo-analyzer/pkg/toolinfo"
)

// RunRecord is one completed analysis run, as archived.
type RunRecord struct {
	ID          string                `json:"id"`
	Kind        toolinfo.AnalysisKind `json:"kind"`
	StartedAt   time.Time             `json:"started_at"`
	CompletedAt time.Time             `json:"completed_at"`
	Overall     float64               `json:"overall"`
	Stages      []StageState          `json:"stages"`
}

// Duration is the wall time of the run.
func (r RunRecord) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// History archives completed runs to SQLite so past analyses survive
// restarts and can be listed from the CLI.
type History struct {
	db     *sql.DB
	logger zerolog.Logger
}

const historySchema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	kind         TEXT NOT NULL,
	started_at   INTEGER NOT NULL,
	completed_at INTEGER NOT NULL,
	overall      REAL NOT NULL,
	stages       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_completed ON runs(completed_at DESC);
`

// OpenHistory opens (creating if needed) the run-history database.
func OpenHistory(path string, logger zerolog.Logger) (*History, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(historySchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &History{
		db:     db,
		logger: logger.With().Str("component", "run-history").Logger(),
	}, nil
}

// Archive stores one completed run.
func (h *History) Archive(rec RunRecord) error {
	stages, err := json.Marshal(rec.Stages)
	if err != nil {
		return fmt.Errorf("marshal stages: %w", err)
	}

	_, err = h.db.Exec(
		`INSERT OR REPLACE INTO runs (id, kind, started_at, completed_at, overall, stages) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Kind), rec.StartedAt.UnixMilli(), rec.CompletedAt.UnixMilli(), rec.Overall, string(stages),
	)
	if err != nil {
		return fmt.Errorf("archive run %s: %w", rec.ID, err)
	}

	h.logger.Debug().Str("run_id", rec.ID).Msg("Run archived")
	return nil
}

// Recent returns the most recently completed runs, newest first.
func (h *History) Recent(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := h.db.Query(
		`SELECT id, kind, started_at, completed_at, overall, stages FROM runs ORDER BY completed_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var kind, stagesJSON string
		var started, done int64
		if err := rows.Scan(&rec.ID, &kind, &started, &done, &rec.Overall, &stagesJSON); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.Kind = toolinfo.AnalysisKind(kind)
		rec.StartedAt = time.UnixMilli(started)
		rec.CompletedAt = time.UnixMilli(done)
		if err := json.Unmarshal([]byte(stagesJSON), &rec.Stages); err != nil {
			return nil, fmt.Errorf("unmarshal stages for %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close releases the database handle.
func (h *History) Close() error {
	return h.db.Close()
}
