// Package audit persists a per-request record of every completed or failed
// chat turn to SQLite, so operators can inspect routing behavior and upstream
// spend after the fact. It is write-mostly: the only read path is the admin
// usage summary.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Record is one chat turn's audit row.
type Record struct {
	ID               string    `json:"id"`
	SessionID        string    `json:"session_id"`
	Mode             string    `json:"mode"` // "grounded", "general", or "error"
	TopScore         float32   `json:"top_score"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	LatencyMs        int64     `json:"latency_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

// Summary aggregates the audit log for the admin usage endpoint.
type Summary struct {
	TotalRequests    int64            `json:"total_requests"`
	ByMode           map[string]int64 `json:"by_mode"`
	PromptTokens     int64            `json:"prompt_tokens"`
	CompletionTokens int64            `json:"completion_tokens"`
	AvgLatencyMs     float64          `json:"avg_latency_ms"`
}

// Log is a SQLite-backed audit log.
type Log struct {
	db *sql.DB
}

// Open opens (or creates) the audit database at path.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	// Single writer; the WAL keeps the admin read path from blocking it.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure audit database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS chat_audit (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		mode TEXT NOT NULL,
		top_score REAL NOT NULL DEFAULT 0,
		prompt_tokens INTEGER NOT NULL DEFAULT 0,
		completion_tokens INTEGER NOT NULL DEFAULT 0,
		latency_ms INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_audit_created_at ON chat_audit (created_at);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create audit schema: %w", err)
	}

	return &Log{db: db}, nil
}

// Close closes the database connection.
func (l *Log) Close() error {
	return l.db.Close()
}

// Record inserts one audit row. A zero ID or CreatedAt is filled in.
func (l *Log) Record(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO chat_audit (id, session_id, mode, top_score, prompt_tokens, completion_tokens, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.Mode, rec.TopScore,
		rec.PromptTokens, rec.CompletionTokens, rec.LatencyMs, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}

// Summarize aggregates all rows into a usage summary.
func (l *Log) Summarize(ctx context.Context) (*Summary, error) {
	summary := &Summary{ByMode: make(map[string]int64)}

	row := l.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(prompt_tokens), 0),
		       COALESCE(SUM(completion_tokens), 0),
		       COALESCE(AVG(latency_ms), 0)
		FROM chat_audit`)
	if err := row.Scan(&summary.TotalRequests, &summary.PromptTokens, &summary.CompletionTokens, &summary.AvgLatencyMs); err != nil {
		return nil, fmt.Errorf("failed to summarize audit log: %w", err)
	}

	rows, err := l.db.QueryContext(ctx, `SELECT mode, COUNT(*) FROM chat_audit GROUP BY mode`)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize audit modes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var mode string
		var count int64
		if err := rows.Scan(&mode, &count); err != nil {
			return nil, fmt.Errorf("failed to scan audit mode row: %w", err)
		}
		summary.ByMode[mode] = count
	}
	return summary, rows.Err()
}

// Prune deletes rows older than the retention window and returns the number
// removed. Run periodically by the maintenance scheduler.
func (l *Log) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	res, err := l.db.ExecContext(ctx, `DELETE FROM chat_audit WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune audit log: %w", err)
	}
	return res.RowsAffected()
}
