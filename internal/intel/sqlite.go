// internal/intel/sqlite.go
package intel

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS selector_cache (
	domain     TEXT PRIMARY KEY,
	selectors  TEXT NOT NULL,
	fields     TEXT NOT NULL,
	learned_at TEXT NOT NULL,
	use_count  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS tool_performance (
	site               TEXT NOT NULL,
	tool               TEXT NOT NULL,
	total_attempts     INTEGER NOT NULL DEFAULT 0,
	successful_attempts INTEGER NOT NULL DEFAULT 0,
	failed_attempts    INTEGER NOT NULL DEFAULT 0,
	recent_successes   TEXT NOT NULL DEFAULT '[]',
	last_success       TEXT,
	last_failure       TEXT,
	PRIMARY KEY (site, tool)
);
`

// SQLiteStore persists intelligence in a single-file SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the intelligence database
// at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("SQLite store path is required")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open intelligence store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping intelligence store: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize store schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

func (s *SQLiteStore) GetSelectors(ctx context.Context, domain string) (*types.SelectorEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT domain, selectors, fields, learned_at, use_count FROM selector_cache WHERE domain = ?`,
		domain)

	var entry types.SelectorEntry
	var selectorsJSON, fieldsJSON, learnedAt string
	err := row.Scan(&entry.Domain, &selectorsJSON, &fieldsJSON, &learnedAt, &entry.UseCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read selectors for %s: %w", domain, err)
	}

	if err := json.Unmarshal([]byte(selectorsJSON), &entry.Selectors); err != nil {
		return nil, fmt.Errorf("corrupt selector entry for %s: %w", domain, err)
	}
	if err := json.Unmarshal([]byte(fieldsJSON), &entry.Fields); err != nil {
		return nil, fmt.Errorf("corrupt selector entry for %s: %w", domain, err)
	}
	if entry.LearnedAt, err = time.Parse(time.RFC3339, learnedAt); err != nil {
		return nil, fmt.Errorf("corrupt selector entry for %s: %w", domain, err)
	}
	return &entry, nil
}

func (s *SQLiteStore) PutSelectors(ctx context.Context, entry *types.SelectorEntry) error {
	if entry == nil {
		return nil
	}

	selectorsJSON, err := json.Marshal(entry.Selectors)
	if err != nil {
		return fmt.Errorf("failed to encode selectors: %w", err)
	}
	fieldsJSON, err := json.Marshal(entry.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode fields: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO selector_cache (domain, selectors, fields, learned_at, use_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(domain) DO UPDATE SET
			selectors  = excluded.selectors,
			fields     = excluded.fields,
			learned_at = excluded.learned_at,
			use_count  = excluded.use_count`,
		entry.Domain, string(selectorsJSON), string(fieldsJSON),
		entry.LearnedAt.UTC().Format(time.RFC3339), entry.UseCount)
	if err != nil {
		return fmt.Errorf("failed to store selectors for %s: %w", entry.Domain, err)
	}
	return nil
}

func (s *SQLiteStore) GetToolPerformance(ctx context.Context, site, tool string) (*types.ToolPerformance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT site, tool, total_attempts, successful_attempts, failed_attempts,
		       recent_successes, last_success, last_failure
		FROM tool_performance WHERE site = ? AND tool = ?`,
		site, tool)

	perf, err := scanToolPerformance(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read performance for %s/%s: %w", site, tool, err)
	}
	return perf, nil
}

func (s *SQLiteStore) PutToolPerformance(ctx context.Context, perf *types.ToolPerformance) error {
	if perf == nil {
		return nil
	}

	recentJSON, err := json.Marshal(perf.Recent)
	if err != nil {
		return fmt.Errorf("failed to encode recent history: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tool_performance
			(site, tool, total_attempts, successful_attempts, failed_attempts,
			 recent_successes, last_success, last_failure)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(site, tool) DO UPDATE SET
			total_attempts      = excluded.total_attempts,
			successful_attempts = excluded.successful_attempts,
			failed_attempts     = excluded.failed_attempts,
			recent_successes    = excluded.recent_successes,
			last_success        = excluded.last_success,
			last_failure        = excluded.last_failure`,
		perf.Site, perf.Tool, perf.Total, perf.Successes, perf.Failures,
		string(recentJSON), formatNullableTime(perf.LastSuccess), formatNullableTime(perf.LastFailure))
	if err != nil {
		return fmt.Errorf("failed to store performance for %s/%s: %w", perf.Site, perf.Tool, err)
	}
	return nil
}

func (s *SQLiteStore) ListToolPerformance(ctx context.Context, site string) ([]*types.ToolPerformance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT site, tool, total_attempts, successful_attempts, failed_attempts,
		       recent_successes, last_success, last_failure
		FROM tool_performance WHERE site = ? ORDER BY tool`,
		site)
	if err != nil {
		return nil, fmt.Errorf("failed to list performance for %s: %w", site, err)
	}
	defer rows.Close()

	var out []*types.ToolPerformance
	for rows.Next() {
		perf, err := scanToolPerformance(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan performance row: %w", err)
		}
		out = append(out, perf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate performance rows: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func scanToolPerformance(scan func(...interface{}) error) (*types.ToolPerformance, error) {
	var perf types.ToolPerformance
	var recentJSON string
	var lastSuccess, lastFailure sql.NullString

	err := scan(&perf.Site, &perf.Tool, &perf.Total, &perf.Successes, &perf.Failures,
		&recentJSON, &lastSuccess, &lastFailure)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(recentJSON), &perf.Recent); err != nil {
		return nil, fmt.Errorf("corrupt recent history: %w", err)
	}
	if perf.LastSuccess, err = parseNullableTime(lastSuccess); err != nil {
		return nil, err
	}
	if perf.LastFailure, err = parseNullableTime(lastFailure); err != nil {
		return nil, err
	}
	return &perf, nil
}

func formatNullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v.String)
	if err != nil {
		return nil, fmt.Errorf("corrupt timestamp: %w", err)
	}
	return &t, nil
}
