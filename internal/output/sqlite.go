// internal/output/sqlite.go
package output

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

// SQLiteOptions configures the SQLite export target.
type SQLiteOptions struct {
	// Path is the database file, created if missing.
	Path string

	// Table receives the records.
	Table string

	// CreateTable creates the table from the first batch's columns.
	CreateTable bool

	// OnConflict picks the INSERT variant; default ignore.
	OnConflict ConflictStrategy
}

// SQLiteWriter appends records to one table of a SQLite database.
// All scraped values are TEXT; an autoincrement id and a created_at
// timestamp are added when the writer creates the table itself.
type SQLiteWriter struct {
	db      *sql.DB
	opts    SQLiteOptions
	columns []string // record field names, order fixed by first batch
	idents  []string // sanitized SQL identifiers, same order
}

// NewSQLiteWriter opens (creating if needed) the database at opts.Path.
func NewSQLiteWriter(opts SQLiteOptions) (*SQLiteWriter, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("SQLite output path is required")
	}
	if err := validateTableName(opts.Table); err != nil {
		return nil, err
	}
	if opts.OnConflict == "" {
		opts.OnConflict = ConflictIgnore
	}
	if !IsValidConflictStrategy(opts.OnConflict) {
		return nil, fmt.Errorf("unknown conflict strategy: %s", opts.OnConflict)
	}

	if dir := filepath.Dir(opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", opts.Path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite output: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite output: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &SQLiteWriter{db: db, opts: opts}, nil
}

func (w *SQLiteWriter) Write(records []types.Record) error {
	if len(records) == 0 {
		return nil
	}

	if w.columns == nil {
		w.columns = Columns(records)
		w.idents = sanitizeColumns(w.columns)
		if w.opts.CreateTable {
			if err := w.createTable(); err != nil {
				return err
			}
		}
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(sqliteInsert(w.opts.Table, w.idents, w.opts.OnConflict))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		values := rowValues(&records[i], w.columns)
		args := make([]interface{}, len(values))
		for j, v := range values {
			args[j] = v
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}
	return tx.Commit()
}

func (w *SQLiteWriter) createTable() error {
	defs := make([]string, 0, len(w.idents)+2)
	defs = append(defs, "id INTEGER PRIMARY KEY AUTOINCREMENT")
	for _, ident := range w.idents {
		defs = append(defs, quoteIdent(ident)+" TEXT")
	}
	defs = append(defs, "created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP")

	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		quoteIdent(w.opts.Table), strings.Join(defs, ", "))
	if _, err := w.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", w.opts.Table, err)
	}
	return nil
}

func (w *SQLiteWriter) Close() error {
	if w.db == nil {
		return nil
	}
	err := w.db.Close()
	w.db = nil
	return err
}

// sqliteInsert builds the INSERT statement for one record.
func sqliteInsert(table string, idents []string, strategy ConflictStrategy) string {
	verb := "INSERT"
	switch strategy {
	case ConflictIgnore:
		verb = "INSERT OR IGNORE"
	case ConflictReplace:
		verb = "INSERT OR REPLACE"
	}

	quoted := make([]string, len(idents))
	for i, ident := range idents {
		quoted[i] = quoteIdent(ident)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(idents)), ",")

	return fmt.Sprintf("%s INTO %s (%s) VALUES (%s)",
		verb, quoteIdent(table), strings.Join(quoted, ", "), placeholders)
}

// quoteIdent double-quotes an identifier. Sanitized identifiers never
// contain quotes, so no escaping is needed.
func quoteIdent(name string) string {
	return `"` + name + `"`
}
