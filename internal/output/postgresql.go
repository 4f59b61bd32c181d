// internal/output/postgresql.go
package output

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

// PostgresOptions configures the PostgreSQL export target.
type PostgresOptions struct {
	// DSN is a lib/pq connection string or postgres:// URL.
	DSN string

	// Table receives the records.
	Table string

	// Schema defaults to public.
	Schema string

	// CreateTable creates the table from the first batch's columns.
	CreateTable bool

	// OnConflict picks the INSERT variant. Replace is not supported:
	// scraped columns carry no unique constraint to update against.
	OnConflict ConflictStrategy

	// BatchSize is the number of rows per multi-row INSERT.
	BatchSize int
}

// PostgresWriter appends records to one PostgreSQL table using
// multi-row inserts inside a single transaction per batch.
type PostgresWriter struct {
	db      *sql.DB
	opts    PostgresOptions
	columns []string
	idents  []string
}

const defaultSQLBatchSize = 500

// NewPostgresWriter connects and verifies the target database.
func NewPostgresWriter(opts PostgresOptions) (*PostgresWriter, error) {
	if opts.DSN == "" {
		return nil, fmt.Errorf("PostgreSQL connection string is required")
	}
	if err := validateTableName(opts.Table); err != nil {
		return nil, err
	}
	if opts.Schema == "" {
		opts.Schema = "public"
	}
	if err := validateTableName(opts.Schema); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	if opts.OnConflict == "" {
		opts.OnConflict = ConflictIgnore
	}
	if opts.OnConflict == ConflictReplace {
		return nil, fmt.Errorf("PostgreSQL writer supports conflict strategies %q and %q", ConflictIgnore, ConflictError)
	}
	if !IsValidConflictStrategy(opts.OnConflict) {
		return nil, fmt.Errorf("unknown conflict strategy: %s", opts.OnConflict)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultSQLBatchSize
	}

	db, err := sql.Open("postgres", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL output: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL output: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresWriter{db: db, opts: opts}, nil
}

func (w *PostgresWriter) Write(records []types.Record) error {
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

	for start := 0; start < len(records); start += w.opts.BatchSize {
		end := start + w.opts.BatchSize
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]

		query := postgresInsert(w.qualifiedTable(), w.idents, len(chunk), w.opts.OnConflict)
		args := make([]interface{}, 0, len(chunk)*len(w.columns))
		for i := range chunk {
			for _, v := range rowValues(&chunk[i], w.columns) {
				args = append(args, v)
			}
		}
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("failed to insert rows %d-%d: %w", start, end-1, err)
		}
	}
	return tx.Commit()
}

func (w *PostgresWriter) qualifiedTable() string {
	return quoteIdent(w.opts.Schema) + "." + quoteIdent(w.opts.Table)
}

func (w *PostgresWriter) createTable() error {
	defs := make([]string, 0, len(w.idents)+2)
	defs = append(defs, "id BIGSERIAL PRIMARY KEY")
	for _, ident := range w.idents {
		defs = append(defs, quoteIdent(ident)+" TEXT")
	}
	defs = append(defs, "created_at TIMESTAMPTZ NOT NULL DEFAULT now()")

	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		w.qualifiedTable(), strings.Join(defs, ", "))
	if _, err := w.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", w.opts.Table, err)
	}
	return nil
}

func (w *PostgresWriter) Close() error {
	if w.db == nil {
		return nil
	}
	err := w.db.Close()
	w.db = nil
	return err
}

// postgresInsert builds a multi-row INSERT with $n placeholders.
func postgresInsert(table string, idents []string, rows int, strategy ConflictStrategy) string {
	quoted := make([]string, len(idents))
	for i, ident := range idents {
		quoted[i] = quoteIdent(ident)
	}

	values := make([]string, rows)
	n := 1
	for r := 0; r < rows; r++ {
		ph := make([]string, len(idents))
		for c := range idents {
			ph[c] = fmt.Sprintf("$%d", n)
			n++
		}
		values[r] = "(" + strings.Join(ph, ", ") + ")"
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		table, strings.Join(quoted, ", "), strings.Join(values, ", "))
	if strategy == ConflictIgnore {
		query += " ON CONFLICT DO NOTHING"
	}
	return query
}
