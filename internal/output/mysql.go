// internal/output/mysql.go
package output

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver

	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

// MySQLOptions configures the MySQL export target.
type MySQLOptions struct {
	// DSN is a go-sql-driver DSN, e.g. user:pass@tcp(host:3306)/db.
	DSN string

	// Table receives the records.
	Table string

	// CreateTable creates the table from the first batch's columns.
	CreateTable bool

	// OnConflict picks the INSERT variant; default ignore.
	OnConflict ConflictStrategy

	// BatchSize is the number of rows per multi-row INSERT.
	BatchSize int
}

// MySQLWriter appends records to one MySQL table.
type MySQLWriter struct {
	db      *sql.DB
	opts    MySQLOptions
	columns []string
	idents  []string
}

// NewMySQLWriter connects and verifies the target database.
func NewMySQLWriter(opts MySQLOptions) (*MySQLWriter, error) {
	if opts.DSN == "" {
		return nil, fmt.Errorf("MySQL connection string is required")
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
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultSQLBatchSize
	}

	db, err := sql.Open("mysql", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL output: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL output: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &MySQLWriter{db: db, opts: opts}, nil
}

func (w *MySQLWriter) Write(records []types.Record) error {
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

		query := mysqlInsert(w.opts.Table, w.idents, len(chunk), w.opts.OnConflict)
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

func (w *MySQLWriter) createTable() error {
	defs := make([]string, 0, len(w.idents)+2)
	defs = append(defs, "id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY")
	for _, ident := range w.idents {
		defs = append(defs, backquoteIdent(ident)+" TEXT")
	}
	defs = append(defs, "created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP")

	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		backquoteIdent(w.opts.Table), strings.Join(defs, ", "))
	if _, err := w.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", w.opts.Table, err)
	}
	return nil
}

func (w *MySQLWriter) Close() error {
	if w.db == nil {
		return nil
	}
	err := w.db.Close()
	w.db = nil
	return err
}

// mysqlInsert builds a multi-row INSERT with ? placeholders.
func mysqlInsert(table string, idents []string, rows int, strategy ConflictStrategy) string {
	verb := "INSERT"
	switch strategy {
	case ConflictIgnore:
		verb = "INSERT IGNORE"
	case ConflictReplace:
		verb = "REPLACE"
	}

	quoted := make([]string, len(idents))
	for i, ident := range idents {
		quoted[i] = backquoteIdent(ident)
	}

	row := "(" + strings.TrimSuffix(strings.Repeat("?,", len(idents)), ",") + ")"
	values := make([]string, rows)
	for r := range values {
		values[r] = row
	}

	return fmt.Sprintf("%s INTO %s (%s) VALUES %s",
		verb, backquoteIdent(table), strings.Join(quoted, ", "), strings.Join(values, ", "))
}

// backquoteIdent backtick-quotes an identifier for MySQL.
func backquoteIdent(name string) string {
	return "`" + name + "`"
}
