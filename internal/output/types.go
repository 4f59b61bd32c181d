// internal/output/types.go

// Package output exports extracted records to files and databases.
// Every writer implements the same Writer interface over []types.Record,
// so callers pick a format by name and stream records without caring
// where they land. Row-oriented writers (CSV, Excel, SQL, MongoDB)
// derive their columns from the union of field names across the first
// batch; provenance (node path, depth) travels in reserved "_path" and
// "_depth" columns so it can never collide with a scraped field.
package output

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

// Format names a supported export target.
type Format string

const (
	FormatJSON       Format = "json"
	FormatJSONLines  Format = "jsonl"
	FormatCSV        Format = "csv"
	FormatTSV        Format = "tsv"
	FormatXML        Format = "xml"
	FormatYAML       Format = "yaml"
	FormatExcel      Format = "excel"
	FormatSQLite     Format = "sqlite"
	FormatPostgreSQL Format = "postgresql"
	FormatMySQL      Format = "mysql"
	FormatMongoDB    Format = "mongodb"
)

// ValidFormats returns every format NewWriter accepts.
func ValidFormats() []Format {
	return []Format{
		FormatJSON, FormatJSONLines, FormatCSV, FormatTSV, FormatXML,
		FormatYAML, FormatExcel, FormatSQLite, FormatPostgreSQL,
		FormatMySQL, FormatMongoDB,
	}
}

// IsValid checks if the format is a known value.
func (f Format) IsValid() bool {
	for _, valid := range ValidFormats() {
		if f == valid {
			return true
		}
	}
	return false
}

// Extension returns the conventional file extension for file-based
// formats, or "" for database targets.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatJSONLines:
		return ".jsonl"
	case FormatCSV:
		return ".csv"
	case FormatTSV:
		return ".tsv"
	case FormatXML:
		return ".xml"
	case FormatYAML:
		return ".yaml"
	case FormatExcel:
		return ".xlsx"
	default:
		return ""
	}
}

// Writer exports batches of extracted records. Write may be called
// repeatedly; row-oriented writers fix their column set on the first
// batch. Close flushes and releases the underlying file or connection.
type Writer interface {
	Write(records []types.Record) error
	Close() error
}

// ConflictStrategy resolves duplicate-key collisions in SQL targets.
type ConflictStrategy string

const (
	// ConflictIgnore drops conflicting rows silently.
	ConflictIgnore ConflictStrategy = "ignore"

	// ConflictReplace overwrites the existing row.
	ConflictReplace ConflictStrategy = "replace"

	// ConflictError surfaces the database error.
	ConflictError ConflictStrategy = "error"
)

// IsValidConflictStrategy checks if a strategy is a known value.
func IsValidConflictStrategy(s ConflictStrategy) bool {
	return s == ConflictIgnore || s == ConflictReplace || s == ConflictError
}

// Reserved column names for record provenance. Underscore-prefixed so
// they can never collide with scraped field names, which FieldNames
// filters the same way.
const (
	ColumnPath  = "_path"
	ColumnDepth = "_depth"
)

// Columns returns the sorted union of field names across records, with
// the provenance columns appended when any record carries a node path.
func Columns(records []types.Record) []string {
	seen := make(map[string]bool)
	withPath := false
	for i := range records {
		for _, name := range records[i].FieldNames() {
			seen[name] = true
		}
		if records[i].Path != "" {
			withPath = true
		}
	}

	columns := make([]string, 0, len(seen)+2)
	for name := range seen {
		columns = append(columns, name)
	}
	sort.Strings(columns)
	if withPath {
		columns = append(columns, ColumnPath, ColumnDepth)
	}
	return columns
}

// rowValues resolves one record against a fixed column order. Missing
// fields become empty strings so every row has the same width.
func rowValues(record *types.Record, columns []string) []string {
	values := make([]string, len(columns))
	for i, column := range columns {
		switch column {
		case ColumnPath:
			values[i] = record.Path
		case ColumnDepth:
			values[i] = strconv.Itoa(record.Depth)
		default:
			values[i] = record.Get(column)
		}
	}
	return values
}

// SQL identifiers must survive scraped field names like "Unit Price"
// or "Qty.". sanitizeColumns maps each column to a safe identifier and
// disambiguates collisions instead of rejecting the batch.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// maxIdentifierLength follows the PostgreSQL limit, the most
// restrictive of the supported targets.
const maxIdentifierLength = 63

func sanitizeIdentifier(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	s := strings.Trim(b.String(), "_")
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		s = "f_" + s
	}
	if len(s) > maxIdentifierLength {
		s = s[:maxIdentifierLength]
	}
	return s
}

// sanitizeColumns returns a safe identifier per column, in column
// order. Collisions after sanitizing get a numeric suffix.
func sanitizeColumns(columns []string) []string {
	out := make([]string, len(columns))
	taken := make(map[string]bool, len(columns))
	for i, column := range columns {
		name := column
		if column == ColumnPath || column == ColumnDepth {
			// Provenance columns are already valid identifiers
			// minus the leading underscore.
			name = strings.TrimPrefix(column, "_")
		}
		name = sanitizeIdentifier(name)
		base := name
		for n := 2; taken[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		taken[name] = true
		out[i] = name
	}
	return out
}

// validateTableName rejects table names that cannot be made safe by
// quoting alone.
func validateTableName(table string) error {
	if table == "" {
		return fmt.Errorf("table name is required")
	}
	if len(table) > maxIdentifierLength {
		return fmt.Errorf("table name too long (max %d characters): %s", maxIdentifierLength, table)
	}
	if !identifierPattern.MatchString(table) {
		return fmt.Errorf("invalid table name: %s", table)
	}
	return nil
}
