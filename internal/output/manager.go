// internal/output/manager.go
package output

import (
	"fmt"
	"os"

	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/config"
)

// defaultTable names the relational table or collection when the
// configuration leaves it empty.
const defaultTable = "records"

// NewWriter builds the writer for an output configuration. File-based
// formats default to stdout when no file is configured; database
// formats require their connection settings.
func NewWriter(cfg config.OutputConfig) (Writer, error) {
	format := Format(cfg.Format)
	if format == "" {
		format = FormatJSON
	}

	table := cfg.Table
	if table == "" {
		table = defaultTable
	}

	switch format {
	case FormatJSON, FormatJSONLines:
		lines := format == FormatJSONLines
		if cfg.File == "" {
			return NewJSONWriter(os.Stdout, lines), nil
		}
		return NewJSONFileWriter(cfg.File, lines)

	case FormatCSV, FormatTSV:
		delimiter := ','
		if format == FormatTSV {
			delimiter = '\t'
		}
		if cfg.File == "" {
			return NewCSVWriter(os.Stdout, delimiter), nil
		}
		return NewCSVFileWriter(cfg.File, delimiter)

	case FormatXML:
		if cfg.File == "" {
			return NewXMLWriter(os.Stdout), nil
		}
		return NewXMLFileWriter(cfg.File)

	case FormatYAML:
		if cfg.File == "" {
			return NewYAMLWriter(os.Stdout), nil
		}
		return NewYAMLFileWriter(cfg.File)

	case FormatExcel:
		return NewExcelWriter(cfg.File, "")

	case FormatSQLite:
		return NewSQLiteWriter(SQLiteOptions{
			Path:        cfg.File,
			Table:       table,
			CreateTable: true,
		})

	case FormatPostgreSQL:
		return NewPostgresWriter(PostgresOptions{
			DSN:         cfg.DSN,
			Table:       table,
			CreateTable: true,
		})

	case FormatMySQL:
		return NewMySQLWriter(MySQLOptions{
			DSN:         cfg.DSN,
			Table:       table,
			CreateTable: true,
		})

	case FormatMongoDB:
		return NewMongoWriter(MongoOptions{
			URI:        cfg.URI,
			Database:   cfg.Database,
			Collection: table,
		})

	default:
		return nil, fmt.Errorf("unsupported output format: %s", cfg.Format)
	}
}
