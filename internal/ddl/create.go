// Package ddl holds a small SQL DDL model and renders CREATE TABLE statements
// for the export dialects (postgres, sqlite, mssql, mysql).
//
// Column kinds come from the profile package ("integer", "real", "boolean",
// "date", "timestamp", "text") and are mapped per dialect by MapType.
package ddl

import (
	"fmt"
	"strings"
)

// Dialect selects identifier quoting and type names.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
	MSSQL    Dialect = "mssql"
	MySQL    Dialect = "mysql"
)

// MapType returns the SQL type for a profiled column kind.
func MapType(d Dialect, kind string) string {
	k := strings.ToLower(kind)
	switch d {
	case SQLite:
		switch k {
		case "integer", "boolean":
			return "INTEGER"
		case "real":
			return "REAL"
		default:
			// dates are stored as ISO-8601 text
			return "TEXT"
		}
	case MSSQL:
		switch k {
		case "integer":
			return "BIGINT"
		case "real":
			return "FLOAT"
		case "boolean":
			return "BIT"
		case "date":
			return "DATE"
		case "timestamp":
			return "DATETIME2"
		default:
			return "NVARCHAR(MAX)"
		}
	case MySQL:
		switch k {
		case "integer":
			return "BIGINT"
		case "real":
			return "DOUBLE"
		case "boolean":
			return "BOOLEAN"
		case "date":
			return "DATE"
		case "timestamp":
			return "DATETIME(6)"
		default:
			return "LONGTEXT"
		}
	default:
		switch k {
		case "integer":
			return "BIGINT"
		case "real":
			return "DOUBLE PRECISION"
		case "boolean":
			return "BOOLEAN"
		case "date":
			return "DATE"
		case "timestamp":
			return "TIMESTAMPTZ"
		default:
			return "TEXT"
		}
	}
}

// QuoteIdent quotes a single identifier for d.
func QuoteIdent(d Dialect, name string) string {
	switch d {
	case MSSQL:
		return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
	case MySQL:
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	default:
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
}

// QuoteFQN quotes each dotted part of a table name.
func QuoteFQN(d Dialect, fqn string) string {
	parts := strings.Split(fqn, ".")
	for i, p := range parts {
		parts[i] = QuoteIdent(d, strings.TrimSpace(p))
	}
	return strings.Join(parts, ".")
}

// BuildCreateTableSQL renders a CREATE TABLE statement for d.
//
// Rules:
//
//   - t.FQN must be non-empty.
//
//   - Each column must have a non-empty Name and SQLType.
//
//   - A column is rendered as:
//
//     <Name> <SQLType> [NOT NULL] [DEFAULT <Default>]
//
//     where NOT NULL is added when Nullable == false.
//
//   - Columns with PrimaryKey == true are collected into a trailing
//     PRIMARY KEY (<col1>, <col2>, ...) clause.
//
// Identifiers are quoted for the dialect. Default is emitted as raw SQL.
func BuildCreateTableSQL(d Dialect, t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", name)
		}

		var sb strings.Builder
		sb.WriteString(QuoteIdent(d, name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, QuoteIdent(d, name))
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n);", QuoteFQN(d, fqn), strings.Join(cols, ",\n  ")), nil
}
