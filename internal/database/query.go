package database

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Dialect controls identifier quoting, placeholders and the row-limited
// probe statement used to read a table's result-set description.
type Dialect int

const (
	// DialectPostgres uses "ident" and $1, $2, … placeholders.
	DialectPostgres Dialect = iota

	// DialectMySQL uses `ident` and ? placeholders.
	DialectMySQL

	// DialectOracle uses upper-cased "IDENT" and :1, :2, … placeholders.
	DialectOracle

	// DialectSQLite uses "ident" and ? placeholders.
	DialectSQLite
)

func (d Dialect) String() string {
	switch d {
	case DialectMySQL:
		return "mysql"
	case DialectOracle:
		return "oracle"
	case DialectSQLite:
		return "sqlite"
	default:
		return "postgres"
	}
}

// QuoteIdent quotes a single identifier, escaping embedded quote characters.
func (d Dialect) QuoteIdent(name string) string {
	switch d {
	case DialectMySQL:
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	case DialectOracle:
		return pq.QuoteIdentifier(strings.ToUpper(name))
	default:
		return pq.QuoteIdentifier(name)
	}
}

// Qualify renders a QName as SQL text: "schema"."table", or just "table"
// when no schema is set. SQLite has a flat namespace and always drops the
// schema.
func (d Dialect) Qualify(q QName) string {
	if q.Schema == "" || d == DialectSQLite {
		return d.QuoteIdent(q.Table)
	}
	return d.QuoteIdent(q.Schema) + "." + d.QuoteIdent(q.Table)
}

// Placeholder returns the n-th (1-based) bind parameter marker.
func (d Dialect) Placeholder(n int) string {
	switch d {
	case DialectPostgres:
		return fmt.Sprintf("$%d", n)
	case DialectOracle:
		return fmt.Sprintf(":%d", n)
	default:
		return "?"
	}
}

// ProbeQuery returns a statement that yields at most one row of q, enough
// for the driver to describe the result set.
func (d Dialect) ProbeQuery(q QName) string {
	if d == DialectOracle {
		return "SELECT * FROM " + d.Qualify(q) + " WHERE ROWNUM < 2"
	}
	return "SELECT * FROM " + d.Qualify(q) + " LIMIT 1"
}
