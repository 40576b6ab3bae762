package database

import (
	"strings"

	"github.com/koustreak/dbscope/internal/errs"
)

// QName identifies a table or view: an optional schema, a table name and a
// flag telling whether the pair is already in the backend's canonical
// (catalog) form. QName is a value type; compare with ==.
type QName struct {
	Schema string `json:"schema,omitempty" yaml:"schema,omitempty"`
	Table  string `json:"table" yaml:"table"`

	// DBFormat marks a name that came from the catalog or has already been
	// resolved against the connection. Resolvers return such names untouched
	// when they carry a schema.
	DBFormat bool `json:"-" yaml:"-"`
}

// Table builds an unresolved QName without schema.
func Table(name string) QName {
	return QName{Table: name}
}

// ParseQName splits "schema.table" at the first dot. A name without a dot
// yields an unqualified QName.
func ParseQName(s string) QName {
	s = strings.TrimSpace(s)
	if schema, table, ok := strings.Cut(s, "."); ok {
		return QName{Schema: schema, Table: table}
	}
	return QName{Table: s}
}

// Validate rejects names without a table component.
func (q QName) Validate() error {
	if strings.TrimSpace(q.Table) == "" {
		return errs.New(errs.ErrKindInvalidInput, "qualified name has an empty table")
	}
	return nil
}

// String renders the name unquoted, for logs and map keys.
func (q QName) String() string {
	if q.Schema == "" {
		return q.Table
	}
	return q.Schema + "." + q.Table
}
