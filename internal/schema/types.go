package schema

import (
	"time"

	"github.com/koustreak/dbscope/internal/database"
)

// ForeignKey is a single-column reference from a column of one table to a
// column of another. Composite constraints contribute one edge per column
// pair.
type ForeignKey struct {
	Column       string         `json:"column" yaml:"column"`
	Target       database.QName `json:"target" yaml:"target"`
	TargetColumn string         `json:"target_column" yaml:"target_column"`
}

// IndexInfo tells whether a column alone carries a primary-key or unique
// index. Indexes spanning several columns are never reported.
type IndexInfo struct {
	PrimaryKey bool `json:"primary_key" yaml:"primary_key"`
	Unique     bool `json:"unique" yaml:"unique"`
}

// Relation is the resolved target of a foreign-key column: the ordinal of
// the referenced column within its table, and the table itself.
type Relation struct {
	TargetOrdinal int            `json:"target_ordinal" yaml:"target_ordinal"`
	Target        database.QName `json:"target" yaml:"target"`
}

// ColumnInfo is a described column together with its portable field type.
type ColumnInfo struct {
	database.ColumnDesc `yaml:",inline"`

	Ordinal    int        `json:"ordinal" yaml:"ordinal"`
	Field      *FieldType `json:"field,omitempty" yaml:"field,omitempty"`
	PrimaryKey bool       `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	Unique     bool       `json:"unique,omitempty" yaml:"unique,omitempty"`
}

// TableInfo is everything known about one table.
type TableInfo struct {
	Name        database.QName       `json:"name" yaml:"name"`
	Columns     []ColumnInfo         `json:"columns" yaml:"columns"`
	PrimaryKey  string               `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	ForeignKeys []ForeignKey         `json:"foreign_keys,omitempty" yaml:"foreign_keys,omitempty"`
	Indexes     map[string]IndexInfo `json:"indexes,omitempty" yaml:"indexes,omitempty"`
	Relations   map[int]Relation     `json:"relations,omitempty" yaml:"relations,omitempty"`

	// UnmappedTypes lists columns whose native type has no portable kind.
	UnmappedTypes []string `json:"unmapped_types,omitempty" yaml:"unmapped_types,omitempty"`
}

// Snapshot is the introspected state of every visible table at one moment.
type Snapshot struct {
	Backend    database.Driver `json:"backend" yaml:"backend"`
	SearchPath []string        `json:"search_path,omitempty" yaml:"search_path,omitempty"`
	TakenAt    time.Time       `json:"taken_at" yaml:"taken_at"`
	Tables     []TableInfo     `json:"tables" yaml:"tables"`
}
