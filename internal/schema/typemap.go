package schema

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/koustreak/dbscope/internal/database"
	"github.com/koustreak/dbscope/internal/errs"
)

// oracleIntegerDigits is the widest NUMBER(p,0) still mapped to Integer.
const oracleIntegerDigits = 11

// postgresTypes is keyed by type OID.
var postgresTypes = map[uint32]FieldKind{
	pgtype.BoolOID:        KindBoolean,
	pgtype.Int8OID:        KindBigInteger,
	pgtype.Int2OID:        KindSmallInteger,
	pgtype.Int4OID:        KindInteger,
	pgtype.TextOID:        KindText,
	pgtype.Float4OID:      KindFloat,
	pgtype.Float8OID:      KindFloat,
	pgtype.InetOID:        KindGenericIPAddress,
	pgtype.BPCharOID:      KindChar,
	pgtype.VarcharOID:     KindChar,
	pgtype.DateOID:        KindDate,
	pgtype.TimeOID:        KindTime,
	pgtype.TimestampOID:   KindDateTime,
	pgtype.TimestamptzOID: KindDateTime,
	pgtype.TimetzOID:      KindTime,
	pgtype.NumericOID:     KindDecimal,
}

// mysqlTypes is keyed by the driver's type name, unsigned prefix removed.
var mysqlTypes = map[string]FieldKind{
	"BLOB":       KindText,
	"TINYBLOB":   KindText,
	"MEDIUMBLOB": KindText,
	"LONGBLOB":   KindText,
	"TEXT":       KindText,
	"TINYTEXT":   KindText,
	"MEDIUMTEXT": KindText,
	"LONGTEXT":   KindText,
	"CHAR":       KindChar,
	"VARCHAR":    KindChar,
	"DECIMAL":    KindDecimal,
	"DATE":       KindDate,
	"DATETIME":   KindDateTime,
	"TIMESTAMP":  KindDateTime,
	"TIME":       KindTime,
	"DOUBLE":     KindFloat,
	"FLOAT":      KindFloat,
	"TINYINT":    KindInteger,
	"SMALLINT":   KindInteger,
	"MEDIUMINT":  KindInteger,
	"INT":        KindInteger,
	"BIGINT":     KindBigInteger,
}

// oracleTypes is keyed by the driver's type name.
var oracleTypes = map[string]FieldKind{
	"CLOB":                           KindText,
	"NCLOB":                          KindText,
	"LONG":                           KindText,
	"DATE":                           KindDate,
	"CHAR":                           KindChar,
	"NCHAR":                          KindChar,
	"VARCHAR":                        KindChar,
	"VARCHAR2":                       KindChar,
	"NVARCHAR2":                      KindChar,
	"NUMBER":                         KindDecimal,
	"TIMESTAMP":                      KindDateTime,
	"TIMESTAMP WITH TIME ZONE":       KindDateTime,
	"TIMESTAMP WITH LOCAL TIME ZONE": KindDateTime,
	"BINARY_FLOAT":                   KindFloat,
	"BINARY_DOUBLE":                  KindFloat,
	"FLOAT":                          KindFloat,
}

// sqliteTypes is the textual vocabulary of declared SQLite column types,
// matched case-insensitively.
var sqliteTypes = map[string]FieldKind{
	"bool":              KindBoolean,
	"boolean":           KindBoolean,
	"smallint":          KindSmallInteger,
	"smallint unsigned": KindPositiveSmallInteger,
	"smallinteger":      KindSmallInteger,
	"int":               KindInteger,
	"integer":           KindInteger,
	"bigint":            KindBigInteger,
	"integer unsigned":  KindPositiveInteger,
	"decimal":           KindDecimal,
	"real":              KindFloat,
	"text":              KindText,
	"char":              KindChar,
	"date":              KindDate,
	"datetime":          KindDateTime,
	"time":              KindTime,
}

var sqliteCharPattern = regexp.MustCompile(`^\s*(?:var)?char\s*\(\s*(\d+)\s*\)\s*$`)

// typeMapper translates native column types into FieldTypes. It holds no
// connection and performs no I/O.
type typeMapper struct {
	backend   database.Driver
	overrides map[string]FieldKind
}

func newTypeMapper(backend database.Driver, overrides map[string]FieldKind) typeMapper {
	m := typeMapper{backend: backend}
	if len(overrides) > 0 {
		m.overrides = make(map[string]FieldKind, len(overrides))
		for name, kind := range overrides {
			m.overrides[normalizeTypeName(name)] = kind
		}
	}
	return m
}

// mapType resolves col in order: caller overrides, backend rule, static
// table, SQLite fallbacks.
func (m typeMapper) mapType(col database.ColumnDesc) (FieldType, error) {
	if kind, ok := m.overrides[normalizeTypeName(col.TypeName)]; ok {
		return withLength(kind, col), nil
	}

	switch m.backend {
	case database.DriverPostgres:
		if kind, ok := postgresTypes[col.TypeOID]; ok {
			return withLength(kind, col), nil
		}

	case database.DriverMySQL:
		name := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(col.TypeName)), "UNSIGNED ")
		if kind, ok := mysqlTypes[name]; ok {
			return withLength(kind, col), nil
		}

	case database.DriverOracle:
		name := strings.ToUpper(strings.TrimSpace(col.TypeName))
		if name == "NUMBER" && col.Scale != nil && *col.Scale == 0 {
			if col.Precision != nil && *col.Precision > oracleIntegerDigits {
				return FieldType{Kind: KindBigInteger}, nil
			}
			return FieldType{Kind: KindInteger}, nil
		}
		if kind, ok := oracleTypes[name]; ok {
			return withLength(kind, col), nil
		}

	case database.DriverSQLite:
		if kind, ok := sqliteTypes[normalizeTypeName(col.TypeName)]; ok {
			return withLength(kind, col), nil
		}
		if match := sqliteCharPattern.FindStringSubmatch(strings.ToLower(col.TypeName)); match != nil {
			n, _ := strconv.Atoi(match[1])
			return FieldType{Kind: KindChar, MaxLength: n}, nil
		}
	}

	return FieldType{}, errs.Newf(errs.ErrKindUnknownType,
		"no field type for %s column %q of type %q (oid %d)", m.backend, col.Name, col.TypeName, col.TypeOID)
}

// withLength attaches the declared length to character kinds.
func withLength(kind FieldKind, col database.ColumnDesc) FieldType {
	ft := FieldType{Kind: kind}
	if kind == KindChar && col.Length != nil && *col.Length > 0 {
		ft.MaxLength = int(*col.Length)
	}
	return ft
}

func normalizeTypeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
