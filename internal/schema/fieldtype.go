package schema

// FieldKind is the portable, backend-neutral kind of a column.
type FieldKind string

const (
	KindBoolean              FieldKind = "Boolean"
	KindSmallInteger         FieldKind = "SmallInteger"
	KindPositiveSmallInteger FieldKind = "PositiveSmallInteger"
	KindInteger              FieldKind = "Integer"
	KindPositiveInteger      FieldKind = "PositiveInteger"
	KindBigInteger           FieldKind = "BigInteger"
	KindDecimal              FieldKind = "Decimal"
	KindFloat                FieldKind = "Float"
	KindChar                 FieldKind = "Char"
	KindText                 FieldKind = "Text"
	KindDate                 FieldKind = "Date"
	KindTime                 FieldKind = "Time"
	KindDateTime             FieldKind = "DateTime"
	KindGenericIPAddress     FieldKind = "GenericIPAddress"
)

// FieldType is the result of mapping a native column type.
// MaxLength is set for Char fields whose length is known.
type FieldType struct {
	Kind      FieldKind `json:"kind" yaml:"kind"`
	MaxLength int       `json:"max_length,omitempty" yaml:"max_length,omitempty"`
}

func (f FieldType) String() string {
	return string(f.Kind)
}
