package gen

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	atlas "ariga.io/atlas/sql/schema"
	"github.com/dave/jennifer/jen"

	"github.com/syssam/entgen/dialect/sql/schema"
)

// Kind is the semantic type of a field.
type Kind uint8

// Semantic field kinds. KindOther covers user types, which are referenced
// by name in generated code and stored as TEXT.
const (
	KindOther Kind = iota
	KindUUID
	KindString
	KindBool
	KindInt
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindTime
	KindDate
	KindClock
	KindDateTime
	KindJSON
	KindDecimal
	KindInet
	KindMAC
	KindBytes
)

var kindNames = [...]string{
	KindOther:    "other",
	KindUUID:     "uuid",
	KindString:   "string",
	KindBool:     "bool",
	KindInt:      "int",
	KindInt8:     "int8",
	KindInt16:    "int16",
	KindInt32:    "int32",
	KindInt64:    "int64",
	KindUint8:    "uint8",
	KindUint16:   "uint16",
	KindUint32:   "uint32",
	KindUint64:   "uint64",
	KindFloat32:  "float32",
	KindFloat64:  "float64",
	KindTime:     "time",
	KindDate:     "date",
	KindClock:    "clock",
	KindDateTime: "datetime",
	KindJSON:     "json",
	KindDecimal:  "decimal",
	KindInet:     "inet",
	KindMAC:      "mac",
	KindBytes:    "bytes",
}

// kindAliases maps accepted type spellings onto kinds, in addition to the
// canonical names above.
var kindAliases = map[string]Kind{
	"uuid.uuid":       KindUUID,
	"text":            KindString,
	"boolean":         KindBool,
	"byte":            KindUint8,
	"float":           KindFloat64,
	"double":          KindFloat64,
	"time.time":       KindTime,
	"timestamptz":     KindTime,
	"timestamp":       KindDateTime,
	"json.rawmessage": KindJSON,
	"jsonb":           KindJSON,
	"numeric":         KindDecimal,
	"[]byte":          KindBytes,
	"bytea":           KindBytes,
}

// String returns the canonical name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Numeric reports whether the kind is an integer or float.
func (k Kind) Numeric() bool {
	return k >= KindInt && k <= KindFloat64
}

// Orderable reports whether values of the kind support range comparison.
func (k Kind) Orderable() bool {
	return k.Numeric() || k == KindString || (k >= KindTime && k <= KindDateTime) || k == KindDecimal
}

// TypeInfo is the parsed declared type of a field.
//
// The declared syntax is `[]base?`: a leading `[]` marks an array (a
// Postgres array column and a Go slice) and a trailing `?` marks an
// optional (nullable) value.
type TypeInfo struct {
	Kind Kind
	// Ident is the declared base name, kept verbatim for KindOther.
	Ident    string
	Optional bool
	Array    bool
}

// ParseTypeInfo parses a declared field type.
func ParseTypeInfo(s string) (*TypeInfo, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return nil, errors.New("empty type")
	}
	ti := &TypeInfo{}
	if base, ok := strings.CutSuffix(raw, "?"); ok {
		ti.Optional, raw = true, strings.TrimSpace(base)
	}
	if strings.EqualFold(raw, "[]byte") {
		ti.Kind, ti.Ident = KindBytes, raw
		return ti, nil
	}
	if base, ok := strings.CutPrefix(raw, "[]"); ok {
		ti.Array, raw = true, strings.TrimSpace(base)
	}
	if raw == "" || strings.ContainsAny(raw, "?[] ") {
		return nil, fmt.Errorf("malformed type %q", s)
	}
	ti.Ident = raw
	ti.Kind = lookupKind(raw)
	return ti, nil
}

func lookupKind(name string) Kind {
	lower := strings.ToLower(name)
	for k, n := range kindNames {
		if Kind(k) != KindOther && n == lower {
			return Kind(k)
		}
	}
	if k, ok := kindAliases[lower]; ok {
		return k
	}
	return KindOther
}

// String renders the type back into its declared syntax.
func (ti *TypeInfo) String() string {
	s := ti.Ident
	if ti.Kind != KindOther {
		s = ti.Kind.String()
	}
	if ti.Array {
		s = "[]" + s
	}
	if ti.Optional {
		s += "?"
	}
	return s
}

// SQLType returns the Postgres column type for the given type. varchar,
// when positive, narrows strings to VARCHAR(n).
func (ti *TypeInfo) SQLType(varchar int) string {
	var s string
	switch ti.Kind {
	case KindUUID:
		s = "UUID"
	case KindString:
		s = "TEXT"
		if varchar > 0 {
			s = "VARCHAR(" + strconv.Itoa(varchar) + ")"
		}
	case KindInt8, KindInt16, KindUint8:
		s = "SMALLINT"
	case KindInt32, KindUint16:
		s = "INTEGER"
	case KindInt, KindInt64, KindUint32, KindUint64:
		s = "BIGINT"
	case KindFloat32:
		s = "REAL"
	case KindFloat64:
		s = "DOUBLE PRECISION"
	case KindBool:
		s = "BOOLEAN"
	case KindTime:
		s = "TIMESTAMPTZ"
	case KindDate:
		s = "DATE"
	case KindClock:
		s = "TIME"
	case KindDateTime:
		s = "TIMESTAMP"
	case KindJSON:
		s = "JSONB"
	case KindDecimal:
		s = "DECIMAL"
	case KindInet:
		s = "INET"
	case KindMAC:
		s = "MACADDR"
	case KindBytes:
		s = "BYTEA"
	default:
		s = "TEXT"
	}
	if ti.Array {
		s += "[]"
	}
	return s
}

// goBase returns the Go type of one element, ignoring Array and Optional.
func (ti *TypeInfo) goBase() *jen.Statement {
	switch ti.Kind {
	case KindUUID:
		return jen.Qual("github.com/google/uuid", "UUID")
	case KindString, KindDecimal, KindInet, KindMAC:
		return jen.String()
	case KindBool:
		return jen.Bool()
	case KindInt:
		return jen.Int()
	case KindInt8:
		return jen.Int8()
	case KindInt16:
		return jen.Int16()
	case KindInt32:
		return jen.Int32()
	case KindInt64:
		return jen.Int64()
	case KindUint8:
		return jen.Uint8()
	case KindUint16:
		return jen.Uint16()
	case KindUint32:
		return jen.Uint32()
	case KindUint64:
		return jen.Uint64()
	case KindFloat32:
		return jen.Float32()
	case KindFloat64:
		return jen.Float64()
	case KindTime, KindDate, KindClock, KindDateTime:
		return jen.Qual("time", "Time")
	case KindJSON:
		return jen.Qual("encoding/json", "RawMessage")
	case KindBytes:
		return jen.Index().Byte()
	default:
		return jen.Id(ti.Ident)
	}
}

// GoBase returns the Go type without the optional pointer. Arrays are
// slices, whose nil value already stands for NULL.
func (ti *TypeInfo) GoBase() *jen.Statement {
	if ti.Array {
		return jen.Index().Add(ti.goBase())
	}
	return ti.goBase()
}

// GoType returns the Go type of a stored value: GoBase, behind a pointer
// when the type is optional and not an array.
func (ti *TypeInfo) GoType() *jen.Statement {
	if ti.Optional && !ti.Array {
		return jen.Op("*").Add(ti.goBase())
	}
	return ti.GoBase()
}

// FilterKind selects how a field takes part in the generated filter.
type FilterKind uint8

// Filter kinds.
const (
	FilterNone FilterKind = iota
	FilterEq
	FilterLike
	FilterRange
)

// String returns the attribute spelling of the filter kind.
func (k FilterKind) String() string {
	switch k {
	case FilterEq:
		return "eq"
	case FilterLike:
		return "like"
	case FilterRange:
		return "range"
	default:
		return "none"
	}
}

// ParseFilterKind parses the value of a `filter` attribute.
func ParseFilterKind(s string) (FilterKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "eq", "exact":
		return FilterEq, nil
	case "like", "ilike":
		return FilterLike, nil
	case "range":
		return FilterRange, nil
	case "none", "off":
		return FilterNone, nil
	default:
		return FilterNone, fmt.Errorf("unknown filter %q (expected none, eq, like or range)", s)
	}
}

type (
	// Field is one field of an entity.
	Field struct {
		// Name is the declared (snake_case) field name.
		Name string
		// Type holds the parsed declared type.
		Type *TypeInfo
		// Exposure flags. Skip clears the other three.
		InCreate, InUpdate, InResponse, Skip bool
		// ID marks the identifier field.
		ID bool
		// Auto marks a value assigned by the database.
		Auto bool
		// BelongsTo is set for foreign-key fields.
		BelongsTo *Relation
		// Filter is the query filter kind of the field.
		Filter FilterKind
		// Column holds storage hints.
		Column Column
		// Doc is the field documentation.
		Doc string
		// Implicit marks fields the model builder added, such as the
		// deleted_at column of soft-deleted entities.
		Implicit bool
	}

	// Column holds the storage hints of a field.
	Column struct {
		// Name overrides the column name.
		Name    string
		Unique  bool
		Index   schema.IndexKind
		Default string
		Check   string
		// Varchar narrows a string column to VARCHAR(n).
		Varchar int
		// SQLType overrides the mapped column type.
		SQLType string
		// Nullable overrides the nullability derived from the type.
		Nullable *bool
	}

	// Relation is a reference to another entity. For belongs_to fields it
	// is stored on the field; has_many relations are stored on the type.
	Relation struct {
		// Target is the referenced type name.
		Target string
		// OnDelete is the referential action of a belongs_to relation.
		OnDelete atlas.ReferenceOption
		// Type is the resolved target, set by NewGraph when the target is
		// part of the same graph.
		Type *Type
		// Field is the referenced field: the target id of a belongs_to
		// relation, or the foreign key on the target of a has_many one.
		Field *Field
	}
)

// StructField returns the Go struct field name.
func (f *Field) StructField() string {
	return pascal(f.Name)
}

// ColumnName returns the storage column name.
func (f *Field) ColumnName() string {
	if f.Column.Name != "" {
		return f.Column.Name
	}
	return f.Name
}

// Nullable reports whether the column accepts NULL.
func (f *Field) Nullable() bool {
	if f.Column.Nullable != nil {
		return *f.Column.Nullable
	}
	return f.Type.Optional
}

// SQLType returns the column type, honoring the sql_type override.
func (f *Field) SQLType() string {
	if f.Column.SQLType != "" {
		return f.Column.SQLType
	}
	return f.Type.SQLType(f.Column.Varchar)
}

// IsArray reports whether the field is stored as a Postgres array.
func (f *Field) IsArray() bool {
	return f.Type.Array
}

// IsOptional reports whether the Go value of the field is a pointer.
func (f *Field) IsOptional() bool {
	return f.Type.Optional && !f.Type.Array
}

// Resolved reports whether the relation target was found in the graph.
func (r *Relation) Resolved() bool {
	return r != nil && r.Type != nil
}
