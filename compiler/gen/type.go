package gen

import (
	"errors"
	"fmt"
	"go/token"
	"log/slog"
	"slices"
	"strings"

	"github.com/syssam/entgen/compiler/load"
	"github.com/syssam/entgen/dialect/sql/schema"
)

// SQLLevel selects how much repository code an entity gets.
type SQLLevel uint8

// SQL levels.
const (
	// SQLFull emits the repository interface and the dialect backend.
	SQLFull SQLLevel = iota
	// SQLTrait emits the repository interface only.
	SQLTrait
	// SQLNone emits neither.
	SQLNone
)

func (l SQLLevel) String() string {
	switch l {
	case SQLTrait:
		return "trait"
	case SQLNone:
		return "none"
	default:
		return "full"
	}
}

// ParseSQLLevel parses the `sql` entity attribute.
func ParseSQLLevel(s string) (SQLLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "full":
		return SQLFull, nil
	case "trait":
		return SQLTrait, nil
	case "none":
		return SQLNone, nil
	default:
		return SQLFull, fmt.Errorf("unknown sql level %q (expected full, trait or none)", s)
	}
}

// IDStrategy selects how client-side identifiers are generated.
type IDStrategy uint8

// Identifier strategies.
const (
	// IDv7 generates time-ordered UUIDs.
	IDv7 IDStrategy = iota
	// IDv4 generates random UUIDs.
	IDv4
	// IDULID generates ULIDs stored as UUIDs.
	IDULID
)

func (s IDStrategy) String() string {
	switch s {
	case IDv4:
		return "v4"
	case IDULID:
		return "ulid"
	default:
		return "v7"
	}
}

// Generator returns the name of the runtime function producing ids.
func (s IDStrategy) Generator() string {
	switch s {
	case IDv4:
		return "NewUUIDv4"
	case IDULID:
		return "NewULID"
	default:
		return "NewUUIDv7"
	}
}

// ParseIDStrategy parses the `uuid` entity attribute.
func ParseIDStrategy(s string) (IDStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "v7", "7":
		return IDv7, nil
	case "v4", "4":
		return IDv4, nil
	case "ulid":
		return IDULID, nil
	default:
		return IDv7, fmt.Errorf("unknown uuid version %q (expected v7, v4 or ulid)", s)
	}
}

// ReturningMode controls what a write reads back.
type ReturningMode uint8

// Returning modes.
const (
	// ReturningFull reads the complete row in the write statement.
	ReturningFull ReturningMode = iota
	// ReturningIDOnly returns the id and re-reads the row.
	ReturningIDOnly
	// ReturningNone trusts the pre-built value without a round trip.
	ReturningNone
	// ReturningColumns returns a column list and re-reads the row.
	ReturningColumns
)

// Returning is the write-return mode of an entity.
type Returning struct {
	Mode ReturningMode
	// Columns is set for ReturningColumns.
	Columns []string
}

func (r Returning) String() string {
	switch r.Mode {
	case ReturningIDOnly:
		return "id"
	case ReturningNone:
		return "none"
	case ReturningColumns:
		return strings.Join(r.Columns, ", ")
	default:
		return "full"
	}
}

// ParseReturning parses the `returning` entity attribute. Values other than
// full, id and none are read as a comma-separated column list.
func ParseReturning(s string) (Returning, error) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "", "full":
		return Returning{Mode: ReturningFull}, nil
	case "id", "id_only":
		return Returning{Mode: ReturningIDOnly}, nil
	case "none":
		return Returning{Mode: ReturningNone}, nil
	}
	cols := (&load.Attr{Value: s}).Values()
	for _, c := range cols {
		if !token.IsIdentifier(c) {
			return Returning{}, fmt.Errorf("expected full, id, none or a column list, got %q", s)
		}
	}
	return Returning{Mode: ReturningColumns, Columns: cols}, nil
}

// Index is a composite index declared at entity level.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
	Kind    schema.IndexKind
	Where   string
	fields  []*Field
}

// ColumnNames returns the resolved column names of the index.
func (idx *Index) ColumnNames() []string {
	names := make([]string, len(idx.fields))
	for i, f := range idx.fields {
		names[i] = f.ColumnName()
	}
	return names
}

// Type is the validated model of one entity. It is built once by NewType
// and read-only afterwards.
type Type struct {
	*Config
	schema *load.Schema
	// Name holds the entity type name.
	Name string
	// Visibility is the declared visibility marker, "public" by default.
	Visibility string
	// Table and Schema locate the storage table.
	Table  string
	Schema string
	// Dialect is the storage dialect of the entity.
	Dialect Dialect
	// IDStrategy generates client-side ids of uuid identifiers.
	IDStrategy IDStrategy
	// Error names a user function mapping repository errors.
	Error string
	// Fields holds the fields in declaration order, including implicit ones.
	Fields []*Field
	idIndex int
	// SoftDelete marks rows deleted through a deleted_at column.
	SoftDelete bool
	// Returning is the write-return mode.
	Returning Returning
	// Relations are the has_many declarations.
	Relations   []*Relation
	Projections []*Projection
	Commands    []*Command
	Indexes     []*Index
	SQLLevel    SQLLevel
	// API is the raw API declaration tree. It is kept on the model only.
	API *load.Attr
	// Doc is the entity documentation.
	Doc string

	features featureSet
	fields   map[string]*Field
}

// DeletedAt is the column name of the soft-delete marker.
const DeletedAt = "deleted_at"

// NewType builds and validates the model of one entity. Every fault of the
// entity is reported, joined into one error.
func NewType(c *Config, s *load.Schema) (*Type, error) {
	if c == nil {
		c = DefaultConfig()
	}
	if s == nil {
		return nil, NewSchemaError("", "", "nil schema", nil)
	}
	if s.Kind != "" && s.Kind != load.KindStruct {
		return nil, NewSchemaError(s.Name, "", "not a product type", fmt.Errorf("kind %s", s.Kind))
	}
	if len(s.Fields) == 0 {
		return nil, NewSchemaError(s.Name, "", "positional/unit fields unsupported", nil)
	}
	logger := c.logger()
	var errs []error
	ea, err := ExtractEntityAttrs(s, logger)
	if err != nil {
		errs = append(errs, err)
	}
	t := &Type{
		Config:      c,
		schema:      s,
		Name:        s.Name,
		Visibility:  s.Visibility,
		Table:       ea.Table,
		Schema:      ea.Schema,
		Dialect:     ea.Dialect,
		IDStrategy:  ea.IDStrategy,
		Error:       ea.Error,
		idIndex:     -1,
		SoftDelete:  ea.SoftDelete,
		Returning:   ea.Returning,
		Projections: ea.Projections,
		Commands:    ea.Commands,
		Indexes:     ea.Indexes,
		SQLLevel:    ea.SQLLevel,
		API:         ea.API,
		Doc:         s.Doc,
		features:    resolveFeatures(c.Features, ea.Features),
		fields:      make(map[string]*Field, len(s.Fields)),
	}
	if t.Visibility == "" {
		t.Visibility = "public"
	}
	if !token.IsIdentifier(t.Name) || !token.IsExported(t.Name) {
		errs = append(errs, NewSchemaError(t.Name, "", "type name must be an exported Go identifier", nil))
	}
	if t.Table == "" {
		errs = append(errs, NewSchemaError(t.Name, "", "missing required table designation", nil))
	}
	for _, target := range ea.HasMany {
		t.Relations = append(t.Relations, &Relation{Target: target})
	}
	for _, lf := range s.Fields {
		f, err := t.newField(lf, logger)
		if err != nil {
			errs = append(errs, err)
		}
		if f == nil {
			continue
		}
		if _, ok := t.fields[f.Name]; ok {
			errs = append(errs, NewSchemaError(t.Name, f.Name, "duplicate field", nil))
			continue
		}
		t.addField(f)
	}
	if err := t.setupSoftDelete(); err != nil {
		errs = append(errs, err)
	}
	if err := t.setupID(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, t.checkReferences()...)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	logger.Debug("built entity model", "type", t.Name, "table", t.QualifiedTable(), "fields", len(t.Fields), "features", t.Features())
	return t, nil
}

func (t *Type) newField(lf *load.Field, logger *slog.Logger) (*Field, error) {
	if lf.Name == "" {
		return nil, NewSchemaError(t.Name, "", "positional/unit fields unsupported", nil)
	}
	if !token.IsIdentifier(lf.Name) {
		return nil, NewSchemaError(t.Name, lf.Name, "field name must be an identifier", nil)
	}
	var errs []error
	ti, err := ParseTypeInfo(lf.Type)
	if err != nil {
		errs = append(errs, NewSchemaError(t.Name, lf.Name, "invalid field type", err))
	}
	fa, err := ExtractFieldAttrs(t.Name, lf, logger)
	if err != nil {
		errs = append(errs, err)
	}
	if ti == nil {
		return nil, errors.Join(errs...)
	}
	f := &Field{
		Name:       lf.Name,
		Type:       ti,
		InCreate:   fa.InCreate,
		InUpdate:   fa.InUpdate,
		InResponse: fa.InResponse,
		Skip:       fa.Skip,
		ID:         fa.ID,
		Auto:       fa.Auto,
		BelongsTo:  fa.BelongsTo,
		Filter:     fa.Filter,
		Column:     fa.Column,
		Doc:        lf.Doc,
	}
	switch {
	case f.Filter == FilterLike && (ti.Kind != KindString || ti.Array):
		errs = append(errs, NewValidationError(t.Name, f.Name, ti.String(), "like filter requires a string field"))
	case f.Filter == FilterRange && (!ti.Kind.Orderable() || ti.Array):
		errs = append(errs, NewValidationError(t.Name, f.Name, ti.String(), "range filter requires an orderable field"))
	}
	return f, errors.Join(errs...)
}

func (t *Type) addField(f *Field) {
	t.Fields = append(t.Fields, f)
	t.fields[f.Name] = f
}

// setupSoftDelete adds the implicit deleted_at column, or checks the
// declared one.
func (t *Type) setupSoftDelete() error {
	if !t.SoftDelete {
		return nil
	}
	if f, ok := t.fields[DeletedAt]; ok {
		if f.Type.Kind != KindTime || !f.Type.Optional || f.Type.Array {
			return NewSchemaError(t.Name, DeletedAt, "soft delete column must be of type time?", nil)
		}
		return nil
	}
	t.addField(&Field{
		Name:     DeletedAt,
		Type:     &TypeInfo{Kind: KindTime, Ident: "time", Optional: true},
		Doc:      "DeletedAt is set when the row is soft-deleted.",
		Implicit: true,
	})
	return nil
}

func (t *Type) setupID() error {
	var ids []string
	for i, f := range t.Fields {
		if f.ID {
			ids = append(ids, f.Name)
			t.idIndex = i
		}
	}
	switch {
	case len(ids) == 0:
		t.idIndex = -1
		return NewSchemaError(t.Name, "", "no identifier field present", nil)
	case len(ids) > 1:
		t.idIndex = -1
		return NewSchemaError(t.Name, "", "multiple identifier fields: "+strings.Join(ids, ", "), nil)
	}
	id := t.Fields[t.idIndex]
	switch {
	case id.Type.Optional || id.Type.Array:
		return NewSchemaError(t.Name, id.Name, "identifier field cannot be optional or an array", nil)
	case id.Type.Kind != KindUUID && !id.Auto:
		return NewSchemaError(t.Name, id.Name, "identifier field must be a uuid or marked auto", nil)
	case id.BelongsTo != nil:
		return NewSchemaError(t.Name, id.Name, "identifier field cannot be a relation", nil)
	}
	return nil
}

// checkReferences verifies every field name referenced by projections,
// commands, indexes and the returning column list.
func (t *Type) checkReferences() []error {
	var errs []error
	missing := func(where, name string) {
		errs = append(errs, NewSchemaError(t.Name, name, where+" references unknown field", nil))
	}
	// once reports whether name is listed for the first time in where.
	once := func(where string, listed map[string]bool, name string) bool {
		if listed[name] {
			errs = append(errs, NewSchemaError(t.Name, name, where+" lists field twice", nil))
			return false
		}
		listed[name] = true
		return true
	}
	seen := make(map[string]bool)
	for _, p := range t.Projections {
		if seen["p:"+p.Name] {
			errs = append(errs, NewSchemaError(t.Name, "", "duplicate projection "+p.Name, nil))
		}
		seen["p:"+p.Name] = true
		if len(p.Fields) == 0 {
			errs = append(errs, NewSchemaError(t.Name, "", "projection "+p.Name+" names no fields", nil))
			continue
		}
		listed := make(map[string]bool, len(p.Fields))
		for _, name := range p.Fields {
			if !once("projection "+p.Name, listed, name) {
				continue
			}
			f, ok := t.fields[name]
			if !ok {
				missing("projection "+p.Name, name)
				continue
			}
			p.fields = append(p.fields, f)
		}
	}
	for _, c := range t.Commands {
		if seen["c:"+c.Name] {
			errs = append(errs, NewSchemaError(t.Name, "", "duplicate command "+c.Name, nil))
		}
		seen["c:"+c.Name] = true
		listed := make(map[string]bool, len(c.Fields))
		for _, name := range c.Fields {
			if !once("command "+c.Name, listed, name) {
				continue
			}
			if _, ok := t.fields[name]; !ok {
				missing("command "+c.Name, name)
			}
		}
	}
	for _, idx := range t.Indexes {
		for _, name := range idx.Columns {
			f, ok := t.fieldOrColumn(name)
			if !ok {
				missing("index", name)
				continue
			}
			idx.fields = append(idx.fields, f)
		}
	}
	if t.Returning.Mode == ReturningColumns {
		for _, name := range t.Returning.Columns {
			if _, ok := t.fieldOrColumn(name); !ok {
				missing("returning", name)
			}
		}
	}
	return errs
}

func (t *Type) fieldOrColumn(name string) (*Field, bool) {
	if f, ok := t.fields[name]; ok {
		return f, true
	}
	for _, f := range t.Fields {
		if f.ColumnName() == name {
			return f, true
		}
	}
	return nil, false
}

// ID returns the identifier field.
func (t *Type) ID() *Field {
	if t.idIndex < 0 {
		return nil
	}
	return t.Fields[t.idIndex]
}

// Field returns the field with the given name.
func (t *Type) Field(name string) (*Field, bool) {
	f, ok := t.fields[name]
	return f, ok
}

// Pos returns the position of the schema document.
func (t *Type) Pos() string {
	if t.schema == nil {
		return ""
	}
	return t.schema.Pos
}

// HasFeature reports whether the named feature is enabled for the entity.
func (t *Type) HasFeature(name string) bool {
	return t.features[name]
}

// FeatureEnabled is HasFeature that reports unknown names as a ConfigError.
func (t *Type) FeatureEnabled(name string) (bool, error) {
	if _, ok := FeatureByName(name); !ok {
		return false, NewConfigError("Features", name, "unknown feature")
	}
	return t.features[name], nil
}

// Features returns the enabled feature names.
func (t *Type) Features() []string {
	return t.features.names()
}

// QualifiedTable returns schema.table.
func (t *Type) QualifiedTable() string {
	return t.Schema + "." + t.Table
}

// Label returns the snake_case entity name used in errors and logs.
func (t *Type) Label() string {
	return snake(t.Name)
}

// Receiver returns the receiver name of generated methods.
func (t *Type) Receiver() string {
	return receiver(t.Name)
}

// FileName returns the base name of generated files, e.g. "order_item".
func (t *Type) FileName() string {
	return snake(t.Name)
}

// HasRepository reports whether the repository interface is emitted.
func (t *Type) HasRepository() bool {
	return t.SQLLevel != SQLNone
}

// HasBackend reports whether a dialect backend is emitted.
func (t *Type) HasBackend() bool {
	return t.SQLLevel == SQLFull
}

// HasProjection reports whether a projection of that name exists.
func (t *Type) HasProjection(name string) bool {
	return slices.ContainsFunc(t.Projections, func(p *Projection) bool { return p.Name == name })
}

// ClientID reports whether ids are generated client-side on create.
func (t *Type) ClientID() bool {
	id := t.ID()
	return id != nil && !id.Auto && id.Type.Kind == KindUUID
}

// Generated type names.

func (t *Type) RepositoryName() string { return t.Name + "Repository" }
func (t *Type) PgRepositoryName() string { return "Pg" + t.Name + "Repository" }
func (t *Type) CreateRequestName() string { return "Create" + t.Name + "Request" }
func (t *Type) UpdateRequestName() string { return "Update" + t.Name + "Request" }
func (t *Type) ResponseName() string { return t.Name + "Response" }
func (t *Type) FilterName() string { return t.Name + "Filter" }
func (t *Type) EventName() string { return t.Name + "Event" }
func (t *Type) EventEnvelopeName() string { return t.Name + "EventEnvelope" }
func (t *Type) CommandName() string { return t.Name + "Command" }
func (t *Type) CommandResultName() string { return t.Name + "CommandResult" }
func (t *Type) CommandHandlerName() string { return t.Name + "CommandHandler" }
func (t *Type) PolicyName() string { return t.Name + "Policy" }
func (t *Type) HooksName() string { return t.Name + "Hooks" }
func (t *Type) SubscriberName() string { return t.Name + "Subscriber" }
func (t *Type) TxRepositoryName() string { return t.Name + "TxRepository" }

// PluralName returns the pluralized type name, e.g. "Categories".
func (t *Type) PluralName() string {
	return pascal(plural(t.Name))
}

// Unexported identifiers of generated package-level values.

func (t *Type) TableConst() string { return camel(t.Name) + "Table" }
func (t *Type) ColumnsVar() string { return camel(t.Name) + "Columns" }
func (t *Type) ScanFunc() string { return "scan" + t.Name }
func (t *Type) CollectFunc() string { return "collect" + t.PluralName() }
