package gen

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cast"

	"github.com/syssam/entgen/compiler/load"
	"github.com/syssam/entgen/dialect/sql/schema"
)

type (
	// EntityAttrs holds the entity-level attributes of a schema.
	EntityAttrs struct {
		Table       string
		Schema      string
		SQLLevel    SQLLevel
		Dialect     Dialect
		IDStrategy  IDStrategy
		Error       string
		SoftDelete  bool
		Returning   Returning
		Features    map[string]bool
		HasMany     []string
		Indexes     []*Index
		Commands    []*Command
		Projections []*Projection
		API         *load.Attr
	}

	// FieldAttrs holds the attributes of one field.
	FieldAttrs struct {
		ID, Auto                             bool
		InCreate, InUpdate, InResponse, Skip bool
		BelongsTo                            *Relation
		Filter                               FilterKind
		Column                               Column
	}
)

// extractor reads attribute trees of one entity. Malformed values are
// collected so every fault of the entity is reported at once.
type extractor struct {
	typ    string
	logger *slog.Logger
	errs   []error
}

func newExtractor(typ string, logger *slog.Logger) *extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &extractor{typ: typ, logger: logger}
}

func (x *extractor) invalid(field string, value any, format string, args ...any) {
	x.errs = append(x.errs, NewValidationError(x.typ, field, value, fmt.Sprintf(format, args...)))
}

func (x *extractor) unknown(scope, key string) {
	x.logger.Debug("ignoring unknown attribute", "type", x.typ, "scope", scope, "attr", key)
}

func (x *extractor) err() error {
	return errors.Join(x.errs...)
}

// ExtractEntityAttrs reads the entity-level attributes of s. Unknown keys
// are logged at debug level and ignored. Malformed values are returned as
// joined ValidationErrors.
func ExtractEntityAttrs(s *load.Schema, logger *slog.Logger) (*EntityAttrs, error) {
	x := newExtractor(s.Name, logger)
	ea := x.entity(s.Attrs)
	return ea, x.err()
}

// ExtractFieldAttrs reads the attributes of one field.
func ExtractFieldAttrs(typ string, f *load.Field, logger *slog.Logger) (*FieldAttrs, error) {
	x := newExtractor(typ, logger)
	fa := x.field(f)
	return fa, x.err()
}

func (x *extractor) entity(attrs load.Attrs) *EntityAttrs {
	ea := &EntityAttrs{
		Schema:   schema.DefaultSchema,
		Dialect:  PrimaryRelational{},
		Features: make(map[string]bool),
	}
	for _, a := range attrs {
		switch a.Name {
		case "table":
			ea.Table = strings.TrimSpace(a.Value)
		case "schema":
			if v := strings.TrimSpace(a.Value); v != "" {
				ea.Schema = v
			}
		case "sql":
			lvl, err := ParseSQLLevel(a.Value)
			if err != nil {
				x.invalid("", a.Value, "attribute sql: %v", err)
			}
			ea.SQLLevel = lvl
		case "dialect":
			d, err := ParseDialect(a.Value)
			if err != nil {
				x.invalid("", a.Value, "attribute dialect: %v", err)
				continue
			}
			ea.Dialect = d
		case "uuid":
			st, err := ParseIDStrategy(a.Value)
			if err != nil {
				x.invalid("", a.Value, "attribute uuid: %v", err)
			}
			ea.IDStrategy = st
		case "error":
			ea.Error = strings.TrimSpace(a.Value)
		case "soft_delete":
			ea.SoftDelete = x.bool("", a)
		case "returning":
			ea.Returning = x.returning(a)
		case "has_many":
			ea.HasMany = append(ea.HasMany, a.Values()...)
		case "index":
			ea.Indexes = append(ea.Indexes, x.indexes(a)...)
		case "command":
			ea.Commands = append(ea.Commands, x.commands(a)...)
		case "projection":
			ea.Projections = append(ea.Projections, x.projections(a)...)
		case "api":
			ea.API = a
		default:
			if f, ok := FeatureByName(a.Name); ok {
				ea.Features[f.Name] = x.bool("", a)
				continue
			}
			x.unknown("entity", a.Name)
		}
	}
	return ea
}

func (x *extractor) field(f *load.Field) *FieldAttrs {
	fa := &FieldAttrs{}
	for _, a := range f.Attrs {
		switch a.Name {
		case "id":
			fa.ID = x.bool(f.Name, a)
		case "auto":
			fa.Auto = x.bool(f.Name, a)
		case "field":
			x.exposure(f.Name, a, fa)
		case "skip":
			fa.Skip = x.bool(f.Name, a)
		case "belongs_to":
			fa.BelongsTo = x.belongsTo(f.Name, a)
		case "filter":
			k, err := ParseFilterKind(a.Value)
			if err != nil {
				x.invalid(f.Name, a.Value, "attribute filter: %v", err)
			}
			fa.Filter = k
		case "column":
			fa.Column = x.column(f.Name, a)
		default:
			x.unknown("field "+f.Name, a.Name)
		}
	}
	if fa.Skip {
		fa.InCreate, fa.InUpdate, fa.InResponse = false, false, false
	}
	return fa
}

func (x *extractor) bool(field string, a *load.Attr) bool {
	if a.IsFlag() {
		return true
	}
	b, err := looseBool(a.Value)
	if err != nil {
		x.invalid(field, a.Value, "attribute %s: expected a boolean", a.Name)
	}
	return b
}

// looseBool accepts yes/no and on/off on top of the cast spellings.
func looseBool(s string) (bool, error) {
	switch s = strings.ToLower(strings.TrimSpace(s)); s {
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off":
		return false, nil
	}
	return cast.ToBoolE(s)
}

func (x *extractor) int(field string, a *load.Attr) int {
	n, err := cast.ToIntE(strings.TrimSpace(a.Value))
	if err != nil || n < 0 {
		x.invalid(field, a.Value, "attribute %s: expected a non-negative integer", a.Name)
		return 0
	}
	return n
}

// exposure reads `field: [create, update, response, skip]`, a comma list,
// or a mapping of booleans.
func (x *extractor) exposure(field string, a *load.Attr, fa *FieldAttrs) {
	set := func(name string, on bool) {
		switch strings.ToLower(name) {
		case "create":
			fa.InCreate = on
		case "update":
			fa.InUpdate = on
		case "response":
			fa.InResponse = on
		case "skip":
			fa.Skip = on
		default:
			x.unknown("field "+field, "field."+name)
		}
	}
	for _, v := range a.Values() {
		set(v, true)
	}
	for _, c := range a.Args {
		if c.Name != "" && !c.IsFlag() {
			set(c.Name, x.bool(field, c))
		}
	}
}

// belongsTo reads `belongs_to: Parent`, `belongs_to: [Parent, {on_delete: cascade}]`
// or `belongs_to: {target: Parent, on_delete: cascade}`.
func (x *extractor) belongsTo(field string, a *load.Attr) *Relation {
	rel := &Relation{Target: strings.TrimSpace(a.Value)}
	var onDelete *load.Attr
	for _, c := range a.Args {
		switch c.Name {
		case "":
			if c.Value != "" && rel.Target == "" {
				rel.Target = strings.TrimSpace(c.Value)
			}
			if od, ok := c.Lookup("on_delete"); ok {
				onDelete = od
			}
		case "target", "parent":
			rel.Target = strings.TrimSpace(c.Value)
		case "on_delete":
			onDelete = c
		default:
			x.unknown("field "+field, "belongs_to."+c.Name)
		}
	}
	if rel.Target == "" {
		x.invalid(field, nil, "attribute belongs_to: missing target type")
	}
	if onDelete != nil {
		opt, err := schema.ParseReferenceOption(onDelete.Value)
		if err != nil {
			x.invalid(field, onDelete.Value, "attribute belongs_to: %v", err)
		}
		rel.OnDelete = opt
	}
	return rel
}

func (x *extractor) column(field string, a *load.Attr) Column {
	var col Column
	for _, c := range a.Args {
		switch c.Name {
		case "unique":
			col.Unique = x.bool(field, c)
		case "index":
			col.Index = x.indexKind(field, c)
		case "default":
			col.Default = c.Value
		case "check":
			col.Check = c.Value
		case "varchar":
			col.Varchar = x.int(field, c)
		case "sql_type":
			col.SQLType = strings.TrimSpace(c.Value)
		case "nullable":
			b := x.bool(field, c)
			col.Nullable = &b
		case "name":
			col.Name = strings.TrimSpace(c.Value)
		case "":
			// Bare list entries: `column: [unique, index]`.
			switch c.Value {
			case "unique":
				col.Unique = true
			case "index":
				col.Index = schema.BTree
			default:
				x.unknown("field "+field, "column."+c.Value)
			}
		default:
			x.unknown("field "+field, "column."+c.Name)
		}
	}
	return col
}

// indexKind reads `column.index`. A boolean true selects btree and false
// leaves the column unindexed.
func (x *extractor) indexKind(field string, a *load.Attr) schema.IndexKind {
	if a.IsFlag() {
		return schema.BTree
	}
	if b, err := looseBool(a.Value); err == nil {
		if b {
			return schema.BTree
		}
		return ""
	}
	k, err := schema.ParseIndexKind(a.Value)
	if err != nil {
		x.invalid(field, a.Value, "attribute column.index: %v", err)
	}
	return k
}

func (x *extractor) returning(a *load.Attr) Returning {
	if len(a.Args) > 0 {
		cols := a.Values()
		if len(cols) == 0 {
			x.invalid("", a.String(), "attribute returning: empty column list")
		}
		return Returning{Mode: ReturningColumns, Columns: cols}
	}
	r, err := ParseReturning(a.Value)
	if err != nil {
		x.invalid("", a.Value, "attribute returning: %v", err)
	}
	return r
}

// indexes reads one composite index mapping, or a list of them.
func (x *extractor) indexes(a *load.Attr) []*Index {
	var items []*load.Attr
	switch {
	case len(a.Args) > 0 && a.Args[0].Name == "":
		items = a.Args
	default:
		items = []*load.Attr{a}
	}
	out := make([]*Index, 0, len(items))
	for _, it := range items {
		idx := &Index{}
		if it.Value != "" {
			// Scalar shorthand: `index: "sku, quantity"`.
			idx.Columns = it.Values()
		}
		for _, c := range it.Args {
			switch c.Name {
			case "name":
				idx.Name = strings.TrimSpace(c.Value)
			case "columns", "fields":
				idx.Columns = c.Values()
			case "unique":
				idx.Unique = x.bool("", c)
			case "where":
				idx.Where = strings.TrimSpace(c.Value)
			case "index_type", "type", "kind", "using":
				k, err := schema.ParseIndexKind(c.Value)
				if err != nil {
					x.invalid("", c.Value, "attribute index: %v", err)
				}
				idx.Kind = k
			default:
				x.unknown("index", c.Name)
			}
		}
		if len(idx.Columns) == 0 {
			x.invalid("", it.String(), "attribute index: no columns")
			continue
		}
		out = append(out, idx)
	}
	return out
}

// listItems returns the entries of a list-valued attribute. A scalar value
// or a single mapping counts as one entry.
func listItems(a *load.Attr) []*load.Attr {
	if a.Value != "" {
		return []*load.Attr{{Value: a.Value}}
	}
	if len(a.Args) > 0 && a.Args[0].Name != "" {
		return []*load.Attr{{Args: a.Args}}
	}
	return a.Args
}
