// Package schema models PostgreSQL tables and renders their DDL.
//
// The model is intentionally flat: every entity maps to exactly one table,
// a column carries at most one foreign key, and single-column indexes are
// declared on the column itself. Rendering is deterministic, so running the
// generator twice over the same input yields byte-identical migrations.
package schema

import (
	"fmt"
	"strings"

	atlas "ariga.io/atlas/sql/schema"
)

// DefaultSchema is used when a table does not name one.
const DefaultSchema = "public"

// Referential actions for ON DELETE clauses.
const (
	Cascade    = atlas.Cascade
	SetNull    = atlas.SetNull
	SetDefault = atlas.SetDefault
	Restrict   = atlas.Restrict
	NoAction   = atlas.NoAction
)

// ParseReferenceOption parses a referential action. Case, spaces and
// underscores are ignored, so "SET NULL", "set_null" and "setnull" are
// equivalent.
func ParseReferenceOption(s string) (atlas.ReferenceOption, error) {
	norm := strings.NewReplacer(" ", "", "_", "").Replace(strings.ToLower(s))
	switch norm {
	case "cascade":
		return Cascade, nil
	case "setnull":
		return SetNull, nil
	case "setdefault":
		return SetDefault, nil
	case "restrict":
		return Restrict, nil
	case "noaction":
		return NoAction, nil
	default:
		return "", fmt.Errorf("schema: unknown referential action %q", s)
	}
}

// IndexKind is a PostgreSQL index access method.
type IndexKind string

// Index access methods.
const (
	BTree IndexKind = "btree"
	Hash  IndexKind = "hash"
	Gin   IndexKind = "gin"
	Gist  IndexKind = "gist"
	Brin  IndexKind = "brin"
)

// ParseIndexKind parses an index access method. The empty string means BTree.
func ParseIndexKind(s string) (IndexKind, error) {
	switch k := IndexKind(strings.ToLower(strings.TrimSpace(s))); k {
	case "", BTree, "b-tree":
		return BTree, nil
	case Hash, Gin, Gist, Brin:
		return k, nil
	default:
		return "", fmt.Errorf("schema: unknown index kind %q", s)
	}
}

// using returns the USING clause. BTree is the server default and renders
// as the empty string.
func (k IndexKind) using() string {
	if k == "" || k == BTree {
		return ""
	}
	return " USING " + string(k)
}

// Table describes a table definition.
type Table struct {
	Name    string
	Schema  string
	Columns []*Column
	Indexes []*Index
}

// NewTable returns a new table with the given name.
func NewTable(name string) *Table {
	return &Table{Name: name, Schema: DefaultSchema}
}

// SetSchema sets the table schema.
func (t *Table) SetSchema(s string) *Table {
	t.Schema = s
	return t
}

// AddColumns appends columns to the table.
func (t *Table) AddColumns(cs ...*Column) *Table {
	t.Columns = append(t.Columns, cs...)
	return t
}

// AddIndex appends a composite index.
func (t *Table) AddIndex(idx *Index) *Table {
	t.Indexes = append(t.Indexes, idx)
	return t
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// QualifiedName returns schema.table.
func (t *Table) QualifiedName() string {
	s := t.Schema
	if s == "" {
		s = DefaultSchema
	}
	return s + "." + t.Name
}

// CreateSQL renders CREATE TABLE followed by the single-column and
// composite index statements. Every statement is idempotent.
func (t *Table) CreateSQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", t.QualifiedName())
	defs := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		defs[i] = "    " + c.definition(t)
	}
	b.WriteString(strings.Join(defs, ",\n"))
	b.WriteString("\n);\n")
	for _, c := range t.Columns {
		if c.Index == "" {
			continue
		}
		fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s%s (%s);\n",
			t.Name, c.Name, t.QualifiedName(), c.Index.using(), c.Name)
	}
	for _, idx := range t.Indexes {
		b.WriteString(idx.createSQL(t))
	}
	return b.String()
}

// DropSQL renders the reverse of CreateSQL.
func (t *Table) DropSQL() string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE;\n", t.QualifiedName())
}

// Column describes a table column.
type Column struct {
	Name       string
	Type       string // rendered SQL type, including any [] suffix
	PrimaryKey bool
	Nullable   bool
	Unique     bool
	Default    string
	Check      string
	// Index, when set, requests a single-column index of that kind.
	Index IndexKind
	// Ref, when set, renders an inline REFERENCES clause.
	Ref *ForeignKey
}

func (c *Column) definition(t *Table) string {
	parts := []string{c.Name, c.Type}
	switch {
	case c.PrimaryKey:
		parts = append(parts, "PRIMARY KEY")
	case !c.Nullable:
		parts = append(parts, "NOT NULL")
	}
	if c.Unique {
		parts = append(parts, "UNIQUE")
	}
	if c.Default != "" {
		parts = append(parts, "DEFAULT "+c.Default)
	}
	if c.Check != "" {
		parts = append(parts, "CHECK ("+c.Check+")")
	}
	if c.Ref != nil {
		parts = append(parts, c.Ref.clause(t))
	}
	return strings.Join(parts, " ")
}

// ForeignKey is an inline column reference.
type ForeignKey struct {
	// RefSchema defaults to the owning table's schema.
	RefSchema string
	RefTable  string
	// RefColumn defaults to "id".
	RefColumn string
	OnDelete  atlas.ReferenceOption
}

func (fk *ForeignKey) clause(owner *Table) string {
	s := fk.RefSchema
	if s == "" {
		s = owner.Schema
	}
	if s == "" {
		s = DefaultSchema
	}
	col := fk.RefColumn
	if col == "" {
		col = "id"
	}
	clause := fmt.Sprintf("REFERENCES %s.%s(%s)", s, fk.RefTable, col)
	if fk.OnDelete != "" {
		clause += " ON DELETE " + string(fk.OnDelete)
	}
	return clause
}

// Index is a composite (or explicitly named) index.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
	Kind    IndexKind
	// Where makes the index partial.
	Where string
}

// DefaultName returns idx_<table>_<col1>_<col2>...
func (idx *Index) DefaultName(table string) string {
	return "idx_" + table + "_" + strings.Join(idx.Columns, "_")
}

func (idx *Index) createSQL(t *Table) string {
	name := idx.Name
	if name == "" {
		name = idx.DefaultName(t.Name)
	}
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	stmt := fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s%s (%s)",
		unique, name, t.QualifiedName(), idx.Kind.using(), strings.Join(idx.Columns, ", "))
	if idx.Where != "" {
		stmt += " WHERE " + idx.Where
	}
	return stmt + ";\n"
}
