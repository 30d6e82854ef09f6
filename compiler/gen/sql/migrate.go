package sql

import (
	"strings"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/entgen/compiler/gen"
	"github.com/syssam/entgen/dialect/sql/schema"
)

// serialTypes maps integer column types onto their auto-increment form.
var serialTypes = map[string]string{
	"SMALLINT": "SMALLSERIAL",
	"INTEGER":  "SERIAL",
	"BIGINT":   "BIGSERIAL",
}

// table builds the DDL model of t. Columns follow the field order, which is
// the order generated scanners read them in.
func table(t *gen.Type) *schema.Table {
	tbl := schema.NewTable(t.Table).SetSchema(t.Schema)
	for _, f := range t.Fields {
		tbl.AddColumns(column(t, f))
	}
	for _, idx := range t.Indexes {
		tbl.AddIndex(&schema.Index{
			Name:    idx.Name,
			Columns: idx.ColumnNames(),
			Unique:  idx.Unique,
			Kind:    idx.Kind,
			Where:   idx.Where,
		})
	}
	return tbl
}

// column builds the column of field f.
func column(t *gen.Type, f *gen.Field) *schema.Column {
	c := &schema.Column{
		Name:       f.ColumnName(),
		Type:       f.SQLType(),
		PrimaryKey: f.ID,
		Nullable:   f.Nullable(),
		Unique:     f.Column.Unique,
		Default:    f.Column.Default,
		Check:      f.Column.Check,
		Index:      f.Column.Index,
	}
	if f.ID && f.Auto && f.Column.SQLType == "" {
		switch {
		case f.Type.Kind == gen.KindUUID:
			if c.Default == "" {
				c.Default = "gen_random_uuid()"
			}
		case serialTypes[c.Type] != "":
			c.Type = serialTypes[c.Type]
		}
	}
	if rel := f.BelongsTo; rel != nil {
		refSchema, refTable, refColumn := rel.RefTable(t)
		c.Ref = &schema.ForeignKey{
			RefSchema: refSchema,
			RefTable:  refTable,
			RefColumn: refColumn,
			OnDelete:  rel.OnDelete,
		}
	}
	return c
}

// genMigration generates the DDL constants ({entity}_migration.go).
func genMigration(h gen.GeneratorHelper, t *gen.Type) *jen.File {
	f := h.NewFile(h.Pkg())
	tbl := table(t)

	f.Commentf("%sMigrationUp creates the %s table and its indexes.", t.Name, tbl.QualifiedName())
	f.Const().Id(t.Name + "MigrationUp").Op("=").Add(sqlLit(tbl.CreateSQL()))

	f.Commentf("%sMigrationDown drops the %s table.", t.Name, tbl.QualifiedName())
	f.Const().Id(t.Name + "MigrationDown").Op("=").Add(sqlLit(tbl.DropSQL()))
	return f
}

// sqlLit renders SQL text as a raw string literal when possible.
func sqlLit(s string) jen.Code {
	if strings.Contains(s, "`") {
		return jen.Lit(s)
	}
	return jen.Id("`" + s + "`")
}
