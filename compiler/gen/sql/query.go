package sql

import (
	"github.com/dave/jennifer/jen"

	"github.com/syssam/entgen/compiler/gen"
)

// genFilter generates the query filter file ({entity}_filter.go).
func genFilter(h gen.GeneratorHelper, t *gen.Type) *jen.File {
	f := h.NewFile(h.Pkg())
	clauses := gen.FilterClauses(t)
	name := t.FilterName()
	recv := gen.Receiver(name)

	// Generate filter struct
	f.Commentf("%s selects %s rows. Nil fields do not constrain the query.", name, t.PluralName())
	f.Type().Id(name).StructFunc(func(group *jen.Group) {
		for _, c := range clauses {
			group.Id(c.Param).Add(h.PatchType(c.Field)).Tag(map[string]string{"json": gen.Snake(c.Param) + ",omitempty"})
		}
		group.Id("Limit").Op("*").Int64().Tag(map[string]string{"json": "limit,omitempty"})
		group.Id("Offset").Op("*").Int64().Tag(map[string]string{"json": "offset,omitempty"})
	})

	f.Comment("Where returns the WHERE conditions of the filter and their binds.")
	f.Comment("Placeholders are numbered from $1 in the order of the conditions.")
	f.Func().Params(jen.Id(recv).Op("*").Id(name)).Id("Where").Params().Params(
		jen.Id("conds").Index().String(),
		jen.Id("args").Index().Any(),
	).Block(
		jen.Id("w").Op(":=").Id(recv).Dot("where").Call(),
		jen.Return(jen.Id("w").Dot("Conds").Call(), jen.Id("w").Dot("Args").Call()),
	)

	f.Func().Params(jen.Id(recv).Op("*").Id(name)).Id("where").Params().Op("*").Qual(h.SQLPkg(), "Where").BlockFunc(func(grp *jen.Group) {
		grp.Id("w").Op(":=").Qual(h.SQLPkg(), "NewWhere").Call()
		if c := liveCond(t); c != "" {
			grp.Id("w").Dot("Raw").Call(jen.Lit(c))
		}
		grp.If(jen.Id(recv).Op("==").Nil()).Block(jen.Return(jen.Id("w")))
		for _, c := range clauses {
			v := jen.Op("*").Id(recv).Dot(c.Param)
			grp.If(jen.Id(recv).Dot(c.Param).Op("!=").Nil()).Block(
				jen.Id("w").Dot(c.Op.Method()).Call(jen.Lit(c.Field.ColumnName()), bindValue(h, c.Field, v)),
			)
		}
		grp.Return(jen.Id("w"))
	})
	return f
}
