package sql

import (
	"github.com/dave/jennifer/jen"

	"github.com/syssam/entgen/compiler/gen"
)

// genBackend generates the PostgreSQL repository ({entity}_postgres.go).
func genBackend(h gen.GeneratorHelper, t *gen.Type) (*jen.File, error) {
	switch d := t.Dialect.(type) {
	case gen.PrimaryRelational, nil:
	default:
		return nil, gen.NewUnimplementedDialectError(t.Name, d.String())
	}
	f := h.NewFile(h.Pkg())

	genBackendDecls(h, f, t)
	genScanners(h, f, t)
	genBackendHelpers(h, f, t)
	genCreate(h, f, t)
	genFindByID(h, f, t, "FindByID", true)
	genUpdate(h, f, t)
	genDelete(h, f, t)
	genList(h, f, t, "List", true)
	if t.HasFilter() {
		genQuery(h, f, t)
	}
	for _, field := range t.RelationFields() {
		genFindByRelation(h, f, t, field)
	}
	for _, rel := range hasManyRelations(t) {
		genFindHasMany(h, f, t, rel)
	}
	for _, p := range t.Projections {
		genFindProjection(h, f, t, p)
	}
	if t.SoftDelete {
		genHardDelete(h, f, t)
		genRestore(h, f, t)
		genFindByID(h, f, t, "FindByIDWithDeleted", false)
		genList(h, f, t, "ListWithDeleted", false)
	}
	return f, nil
}

// pgRecv returns the receiver of the repository methods.
func pgRecv(t *gen.Type) jen.Code {
	return jen.Id("r").Op("*").Id(t.PgRepositoryName())
}

// genBackendDecls generates the table constants, the repository struct and
// its constructor.
func genBackendDecls(h gen.GeneratorHelper, f *jen.File, t *gen.Type) {
	f.Const().Id(t.TableConst()).Op("=").Lit(t.QualifiedTable())
	f.Var().Id(t.ColumnsVar()).Op("=").Index().String().ValuesFunc(func(group *jen.Group) {
		for _, c := range columns(t.Fields) {
			group.Lit(c)
		}
	})

	f.Commentf("%s implements %s on PostgreSQL.", t.PgRepositoryName(), t.RepositoryName())
	f.Type().Id(t.PgRepositoryName()).Struct(
		jen.Id("db").Qual(h.SQLPkg(), "ExecQuerier"),
	)

	f.Commentf("New%s returns a repository running its statements on db,", t.PgRepositoryName())
	f.Comment("which is either a database handle or a transaction.")
	f.Func().Id("New"+t.PgRepositoryName()).Params(jen.Id("db").Qual(h.SQLPkg(), "ExecQuerier")).Op("*").Id(t.PgRepositoryName()).Block(
		jen.Return(jen.Op("&").Id(t.PgRepositoryName()).Values(jen.Dict{jen.Id("db"): jen.Id("db")})),
	)

	f.Var().Id("_").Id(t.RepositoryName()).Op("=").Parens(jen.Op("*").Id(t.PgRepositoryName())).Parens(jen.Nil())
}

// genScanners generates the row scanner and the rows collector. Columns are
// scanned in field order, which is the column order of the table.
func genScanners(h gen.GeneratorHelper, f *jen.File, t *gen.Type) {
	f.Func().Id(t.ScanFunc()).Params(
		jen.Id("row").Interface(jen.Id("Scan").Params(jen.Op("...").Any()).Error()),
	).Params(entityPtr(t), jen.Error()).BlockFunc(func(grp *jen.Group) {
		grp.Var().Id("e").Id(t.Name)
		grp.If(jen.Err().Op(":=").Id("row").Dot("Scan").CallFunc(func(args *jen.Group) {
			for _, field := range t.Fields {
				args.Add(scanDest(h, field, "e"))
			}
		}), jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Err()))
		grp.Return(jen.Op("&").Id("e"), jen.Nil())
	})

	f.Func().Id(t.CollectFunc()).Params(jen.Id("rows").Op("*").Qual(h.SQLPkg(), "Rows")).Params(entitySlice(t), jen.Error()).Block(
		jen.Defer().Id("rows").Dot("Close").Call(),
		jen.Id("es").Op(":=").Add(entitySlice(t)).Values(),
		jen.For(jen.Id("rows").Dot("Next").Call()).Block(
			jen.List(jen.Id("e"), jen.Err()).Op(":=").Id(t.ScanFunc()).Call(jen.Id("rows")),
			ifErr(jen.Nil(), jen.Err()),
			jen.Id("es").Op("=").Append(jen.Id("es"), jen.Id("e")),
		),
		jen.Return(jen.Id("es"), jen.Id("rows").Dot("Err").Call()),
	)
}

// wrapErr applies the user error mapper of t to an error expression.
func wrapErr(t *gen.Type, err jen.Code) jen.Code {
	if t.Error == "" {
		return err
	}
	return gen.TypeExpr(t.Error).Call(err)
}

// genBackendHelpers generates the statement helpers shared by the methods.
func genBackendHelpers(h gen.GeneratorHelper, f *jen.File, t *gen.Type) {
	queryParams := []jen.Code{ctxParam(), jen.Id("query").String(), jen.Id("args").Op("...").Any()}

	// one reads a single row, nil when there is none.
	f.Func().Params(pgRecv(t)).Id("one").Params(queryParams...).Params(entityPtr(t), jen.Error()).Block(
		jen.List(jen.Id("e"), jen.Err()).Op(":=").Id(t.ScanFunc()).Call(
			jen.Id("r").Dot("db").Dot("QueryRowContext").Call(jen.Id("ctx"), jen.Id("query"), jen.Id("args").Op("...")),
		),
		jen.If(jen.Qual(errorsPkg, "Is").Call(jen.Err(), jen.Qual(h.SQLPkg(), "ErrNoRows"))).Block(jen.Return(jen.Nil(), jen.Nil())),
		jen.Return(jen.Id("e"), jen.Err()),
	)

	f.Func().Params(pgRecv(t)).Id("many").Params(queryParams...).Params(entitySlice(t), jen.Error()).Block(
		jen.List(jen.Id("rows"), jen.Err()).Op(":=").Id("r").Dot("db").Dot("QueryContext").Call(jen.Id("ctx"), jen.Id("query"), jen.Id("args").Op("...")),
		ifErr(jen.Nil(), jen.Err()),
		jen.Return(jen.Id(t.CollectFunc()).Call(jen.Id("rows"))),
	)

	// exec reports whether the statement affected any row.
	f.Func().Params(pgRecv(t)).Id("exec").Params(queryParams...).Params(jen.Bool(), jen.Error()).Block(
		jen.List(jen.Id("res"), jen.Err()).Op(":=").Id("r").Dot("db").Dot("ExecContext").Call(jen.Id("ctx"), jen.Id("query"), jen.Id("args").Op("...")),
		ifErr(jen.False(), jen.Err()),
		jen.List(jen.Id("n"), jen.Err()).Op(":=").Id("res").Dot("RowsAffected").Call(),
		jen.Return(jen.Id("n").Op(">").Lit(0), jen.Err()),
	)

	f.Func().Params(pgRecv(t)).Id("queryErr").Params(jen.Id("op").String(), jen.Err().Error()).Error().Block(
		jen.Return(wrapErr(t, jen.Qual(h.RuntimePkg(), "NewQueryError").Call(jen.Lit(t.Label()), jen.Id("op"), jen.Err()))),
	)

	f.Func().Params(pgRecv(t)).Id("mutationErr").Params(jen.Id("op").String(), jen.Err().Error()).Error().Block(
		jen.Return(wrapErr(t, jen.Qual(h.RuntimePkg(), "NewMutationError").Call(jen.Lit(t.Label()), jen.Id("op"), jen.Err()))),
	)

	if hasStreams(t) {
		f.Comment("notify publishes ev on the change stream of the table. Inside a")
		f.Comment("transaction the notification is delivered on commit.")
		f.Func().Params(pgRecv(t)).Id("notify").Params(ctxParam(), jen.Id("ev").Id(t.EventName())).Error().Block(
			jen.Return(jen.Id("Notify"+t.Name).Call(jen.Id("ctx"), jen.Id("r").Dot("db"), jen.Id("ev"))),
		)
	}
}
