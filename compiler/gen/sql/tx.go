package sql

import (
	"github.com/dave/jennifer/jen"

	"github.com/syssam/entgen/compiler/gen"
)

// genTx generates the transactional repository ({entity}_tx.go).
func genTx(h gen.GeneratorHelper, t *gen.Type) *jen.File {
	f := h.NewFile(h.Pkg())
	name := t.TxRepositoryName()
	txPtr := jen.Op("*").Qual(h.SQLPkg(), "Tx")

	f.Commentf("%s is a %s bound to a transaction. Change", name, t.PgRepositoryName())
	f.Comment("notifications published through it are delivered on commit.")
	f.Type().Id(name).Struct(
		jen.Op("*").Id(t.PgRepositoryName()),
		jen.Id("tx").Add(txPtr),
	)

	f.Commentf("New%s returns a repository running its statements on tx.", name)
	f.Func().Id("New"+name).Params(jen.Id("tx").Add(txPtr)).Op("*").Id(name).Block(
		jen.Return(jen.Op("&").Id(name).Values(jen.Dict{
			jen.Id(t.PgRepositoryName()): jen.Id("New" + t.PgRepositoryName()).Call(jen.Id("tx")),
			jen.Id("tx"):                 jen.Id("tx"),
		})),
	)

	f.Comment("Tx returns the underlying transaction.")
	f.Func().Params(jen.Id("r").Op("*").Id(name)).Id("Tx").Params().Add(txPtr).Block(
		jen.Return(jen.Id("r").Dot("tx")),
	)

	fn := "With" + t.Name + "Tx"
	f.Commentf("%s runs fn in a transaction of db. The transaction commits when fn", fn)
	f.Comment("returns nil and rolls back otherwise.")
	f.Func().Id(fn).Params(
		ctxParam(),
		jen.Id("db").Qual(h.SQLPkg(), "TxBeginner"),
		jen.Id("fn").Func().Params(jen.Op("*").Id(name)).Error(),
	).Error().Block(
		jen.Return(jen.Qual(h.SQLPkg(), "WithTx").Call(
			jen.Id("ctx"),
			jen.Id("db"),
			jen.Func().Params(jen.Id("tx").Add(txPtr)).Error().Block(
				jen.Return(jen.Id("fn").Call(jen.Id("New"+name).Call(jen.Id("tx")))),
			),
		)),
	)
	return f
}
