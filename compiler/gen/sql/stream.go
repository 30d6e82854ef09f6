package sql

import (
	"github.com/dave/jennifer/jen"

	"github.com/syssam/entgen/compiler/gen"
)

// genStream generates the change stream file ({entity}_stream.go).
func genStream(h gen.GeneratorHelper, t *gen.Type) *jen.File {
	f := h.NewFile(h.Pkg())
	channel := t.Name + "Channel"
	sub := t.SubscriberName()

	f.Commentf("%s returns the notification channel of the %s table.", channel, t.Table)
	f.Func().Id(channel).Params().String().Block(
		jen.Return(jen.Qual(h.StreamPkg(), "Channel").Call(jen.Lit(t.Table))),
	)

	f.Commentf("Notify%s publishes ev on %s with pg_notify. Run on a transaction,", t.Name, channel+"()")
	f.Comment("the notification is delivered when the transaction commits.")
	f.Func().Id("Notify"+t.Name).Params(
		ctxParam(),
		jen.Id("db").Qual(h.SQLPkg(), "ExecQuerier"),
		jen.Id("ev").Id(t.EventName()),
	).Error().Block(
		jen.List(jen.Id("payload"), jen.Err()).Op(":=").Id("Encode"+t.EventName()).Call(jen.Id("ev")),
		ifErr(jen.Qual(h.StreamPkg(), "NewSerializeError").Call(jen.Id(channel).Call(), jen.Err())),
		jen.Return(jen.Qual(h.StreamPkg(), "Notify").Call(jen.Id("ctx"), jen.Id("db"), jen.Id(channel).Call(), jen.Id("payload"))),
	)

	f.Commentf("%s receives the %s events published on %s.", sub, t.Name, channel+"()")
	f.Type().Id(sub).Struct(
		jen.Id("sub").Op("*").Qual(h.StreamPkg(), "Subscriber"),
	)

	f.Commentf("Subscribe%s listens on %s through src.", t.Name, channel+"()")
	f.Func().Id("Subscribe"+t.Name).Params(jen.Id("src").Qual(h.StreamPkg(), "Source")).Params(jen.Op("*").Id(sub), jen.Error()).Block(
		jen.List(jen.Id("s"), jen.Err()).Op(":=").Qual(h.StreamPkg(), "Subscribe").Call(jen.Id("src"), jen.Id(channel).Call()),
		ifErr(jen.Nil(), jen.Err()),
		jen.Return(jen.Op("&").Id(sub).Values(jen.Dict{jen.Id("sub"): jen.Id("s")}), jen.Nil()),
	)

	recv := jen.Id("s").Op("*").Id(sub)
	decode := func(ok ...jen.Code) []jen.Code {
		fail := append([]jen.Code{jen.Nil()}, ok...)
		return []jen.Code{
			jen.List(jen.Id("ev"), jen.Err()).Op(":=").Id("Decode" + t.EventName()).Call(jen.Id("payload")),
			ifErr(append(fail, jen.Qual(h.StreamPkg(), "NewDeserializeError").Call(jen.Id("s").Dot("sub").Dot("Channel").Call(), jen.Err()))...),
		}
	}

	f.Comment("Recv blocks until the next event arrives or ctx is done. A closed")
	f.Comment("listener yields stream.ErrClosed, after which no event is delivered.")
	f.Func().Params(recv).Id("Recv").Params(ctxParam()).Params(jen.Id(t.EventName()), jen.Error()).BlockFunc(func(grp *jen.Group) {
		grp.List(jen.Id("payload"), jen.Err()).Op(":=").Id("s").Dot("sub").Dot("Recv").Call(jen.Id("ctx"))
		grp.Add(ifErr(jen.Nil(), jen.Err()))
		for _, c := range decode() {
			grp.Add(c)
		}
		grp.Return(jen.Id("ev"), jen.Nil())
	})

	f.Comment("TryRecv returns the next pending event without blocking. ok is false")
	f.Comment("when none is pending.")
	f.Func().Params(recv).Id("TryRecv").Params().Params(jen.Id(t.EventName()), jen.Bool(), jen.Error()).BlockFunc(func(grp *jen.Group) {
		grp.List(jen.Id("payload"), jen.Id("ok"), jen.Err()).Op(":=").Id("s").Dot("sub").Dot("TryRecv").Call()
		grp.If(jen.Err().Op("!=").Nil().Op("||").Op("!").Id("ok")).Block(jen.Return(jen.Nil(), jen.False(), jen.Err()))
		for _, c := range decode(jen.False()) {
			grp.Add(c)
		}
		grp.Return(jen.Id("ev"), jen.True(), jen.Nil())
	})

	f.Comment("Close stops listening.")
	f.Func().Params(recv).Id("Close").Params().Error().Block(
		jen.Return(jen.Id("s").Dot("sub").Dot("Close").Call()),
	)
	return f
}
