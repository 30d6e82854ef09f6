package sql

import (
	"github.com/dave/jennifer/jen"

	"github.com/syssam/entgen/compiler/gen"
)

// hookedWrite is one repository write wrapped by a before and an after
// hook.
type hookedWrite struct {
	Method method
	// Before and After are the parameter lists of the hooks, after ctx.
	Before, After []jen.Code
	// BeforeArgs are the arguments passed to the before hook.
	BeforeArgs []jen.Code
	// Entity writes return the entity; the others report a matched row.
	Entity bool
}

// hookedWrites returns the hooked writes of t.
func hookedWrites(h gen.GeneratorHelper, t *gen.Type) []hookedWrite {
	idOnly := func(m method) hookedWrite {
		return hookedWrite{
			Method:     m,
			Before:     []jen.Code{idParam(h, t)},
			After:      []jen.Code{idParam(h, t)},
			BeforeArgs: []jen.Code{jen.Id("id")},
		}
	}
	ws := []hookedWrite{
		{
			Method:     createMethod(t),
			Before:     []jen.Code{jen.Id("req").Op("*").Id(t.CreateRequestName())},
			After:      []jen.Code{jen.Id("e").Add(entityPtr(t))},
			BeforeArgs: []jen.Code{jen.Op("&").Id("req")},
			Entity:     true,
		},
		{
			Method:     updateMethod(h, t),
			Before:     []jen.Code{idParam(h, t), jen.Id("req").Op("*").Id(t.UpdateRequestName())},
			After:      []jen.Code{jen.Id("e").Add(entityPtr(t))},
			BeforeArgs: []jen.Code{jen.Id("id"), jen.Op("&").Id("req")},
			Entity:     true,
		},
		idOnly(deleteMethod(h, t)),
	}
	if t.SoftDelete {
		ws = append(ws, idOnly(hardDeleteMethod(h, t)), idOnly(restoreMethod(h, t)))
	}
	return ws
}

// genHooks generates the hooks file ({entity}_hook.go).
func genHooks(h gen.GeneratorHelper, t *gen.Type) *jen.File {
	f := h.NewFile(h.Pkg())
	writes := hookedWrites(h, t)
	commands := hasCommands(t)
	noop := t.Name + "NoopHooks"
	hooked := t.Name + "HookedRepository"

	f.Commentf("%s observes the writes of %s. A before hook error aborts the", t.HooksName(), t.Name)
	f.Comment("write; an after hook runs only when the write matched a row.")
	f.Type().Id(t.HooksName()).InterfaceFunc(func(group *jen.Group) {
		for _, w := range writes {
			group.Id("Before"+w.Method.Name).Params(append([]jen.Code{ctxParam()}, w.Before...)...).Error()
			group.Id("After"+w.Method.Name).Params(append([]jen.Code{ctxParam()}, w.After...)...).Error()
		}
		if commands {
			group.Id("BeforeCommand").Params(ctxParam(), jen.Id("cmd").Id(t.CommandName())).Error()
			group.Id("AfterCommand").Params(ctxParam(), jen.Id("cmd").Id(t.CommandName()), jen.Id("res").Id(t.CommandResultName())).Error()
		}
	})

	f.Commentf("%s implements %s with hooks that do nothing. Embed it to", noop, t.HooksName())
	f.Comment("override a subset.")
	f.Type().Id(noop).Struct()
	for _, w := range writes {
		genNoopHook(f, noop, "Before"+w.Method.Name, w.Before)
		genNoopHook(f, noop, "After"+w.Method.Name, w.After)
	}
	if commands {
		genNoopHook(f, noop, "BeforeCommand", []jen.Code{jen.Id("cmd").Id(t.CommandName())})
		genNoopHook(f, noop, "AfterCommand", []jen.Code{jen.Id("cmd").Id(t.CommandName()), jen.Id("res").Id(t.CommandResultName())})
	}
	f.Var().Id("_").Id(t.HooksName()).Op("=").Id(noop).Values()

	f.Commentf("%s runs %s around the writes of the embedded repository.", hooked, t.HooksName())
	f.Type().Id(hooked).Struct(
		jen.Id(t.RepositoryName()),
		jen.Id("hooks").Id(t.HooksName()),
	)

	f.Commentf("New%s wraps repo with hooks.", hooked)
	f.Func().Id("New"+hooked).Params(
		jen.Id("repo").Id(t.RepositoryName()),
		jen.Id("hooks").Id(t.HooksName()),
	).Op("*").Id(hooked).Block(
		jen.Return(jen.Op("&").Id(hooked).Values(jen.Dict{
			jen.Id(t.RepositoryName()): jen.Id("repo"),
			jen.Id("hooks"):            jen.Id("hooks"),
		})),
	)

	recv := jen.Id("r").Op("*").Id(hooked)
	inner := jen.Id("r").Dot(t.RepositoryName())
	for _, w := range writes {
		m := w.Method
		f.Commentf("%s runs the %s hooks around the write.", m.Name, m.Name)
		f.Func().Params(recv).Add(m.signature()).BlockFunc(func(grp *jen.Group) {
			fail := jen.Nil()
			if !w.Entity {
				fail = jen.False()
			}
			grp.If(
				jen.Err().Op(":=").Id("r").Dot("hooks").Dot("Before"+m.Name).Call(append([]jen.Code{jen.Id("ctx")}, w.BeforeArgs...)...),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(fail, jen.Err()))
			if w.Entity {
				grp.List(jen.Id("e"), jen.Err()).Op(":=").Add(m.call(inner))
				grp.If(jen.Err().Op("!=").Nil().Op("||").Id("e").Op("==").Nil()).Block(jen.Return(jen.Id("e"), jen.Err()))
				grp.If(
					jen.Err().Op(":=").Id("r").Dot("hooks").Dot("After"+m.Name).Call(jen.Id("ctx"), jen.Id("e")),
					jen.Err().Op("!=").Nil(),
				).Block(jen.Return(jen.Nil(), jen.Err()))
				grp.Return(jen.Id("e"), jen.Nil())
				return
			}
			grp.List(jen.Id("ok"), jen.Err()).Op(":=").Add(m.call(inner))
			grp.If(jen.Err().Op("!=").Nil().Op("||").Op("!").Id("ok")).Block(jen.Return(jen.Id("ok"), jen.Err()))
			grp.If(
				jen.Err().Op(":=").Id("r").Dot("hooks").Dot("After"+m.Name).Call(jen.Id("ctx"), jen.Id("id")),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(jen.False(), jen.Err()))
			grp.Return(jen.True(), jen.Nil())
		})
	}

	if commands {
		name := "Dispatch" + t.CommandName() + "WithHooks"
		f.Commentf("%s is Dispatch%s between the command hooks.", name, t.CommandName())
		f.Func().Id(name).Types(jen.Id("C").Any()).Params(
			ctxParam(),
			jen.Id("hooks").Id(t.HooksName()),
			jen.Id("h").Id(t.CommandHandlerName()).Types(jen.Id("C")),
			jen.Id("c").Id("C"),
			jen.Id("cmd").Id(t.CommandName()),
		).Params(jen.Id(t.CommandResultName()), jen.Error()).Block(
			jen.If(
				jen.Err().Op(":=").Id("hooks").Dot("BeforeCommand").Call(jen.Id("ctx"), jen.Id("cmd")),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(jen.Nil(), jen.Err())),
			jen.List(jen.Id("res"), jen.Err()).Op(":=").Id("Dispatch"+t.CommandName()).Call(jen.Id("ctx"), jen.Id("h"), jen.Id("c"), jen.Id("cmd")),
			ifErr(jen.Nil(), jen.Err()),
			jen.If(
				jen.Err().Op(":=").Id("hooks").Dot("AfterCommand").Call(jen.Id("ctx"), jen.Id("cmd"), jen.Id("res")),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(jen.Nil(), jen.Err())),
			jen.Return(jen.Id("res"), jen.Nil()),
		)
	}
	return f
}

// genNoopHook generates one hook method of the no-op implementation.
// params are the hook parameters after ctx.
func genNoopHook(f *jen.File, noop, name string, params []jen.Code) {
	f.Func().Params(jen.Id(noop)).Id(name).Params(
		append([]jen.Code{ctxParam()}, params...)...,
	).Error().Block(jen.Return(jen.Nil()))
}
