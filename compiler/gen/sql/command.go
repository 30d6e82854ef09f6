package sql

import (
	"slices"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/entgen/compiler/gen"
)

// commandKinds maps command kinds onto the runtime constants.
var commandKinds = map[gen.CommandKind]string{
	gen.CommandCreate: "CommandCreate",
	gen.CommandUpdate: "CommandUpdate",
	gen.CommandDelete: "CommandDelete",
	gen.CommandCustom: "CommandCustom",
}

// resultType returns the Go type of the value a command handler returns.
func resultType(h gen.GeneratorHelper, t *gen.Type, c *gen.Command) jen.Code {
	switch {
	case c.ResultIsEntity():
		return entityPtr(t)
	case c.ResultIsUnit():
		return jen.Qual(h.RuntimePkg(), "Unit")
	default:
		return gen.TypeExpr(c.Result)
	}
}

// payloadArg returns the parameter type a handler receives and the
// expression passing it from the dispatched command cmd. A payload-less
// command passes nothing.
func payloadArg(t *gen.Type, c *gen.Command) (param jen.Code, arg jen.Code) {
	switch {
	case c.Source == gen.SourceCustom && !c.RequiresID:
		return gen.TypeExpr(c.Payload), jen.Id("cmd").Dot("Payload")
	case c.Source == gen.SourceNone && !c.RequiresID:
		return nil, nil
	default:
		return jen.Id(c.StructName(t.Name)), jen.Id("cmd")
	}
}

// commandFields returns the payload fields copied from the entity.
func commandFields(t *gen.Type, c *gen.Command) []*gen.Field {
	switch c.Source {
	case gen.SourceCreate:
		return t.CreateFields()
	case gen.SourceUpdate:
		return t.UpdateFields()
	case gen.SourceFields:
		var fs []*gen.Field
		for _, f := range t.Fields {
			if slices.Contains(c.Fields, f.Name) {
				fs = append(fs, f)
			}
		}
		return fs
	default:
		return nil
	}
}

// genCommands generates the command file ({entity}_command.go).
func genCommands(h gen.GeneratorHelper, t *gen.Type) *jen.File {
	f := h.NewFile(h.Pkg())
	marker := "is" + t.CommandName()
	resultMarker := "is" + t.CommandResultName()

	f.Commentf("%s is a command on %s. The set of commands is closed.", t.CommandName(), t.Name)
	f.Type().Id(t.CommandName()).Interface(
		jen.Id("Name").Params().String(),
		jen.Id("Kind").Params().Qual(h.RuntimePkg(), "CommandKind"),
		jen.Id(marker).Params(),
	)

	f.Commentf("%s is the result of a dispatched %s.", t.CommandResultName(), t.CommandName())
	f.Type().Id(t.CommandResultName()).Interface(
		jen.Id(resultMarker).Params(),
	)

	for _, c := range t.Commands {
		genCommand(h, f, t, c, marker, resultMarker)
	}
	genCommandHandler(h, f, t)
	genDispatch(f, t)
	return f
}

// genCommand generates the payload and result structs of one command.
func genCommand(h gen.GeneratorHelper, f *jen.File, t *gen.Type, c *gen.Command, marker, resultMarker string) {
	name := c.StructName(t.Name)
	if c.Doc != "" {
		f.Comment(c.Doc)
	} else {
		f.Commentf("%s is the payload of the %s command.", name, c.Name)
	}
	switch {
	case c.IsPublic():
		f.Comment("The command is public.")
	case c.Security != "":
		f.Commentf("The command requires the %s security scheme.", c.Security)
	}
	f.Type().Id(name).StructFunc(func(group *jen.Group) {
		if c.RequiresID {
			group.Id("ID").Add(h.IDType(t)).Tag(map[string]string{"json": "id"})
		}
		if c.Source == gen.SourceCustom {
			group.Id("Payload").Add(gen.TypeExpr(c.Payload)).Tag(map[string]string{"json": "payload"})
			return
		}
		for _, field := range commandFields(t, c) {
			if c.Source == gen.SourceUpdate {
				group.Id(field.StructField()).Add(h.PatchType(field)).Tag(jsonTag(field, true))
				continue
			}
			group.Id(field.StructField()).Add(h.GoType(field)).Tag(jsonTag(field, false))
		}
	})
	f.Func().Params(jen.Id(name)).Id(marker).Params().Block()
	f.Func().Params(jen.Id(name)).Id("Name").Params().String().Block(jen.Return(jen.Lit(c.Name)))
	f.Func().Params(jen.Id(name)).Id("Kind").Params().Qual(h.RuntimePkg(), "CommandKind").Block(
		jen.Return(jen.Qual(h.RuntimePkg(), commandKinds[c.Kind])),
	)
	if c.Security != "" {
		f.Func().Params(jen.Id(name)).Id("Security").Params().String().Block(jen.Return(jen.Lit(c.Security)))
	}

	result := c.ResultName(t.Name)
	f.Commentf("%s holds the value returned by the %s handler.", result, c.Name)
	f.Type().Id(result).Struct(jen.Id("Value").Add(resultType(h, t, c)))
	f.Func().Params(jen.Id(result)).Id(resultMarker).Params().Block()
}

// genCommandHandler generates the handler contract. C is the caller
// context passed through by the dispatcher.
func genCommandHandler(h gen.GeneratorHelper, f *jen.File, t *gen.Type) {
	f.Commentf("%s handles the commands of %s.", t.CommandHandlerName(), t.Name)
	f.Type().Id(t.CommandHandlerName()).Types(jen.Id("C").Any()).InterfaceFunc(func(group *jen.Group) {
		for _, c := range t.Commands {
			params := []jen.Code{ctxParam(), jen.Id("c").Id("C")}
			if param, _ := payloadArg(t, c); param != nil {
				params = append(params, jen.Id("payload").Add(param))
			}
			group.Id(c.HandlerName()).Params(params...).Params(resultType(h, t, c), jen.Error())
		}
	})
}

// dispatchCase returns the case of one command in the dispatcher switch.
func dispatchCase(t *gen.Type, c *gen.Command, handler jen.Code) *jen.Statement {
	args := []jen.Code{jen.Id("ctx"), jen.Id("c")}
	if _, arg := payloadArg(t, c); arg != nil {
		args = append(args, arg)
	}
	return jen.Case(jen.Id(c.StructName(t.Name))).Block(
		jen.List(jen.Id("v"), jen.Err()).Op(":=").Add(handler).Dot(c.HandlerName()).Call(args...),
		ifErr(jen.Nil(), jen.Err()),
		jen.Return(jen.Id(c.ResultName(t.Name)).Values(jen.Dict{jen.Id("Value"): jen.Id("v")}), jen.Nil()),
	)
}

// genDispatch generates the type-switch dispatcher.
func genDispatch(f *jen.File, t *gen.Type) {
	name := "Dispatch" + t.CommandName()
	f.Commentf("%s routes cmd to its handler method.", name)
	f.Func().Id(name).Types(jen.Id("C").Any()).Params(
		ctxParam(),
		jen.Id("h").Id(t.CommandHandlerName()).Types(jen.Id("C")),
		jen.Id("c").Id("C"),
		jen.Id("cmd").Id(t.CommandName()),
	).Params(jen.Id(t.CommandResultName()), jen.Error()).Block(
		jen.Switch(jen.Id("cmd").Op(":=").Id("cmd").Assert(jen.Type())).BlockFunc(func(sw *jen.Group) {
			for _, c := range t.Commands {
				sw.Add(dispatchCase(t, c, jen.Id("h")))
			}
			sw.Default().Block(
				jen.Return(jen.Nil(), jen.Qual(fmtPkg, "Errorf").Call(jen.Lit(t.Label()+": unknown command %T"), jen.Id("cmd"))),
			)
		}),
	)
}
