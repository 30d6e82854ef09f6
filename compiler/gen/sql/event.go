package sql

import (
	"github.com/dave/jennifer/jen"

	"github.com/syssam/entgen/compiler/gen"
)

// eventVariant returns the type name of one event variant, e.g.
// "ProductCreated".
func eventVariant(t *gen.Type, name string) string {
	return t.Name + name
}

// eventDef describes one variant of the event union.
type eventDef struct {
	Name string
	Kind string
	// Entity variants carry the entity, the others carry only its id.
	Entity bool
	Doc    string
}

// eventDefs returns the event variants of t in kind order.
func eventDefs(t *gen.Type) []eventDef {
	defs := []eventDef{
		{Name: "Created", Kind: "EventCreated", Entity: true, Doc: "is published after a row is inserted."},
		{Name: "Updated", Kind: "EventUpdated", Entity: true, Doc: "is published after a row is updated. It carries both versions."},
	}
	if t.SoftDelete {
		defs = append(defs,
			eventDef{Name: "SoftDeleted", Kind: "EventSoftDeleted", Doc: "is published after a row is soft-deleted."},
			eventDef{Name: "Restored", Kind: "EventRestored", Doc: "is published after a soft-deleted row is restored."},
		)
	}
	return append(defs, eventDef{Name: "HardDeleted", Kind: "EventHardDeleted", Doc: "is published after a row is removed."})
}

// genEvents generates the event union ({entity}_event.go).
func genEvents(h gen.GeneratorHelper, t *gen.Type) *jen.File {
	f := h.NewFile(h.Pkg())
	marker := "is" + t.EventName()

	f.Commentf("%s is a lifecycle event of %s. The set of variants is closed.", t.EventName(), t.Name)
	f.Type().Id(t.EventName()).Interface(
		jen.Comment("Kind returns the lifecycle transition of the event."),
		jen.Id("Kind").Params().Qual(h.RuntimePkg(), "EventKind"),
		jen.Comment("EntityID returns the id of the entity the event is about."),
		jen.Id("EntityID").Params().Add(h.IDType(t)),
		jen.Id(marker).Params(),
	)

	for _, def := range eventDefs(t) {
		name := eventVariant(t, def.Name)
		f.Commentf("%s %s", name, def.Doc)
		switch {
		case def.Name == "Updated":
			f.Type().Id(name).Struct(
				jen.Id("Old").Add(entityPtr(t)).Tag(map[string]string{"json": "old"}),
				jen.Id("New").Add(entityPtr(t)).Tag(map[string]string{"json": "new"}),
			)
		case def.Entity:
			f.Type().Id(name).Struct(
				jen.Id("Entity").Add(entityPtr(t)).Tag(map[string]string{"json": "entity"}),
			)
		default:
			f.Type().Id(name).Struct(
				jen.Id("ID").Add(h.IDType(t)).Tag(map[string]string{"json": "id"}),
			)
		}

		f.Func().Params(jen.Id(name)).Id("Kind").Params().Qual(h.RuntimePkg(), "EventKind").Block(
			jen.Return(jen.Qual(h.RuntimePkg(), def.Kind)),
		)
		f.Func().Params(jen.Id("ev").Id(name)).Id("EntityID").Params().Add(h.IDType(t)).BlockFunc(func(grp *jen.Group) {
			switch {
			case def.Name == "Updated":
				grp.If(jen.Id("ev").Dot("New").Op("!=").Nil()).Block(jen.Return(jen.Id("ev").Dot("New").Dot(idField(t))))
				grp.If(jen.Id("ev").Dot("Old").Op("!=").Nil()).Block(jen.Return(jen.Id("ev").Dot("Old").Dot(idField(t))))
				grp.Var().Id("zero").Add(h.IDType(t))
				grp.Return(jen.Id("zero"))
			case def.Entity:
				grp.If(jen.Id("ev").Dot("Entity").Op("==").Nil()).Block(
					jen.Var().Id("zero").Add(h.IDType(t)),
					jen.Return(jen.Id("zero")),
				)
				grp.Return(jen.Id("ev").Dot("Entity").Dot(idField(t)))
			default:
				grp.Return(jen.Id("ev").Dot("ID"))
			}
		})
		f.Func().Params(jen.Id(name)).Id(marker).Params().Block()
	}

	genEventCodec(h, f, t)
	return f
}

// genEventCodec generates the JSON envelope of the events and its codec.
// Both delegate to the stream runtime so every entity shares one wire form.
func genEventCodec(h gen.GeneratorHelper, f *jen.File, t *gen.Type) {
	env := t.EventEnvelopeName()
	f.Commentf("%s is the JSON form of a %s: its kind and the encoded variant.", env, t.EventName())
	f.Type().Id(env).Op("=").Qual(h.StreamPkg(), "Envelope")

	f.Commentf("Encode%s encodes ev into its envelope.", t.EventName())
	f.Func().Id("Encode"+t.EventName()).Params(jen.Id("ev").Id(t.EventName())).Params(jen.Index().Byte(), jen.Error()).Block(
		jen.Return(jen.Qual(h.StreamPkg(), "Encode").Call(jen.Id("ev").Dot("Kind").Call(), jen.Id("ev"))),
	)

	f.Commentf("Decode%s decodes an envelope produced by Encode%s.", t.EventName(), t.EventName())
	f.Func().Id("Decode"+t.EventName()).Params(jen.Id("b").Index().Byte()).Params(jen.Id(t.EventName()), jen.Error()).BlockFunc(func(grp *jen.Group) {
		grp.List(jen.Id("env"), jen.Err()).Op(":=").Qual(h.StreamPkg(), "Decode").Call(jen.Id("b"))
		grp.Add(ifErr(jen.Nil(), jen.Err()))
		grp.Switch(jen.Id("env").Dot("Kind")).BlockFunc(func(sw *jen.Group) {
			for _, def := range eventDefs(t) {
				sw.Case(jen.Qual(h.RuntimePkg(), def.Kind)).Block(
					jen.Var().Id("ev").Id(eventVariant(t, def.Name)),
					jen.If(jen.Err().Op(":=").Qual(jsonPkg, "Unmarshal").Call(jen.Id("env").Dot("Payload"), jen.Op("&").Id("ev")), jen.Err().Op("!=").Nil()).Block(
						jen.Return(jen.Nil(), jen.Err()),
					),
					jen.Return(jen.Id("ev"), jen.Nil()),
				)
			}
			sw.Default().Block(
				jen.Return(jen.Nil(), jen.Qual(fmtPkg, "Errorf").Call(jen.Lit(t.Label()+": unknown event kind %s"), jen.Id("env").Dot("Kind"))),
			)
		})
	})
}
