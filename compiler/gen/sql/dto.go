package sql

import (
	"github.com/dave/jennifer/jen"

	"github.com/syssam/entgen/compiler/gen"
)

// genEntity generates the entity file ({entity}.go).
func genEntity(h gen.GeneratorHelper, t *gen.Type) *jen.File {
	f := h.NewFile(h.Pkg())

	genEntityStruct(h, f, t)
	genCreateRequest(h, f, t)
	genUpdateRequest(h, f, t)
	genResponse(h, f, t)
	for _, p := range t.Projections {
		genProjection(h, f, t, p)
	}
	return f
}

// genEntityStruct generates the entity struct. Skipped fields are stored
// but never serialized.
func genEntityStruct(h gen.GeneratorHelper, f *jen.File, t *gen.Type) {
	if t.Doc != "" {
		f.Comment(t.Doc)
	} else {
		f.Commentf("%s is the model entity stored in %s.", t.Name, t.QualifiedTable())
	}
	f.Type().Id(t.Name).StructFunc(func(group *jen.Group) {
		for _, field := range t.Fields {
			if field.Doc != "" {
				group.Comment(field.Doc)
			}
			tags := h.StructTags(field)
			if field.Skip {
				tags["json"] = "-"
			}
			group.Id(field.StructField()).Add(h.GoType(field)).Tag(tags)
		}
	})
}

// genCreateRequest generates the create DTO.
func genCreateRequest(h gen.GeneratorHelper, f *jen.File, t *gen.Type) {
	f.Commentf("%s holds the fields accepted when creating a %s.", t.CreateRequestName(), t.Name)
	f.Type().Id(t.CreateRequestName()).StructFunc(func(group *jen.Group) {
		for _, field := range t.CreateFields() {
			group.Id(field.StructField()).Add(h.GoType(field)).Tag(jsonTag(field, false))
		}
	})
}

// genUpdateRequest generates the partial update DTO. A nil field leaves the
// column unchanged.
func genUpdateRequest(h gen.GeneratorHelper, f *jen.File, t *gen.Type) {
	f.Commentf("%s holds a partial update of a %s. Nil fields are left unchanged.", t.UpdateRequestName(), t.Name)
	f.Type().Id(t.UpdateRequestName()).StructFunc(func(group *jen.Group) {
		for _, field := range t.UpdateFields() {
			group.Id(field.StructField()).Add(h.PatchType(field)).Tag(jsonTag(field, true))
		}
	})
}

// genResponse generates the response DTO and its constructor.
func genResponse(h gen.GeneratorHelper, f *jen.File, t *gen.Type) {
	fields := t.ResponseFields()
	f.Commentf("%s is the serialized form of a %s.", t.ResponseName(), t.Name)
	f.Type().Id(t.ResponseName()).StructFunc(func(group *jen.Group) {
		for _, field := range fields {
			group.Id(field.StructField()).Add(h.GoType(field)).Tag(jsonTag(field, false))
		}
	})

	f.Commentf("New%s builds the response of e.", t.ResponseName())
	f.Func().Id("New"+t.ResponseName()).Params(jen.Id("e").Add(entityPtr(t))).Id(t.ResponseName()).Block(
		jen.Return(jen.Id(t.ResponseName()).Values(jen.DictFunc(func(d jen.Dict) {
			for _, field := range fields {
				d[jen.Id(field.StructField())] = jen.Id("e").Dot(field.StructField())
			}
		}))),
	)
}

// genProjection generates a projection struct and its conversion method.
func genProjection(h gen.GeneratorHelper, f *jen.File, t *gen.Type, p *gen.Projection) {
	name := p.StructName(t.Name)
	fields := p.ResolvedFields()
	f.Commentf("%s is the %s projection of %s.", name, p.Name, t.Name)
	f.Type().Id(name).StructFunc(func(group *jen.Group) {
		for _, field := range fields {
			group.Id(field.StructField()).Add(h.GoType(field)).Tag(h.StructTags(field))
		}
	})

	f.Commentf("To%s returns the %s projection of e.", gen.Pascal(p.Name), p.Name)
	f.Func().Params(jen.Id("e").Add(entityPtr(t))).Id("To"+gen.Pascal(p.Name)).Params().Id(name).Block(
		jen.Return(jen.Id(name).Values(jen.DictFunc(func(d jen.Dict) {
			for _, field := range fields {
				d[jen.Id(field.StructField())] = jen.Id("e").Dot(field.StructField())
			}
		}))),
	)
}
