package sql

import (
	"strings"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/entgen/compiler/gen"
)

// pgMethod generates one method of the PostgreSQL repository.
func pgMethod(f *jen.File, t *gen.Type, m method, body func(*jen.Group)) {
	f.Comment(m.Doc)
	f.Func().Params(pgRecv(t)).Add(m.signature()).BlockFunc(body)
}

// opName returns the operation name of a method in errors.
func opName(m method) string {
	return gen.Snake(m.Name)
}

// notifyStmt returns `if err := r.notify(ctx, ev); err != nil { return fail... }`.
func notifyStmt(ev jen.Code, fail ...jen.Code) jen.Code {
	return jen.If(
		jen.Err().Op(":=").Id("r").Dot("notify").Call(jen.Id("ctx"), ev),
		jen.Err().Op("!=").Nil(),
	).Block(jen.Return(append(fail, jen.Err())...))
}

// returnDests returns the scan destinations of the id-returning writes on
// the struct value ret.
func returnDests(h gen.GeneratorHelper, t *gen.Type) (string, []jen.Code) {
	fs := returnFields(t)
	if len(fs) == 0 {
		fs = []*gen.Field{t.ID()}
	}
	dests := make([]jen.Code, len(fs))
	for i, field := range fs {
		dests[i] = scanDest(h, field, "ret")
	}
	return " RETURNING " + strings.Join(columns(fs), ", "), dests
}

// genCreate generates Create. The statement shape follows the returning
// mode of the entity.
func genCreate(h gen.GeneratorHelper, f *jen.File, t *gen.Type) {
	m := createMethod(t)
	pgMethod(f, t, m, func(grp *jen.Group) {
		var args []jen.Code
		if t.ClientID() {
			grp.Id("id").Op(":=").Qual(h.RuntimePkg(), t.IDStrategy.Generator()).Call()
			args = append(args, jen.Id("id"))
		}
		for _, field := range t.CreateFields() {
			args = append(args, bindValue(h, field, jen.Id("req").Dot(field.StructField())))
		}
		mode := t.Returning.Mode
		if mode == gen.ReturningNone && !t.ClientID() {
			mode = gen.ReturningIDOnly
		}
		switch mode {
		case gen.ReturningFull:
			grp.List(jen.Id("e"), jen.Err()).Op(":=").Id("r").Dot("one").Call(
				append([]jen.Code{jen.Id("ctx"), jen.Lit(insertSQL(t, " RETURNING *"))}, args...)...,
			)
			grp.Add(ifErr(jen.Nil(), jen.Id("r").Dot("mutationErr").Call(jen.Lit(opName(m)), jen.Err())))
		case gen.ReturningNone:
			grp.If(
				jen.List(jen.Id("_"), jen.Err()).Op(":=").Id("r").Dot("db").Dot("ExecContext").Call(
					append([]jen.Code{jen.Id("ctx"), jen.Lit(insertSQL(t, ""))}, args...)...,
				),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(jen.Nil(), jen.Id("r").Dot("mutationErr").Call(jen.Lit(opName(m)), jen.Err())))
			grp.Id("e").Op(":=").Op("&").Id(t.Name).Values(jen.DictFunc(func(d jen.Dict) {
				d[jen.Id(idField(t))] = jen.Id("id")
				for _, field := range t.CreateFields() {
					d[jen.Id(field.StructField())] = jen.Id("req").Dot(field.StructField())
				}
			}))
		default:
			returning, dests := returnDests(h, t)
			grp.Var().Id("ret").Id(t.Name)
			grp.If(
				jen.Err().Op(":=").Id("r").Dot("db").Dot("QueryRowContext").Call(
					append([]jen.Code{jen.Id("ctx"), jen.Lit(insertSQL(t, returning))}, args...)...,
				).Dot("Scan").Call(dests...),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(jen.Nil(), jen.Id("r").Dot("mutationErr").Call(jen.Lit(opName(m)), jen.Err())))
			grp.List(jen.Id("e"), jen.Err()).Op(":=").Id("r").Dot("FindByID").Call(jen.Id("ctx"), jen.Id("ret").Dot(idField(t)))
			grp.Add(ifErr(jen.Nil(), jen.Err()))
		}
		if hasStreams(t) {
			grp.Add(notifyStmt(jen.Id(eventVariant(t, "Created")).Values(jen.Dict{jen.Id("Entity"): jen.Id("e")}), jen.Nil()))
		}
		grp.Return(jen.Id("e"), jen.Nil())
	})
}

// genUpdate generates Update. The SET list holds the non-nil request
// fields and is built at runtime, binds numbered in the order they are
// appended; the id binds last.
func genUpdate(h gen.GeneratorHelper, f *jen.File, t *gen.Type) {
	m := updateMethod(h, t)
	pgMethod(f, t, m, func(grp *jen.Group) {
		if !t.HasUpdate() {
			grp.Return(jen.Id("r").Dot("FindByID").Call(jen.Id("ctx"), jen.Id("id")))
			return
		}
		streams := hasStreams(t)
		if streams {
			grp.List(jen.Id("old"), jen.Err()).Op(":=").Id("r").Dot("FindByID").Call(jen.Id("ctx"), jen.Id("id"))
			grp.Add(ifErr(jen.Nil(), jen.Err()))
			grp.If(jen.Id("old").Op("==").Nil()).Block(jen.Return(jen.Nil(), jen.Nil()))
		}
		grp.Var().Defs(
			jen.Id("set").Index().String(),
			jen.Id("args").Index().Any(),
		)
		for _, field := range t.UpdateFields() {
			grp.If(jen.Id("req").Dot(field.StructField()).Op("!=").Nil()).Block(
				jen.Id("args").Op("=").Append(jen.Id("args"), bindValue(h, field, jen.Op("*").Id("req").Dot(field.StructField()))),
				jen.Id("set").Op("=").Append(jen.Id("set"),
					jen.Lit(field.ColumnName()+" = ").Op("+").Qual(h.SQLPkg(), "Placeholder").Call(jen.Len(jen.Id("args"))),
				),
			)
		}
		if streams {
			grp.If(jen.Len(jen.Id("set")).Op("==").Lit(0)).Block(jen.Return(jen.Id("old"), jen.Nil()))
		} else {
			grp.If(jen.Len(jen.Id("set")).Op("==").Lit(0)).Block(jen.Return(jen.Id("r").Dot("FindByID").Call(jen.Id("ctx"), jen.Id("id"))))
		}
		grp.Id("args").Op("=").Append(jen.Id("args"), jen.Id("id"))

		mode := t.Returning.Mode
		returning := returningSQL(t)
		var dests []jen.Code
		if mode == gen.ReturningIDOnly || mode == gen.ReturningColumns {
			returning, dests = returnDests(h, t)
		}
		query := jen.Lit(updatePrefix(t)).
			Op("+").Qual(stringsPkg, "Join").Call(jen.Id("set"), jen.Lit(", ")).
			Op("+").Lit(whereIDAt(t)).
			Op("+").Qual(h.SQLPkg(), "Placeholder").Call(jen.Len(jen.Id("args")))
		if suffix := andLive(t, true) + returning; suffix != "" {
			query.Op("+").Lit(suffix)
		}
		grp.Id("query").Op(":=").Add(query)

		mutationErr := jen.Id("r").Dot("mutationErr").Call(jen.Lit(opName(m)), jen.Err())
		switch mode {
		case gen.ReturningFull:
			grp.List(jen.Id("e"), jen.Err()).Op(":=").Id("r").Dot("one").Call(jen.Id("ctx"), jen.Id("query"), jen.Id("args").Op("..."))
			grp.Add(ifErr(jen.Nil(), mutationErr))
		case gen.ReturningNone:
			grp.List(jen.Id("ok"), jen.Err()).Op(":=").Id("r").Dot("exec").Call(jen.Id("ctx"), jen.Id("query"), jen.Id("args").Op("..."))
			grp.Add(ifErr(jen.Nil(), mutationErr))
			grp.If(jen.Op("!").Id("ok")).Block(jen.Return(jen.Nil(), jen.Nil()))
			grp.List(jen.Id("e"), jen.Err()).Op(":=").Id("r").Dot("FindByID").Call(jen.Id("ctx"), jen.Id("id"))
			grp.Add(ifErr(jen.Nil(), jen.Err()))
		default:
			grp.Var().Id("ret").Id(t.Name)
			grp.If(
				jen.Err().Op(":=").Id("r").Dot("db").Dot("QueryRowContext").Call(jen.Id("ctx"), jen.Id("query"), jen.Id("args").Op("...")).Dot("Scan").Call(dests...),
				jen.Qual(errorsPkg, "Is").Call(jen.Err(), jen.Qual(h.SQLPkg(), "ErrNoRows")),
			).Block(
				jen.Return(jen.Nil(), jen.Nil()),
			).Else().If(jen.Err().Op("!=").Nil()).Block(
				jen.Return(jen.Nil(), mutationErr),
			)
			grp.List(jen.Id("e"), jen.Err()).Op(":=").Id("r").Dot("FindByID").Call(jen.Id("ctx"), jen.Id("ret").Dot(idField(t)))
			grp.Add(ifErr(jen.Nil(), jen.Err()))
		}
		if streams {
			grp.If(jen.Id("e").Op("==").Nil()).Block(jen.Return(jen.Nil(), jen.Nil()))
			grp.Add(notifyStmt(jen.Id(eventVariant(t, "Updated")).Values(jen.Dict{
				jen.Id("Old"): jen.Id("old"),
				jen.Id("New"): jen.Id("e"),
			}), jen.Nil()))
		}
		grp.Return(jen.Id("e"), jen.Nil())
	})
}

// genExec generates a single-row write reporting whether a row matched.
// variant names the event published on success, if any.
func genExec(f *jen.File, t *gen.Type, m method, query, variant string) {
	pgMethod(f, t, m, func(grp *jen.Group) {
		grp.List(jen.Id("ok"), jen.Err()).Op(":=").Id("r").Dot("exec").Call(jen.Id("ctx"), jen.Lit(query), jen.Id("id"))
		grp.Add(ifErr(jen.False(), jen.Id("r").Dot("mutationErr").Call(jen.Lit(opName(m)), jen.Err())))
		if hasStreams(t) && variant != "" {
			grp.If(jen.Id("ok")).Block(
				notifyStmt(jen.Id(eventVariant(t, variant)).Values(jen.Dict{jen.Id("ID"): jen.Id("id")}), jen.False()),
			)
		}
		grp.Return(jen.Id("ok"), jen.Nil())
	})
}

// genDelete generates Delete, a soft delete when the entity has one.
func genDelete(h gen.GeneratorHelper, f *jen.File, t *gen.Type) {
	if t.SoftDelete {
		genExec(f, t, deleteMethod(h, t), softDeleteSQL(t), "SoftDeleted")
		return
	}
	genExec(f, t, deleteMethod(h, t), hardDeleteSQL(t), "HardDeleted")
}

// genHardDelete generates HardDelete of soft-deleted entities.
func genHardDelete(h gen.GeneratorHelper, f *jen.File, t *gen.Type) {
	genExec(f, t, hardDeleteMethod(h, t), hardDeleteSQL(t), "HardDeleted")
}

// genRestore generates Restore of soft-deleted entities.
func genRestore(h gen.GeneratorHelper, f *jen.File, t *gen.Type) {
	genExec(f, t, restoreMethod(h, t), restoreSQL(t), "Restored")
}

// genFindByID generates a lookup by id. live excludes soft-deleted rows.
func genFindByID(h gen.GeneratorHelper, f *jen.File, t *gen.Type, name string, live bool) {
	m := findByIDMethod(h, t)
	if name != m.Name {
		m.Name = name
		m.Doc = name + " is FindByID including soft-deleted rows."
	}
	pgMethod(f, t, m, func(grp *jen.Group) {
		grp.List(jen.Id("e"), jen.Err()).Op(":=").Id("r").Dot("one").Call(jen.Id("ctx"), jen.Lit(findByIDSQL(t, live)), jen.Id("id"))
		grp.Add(ifErr(jen.Nil(), jen.Id("r").Dot("queryErr").Call(jen.Lit(opName(m)), jen.Err())))
		grp.Return(jen.Id("e"), jen.Nil())
	})
}

// genList generates a paginated listing. live excludes soft-deleted rows.
func genList(h gen.GeneratorHelper, f *jen.File, t *gen.Type, name string, live bool) {
	m := listMethod(h, t)
	if name != m.Name {
		m.Name = name
		m.Doc = name + " is List including soft-deleted rows."
	}
	pgMethod(f, t, m, func(grp *jen.Group) {
		grp.Id("page").Op("=").Id("page").Dot("Normalize").Call()
		grp.List(jen.Id("es"), jen.Err()).Op(":=").Id("r").Dot("many").Call(
			jen.Id("ctx"), jen.Lit(listSQL(t, live)), jen.Id("page").Dot("Limit"), jen.Id("page").Dot("Offset"),
		)
		grp.Add(ifErr(jen.Nil(), jen.Id("r").Dot("queryErr").Call(jen.Lit(opName(m)), jen.Err())))
		grp.Return(jen.Id("es"), jen.Nil())
	})
}

// genQuery generates Query on top of the filter conditions.
func genQuery(h gen.GeneratorHelper, f *jen.File, t *gen.Type) {
	m := queryMethod(t)
	pgMethod(f, t, m, func(grp *jen.Group) {
		limit := jen.Qual(h.RuntimePkg(), "LimitOrDefault").Call(jen.Id("filter").Dot("Limit"))
		offset := jen.Qual(h.RuntimePkg(), "OffsetOrDefault").Call(jen.Id("filter").Dot("Offset"))
		grp.List(jen.Id("query"), jen.Id("args")).Op(":=").Qual(h.SQLPkg(), "Select").Call(jen.Id(t.ColumnsVar()).Op("...")).
			Dot("From").Call(jen.Id(t.TableConst())).
			Dot("Where").Call(jen.Id("filter").Dot("where").Call()).
			Dot("OrderDesc").Call(jen.Lit(idColumn(t))).
			Dot("Paginate").Call(limit, offset).
			Dot("Query").Call()
		grp.List(jen.Id("es"), jen.Err()).Op(":=").Id("r").Dot("many").Call(jen.Id("ctx"), jen.Id("query"), jen.Id("args").Op("..."))
		grp.Add(ifErr(jen.Nil(), jen.Id("r").Dot("queryErr").Call(jen.Lit(opName(m)), jen.Err())))
		grp.Return(jen.Id("es"), jen.Nil())
	})
}

// genFindByRelation generates the lookup by a belongs_to column.
func genFindByRelation(h gen.GeneratorHelper, f *jen.File, t *gen.Type, field *gen.Field) {
	for _, m := range repositoryMethods(h, t) {
		if m.Name != "FindBy"+field.StructField() {
			continue
		}
		pgMethod(f, t, m, func(grp *jen.Group) {
			grp.List(jen.Id("es"), jen.Err()).Op(":=").Id("r").Dot("many").Call(jen.Id("ctx"), jen.Lit(lookupSQL(t, field.ColumnName())), jen.Id("v"))
			grp.Add(ifErr(jen.Nil(), jen.Id("r").Dot("queryErr").Call(jen.Lit(opName(m)), jen.Err())))
			grp.Return(jen.Id("es"), jen.Nil())
		})
		return
	}
}

// genFindHasMany generates the lookup of the children of a has_many
// relation through their foreign key.
func genFindHasMany(h gen.GeneratorHelper, f *jen.File, t *gen.Type, rel *gen.Relation) {
	target := rel.Type
	m := method{
		Name:    rel.MethodName(),
		Doc:     rel.MethodName() + " returns the " + target.PluralName() + " of the " + t.Name + " with the given id.",
		Params:  []jen.Code{idParam(h, t)},
		Results: []jen.Code{entitySlice(target), jen.Error()},
	}
	pgMethod(f, t, m, func(grp *jen.Group) {
		grp.List(jen.Id("rows"), jen.Err()).Op(":=").Id("r").Dot("db").Dot("QueryContext").Call(
			jen.Id("ctx"), jen.Lit(lookupSQL(target, foreignKey(t, rel))), jen.Id("id"),
		)
		grp.Add(ifErr(jen.Nil(), jen.Id("r").Dot("queryErr").Call(jen.Lit(opName(m)), jen.Err())))
		grp.List(jen.Id("es"), jen.Err()).Op(":=").Id(target.CollectFunc()).Call(jen.Id("rows"))
		grp.Add(ifErr(jen.Nil(), jen.Id("r").Dot("queryErr").Call(jen.Lit(opName(m)), jen.Err())))
		grp.Return(jen.Id("es"), jen.Nil())
	})
}

// genFindProjection generates the projected lookup by id.
func genFindProjection(h gen.GeneratorHelper, f *jen.File, t *gen.Type, p *gen.Projection) {
	name := p.StructName(t.Name)
	m := method{
		Name:    "FindByID" + gen.Pascal(p.Name),
		Doc:     "FindByID" + gen.Pascal(p.Name) + " returns the " + p.Name + " projection of one " + t.Name + ", or nil when there is none.",
		Params:  []jen.Code{idParam(h, t)},
		Results: []jen.Code{jen.Op("*").Id(name), jen.Error()},
	}
	pgMethod(f, t, m, func(grp *jen.Group) {
		grp.Var().Id("p").Id(name)
		dests := make([]jen.Code, 0, len(p.ResolvedFields()))
		for _, field := range p.ResolvedFields() {
			dests = append(dests, scanDest(h, field, "p"))
		}
		grp.Err().Op(":=").Id("r").Dot("db").Dot("QueryRowContext").Call(jen.Id("ctx"), jen.Lit(projectionSQL(t, p)), jen.Id("id")).
			Dot("Scan").Call(dests...)
		grp.If(jen.Qual(errorsPkg, "Is").Call(jen.Err(), jen.Qual(h.SQLPkg(), "ErrNoRows"))).Block(jen.Return(jen.Nil(), jen.Nil()))
		grp.Add(ifErr(jen.Nil(), jen.Id("r").Dot("queryErr").Call(jen.Lit(opName(m)), jen.Err())))
		grp.Return(jen.Op("&").Id("p"), jen.Nil())
	})
}
