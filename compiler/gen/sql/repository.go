package sql

import (
	"github.com/dave/jennifer/jen"

	"github.com/syssam/entgen/compiler/gen"
)

// method is one repository method signature.
type method struct {
	Name    string
	Doc     string
	Params  []jen.Code
	Results []jen.Code
	// Args are the argument names of Params, in order and without ctx.
	Args []string
}

// signature returns `Name(ctx, params...) (results...)`.
func (m method) signature() *jen.Statement {
	return jen.Id(m.Name).Params(append([]jen.Code{ctxParam()}, m.Params...)...).Params(m.Results...)
}

// call returns `recv.Name(ctx, args...)`.
func (m method) call(recv jen.Code) *jen.Statement {
	args := []jen.Code{jen.Id("ctx")}
	for _, a := range m.Args {
		args = append(args, jen.Id(a))
	}
	return jen.Add(recv).Dot(m.Name).Call(args...)
}

// entityResults returns `(*E, error)`.
func entityResults(t *gen.Type) []jen.Code {
	return []jen.Code{entityPtr(t), jen.Error()}
}

// listResults returns `([]*E, error)`.
func listResults(t *gen.Type) []jen.Code {
	return []jen.Code{entitySlice(t), jen.Error()}
}

// boolResults returns `(bool, error)`.
func boolResults() []jen.Code {
	return []jen.Code{jen.Bool(), jen.Error()}
}

// hasManyRelations returns the has_many relations that get a lookup
// method: resolved targets with a backend of their own.
func hasManyRelations(t *gen.Type) []*gen.Relation {
	var rels []*gen.Relation
	for _, rel := range t.Relations {
		if rel.Resolved() && rel.Type.HasBackend() {
			rels = append(rels, rel)
		}
	}
	return rels
}

// foreignKey returns the column of rel's target referencing t.
func foreignKey(t *gen.Type, rel *gen.Relation) string {
	if rel.Field != nil {
		return rel.Field.ColumnName()
	}
	return gen.Snake(t.Name) + "_id"
}

// Core method descriptors shared by the interface and its implementations.

func createMethod(t *gen.Type) method {
	return method{
		Name:    "Create",
		Doc:     "Create inserts a new " + t.Name + ".",
		Params:  []jen.Code{jen.Id("req").Id(t.CreateRequestName())},
		Results: entityResults(t),
		Args:    []string{"req"},
	}
}

func findByIDMethod(h gen.GeneratorHelper, t *gen.Type) method {
	return method{
		Name:    "FindByID",
		Doc:     "FindByID returns the " + t.Name + " with the given id, or nil when there is none.",
		Params:  []jen.Code{idParam(h, t)},
		Results: entityResults(t),
		Args:    []string{"id"},
	}
}

func updateMethod(h gen.GeneratorHelper, t *gen.Type) method {
	return method{
		Name:    "Update",
		Doc:     "Update applies the non-nil fields of req. It returns nil when the row does not exist.",
		Params:  []jen.Code{idParam(h, t), jen.Id("req").Id(t.UpdateRequestName())},
		Results: entityResults(t),
		Args:    []string{"id", "req"},
	}
}

func deleteMethod(h gen.GeneratorHelper, t *gen.Type) method {
	doc := "Delete removes the row and reports whether it existed."
	if t.SoftDelete {
		doc = "Delete soft-deletes the row and reports whether a live row was found."
	}
	return method{
		Name:    "Delete",
		Doc:     doc,
		Params:  []jen.Code{idParam(h, t)},
		Results: boolResults(),
		Args:    []string{"id"},
	}
}

func listMethod(h gen.GeneratorHelper, t *gen.Type) method {
	return method{
		Name:    "List",
		Doc:     "List returns one page of " + t.PluralName() + ", newest id first.",
		Params:  []jen.Code{jen.Id("page").Qual(h.RuntimePkg(), "Pagination")},
		Results: listResults(t),
		Args:    []string{"page"},
	}
}

func queryMethod(t *gen.Type) method {
	return method{
		Name:    "Query",
		Doc:     "Query returns the " + t.PluralName() + " matching filter.",
		Params:  []jen.Code{jen.Id("filter").Id(t.FilterName())},
		Results: listResults(t),
		Args:    []string{"filter"},
	}
}

func hardDeleteMethod(h gen.GeneratorHelper, t *gen.Type) method {
	return method{
		Name:    "HardDelete",
		Doc:     "HardDelete removes the row, deleted or not.",
		Params:  []jen.Code{idParam(h, t)},
		Results: boolResults(),
		Args:    []string{"id"},
	}
}

func restoreMethod(h gen.GeneratorHelper, t *gen.Type) method {
	return method{
		Name:    "Restore",
		Doc:     "Restore clears the deleted marker and reports whether a deleted row was found.",
		Params:  []jen.Code{idParam(h, t)},
		Results: boolResults(),
		Args:    []string{"id"},
	}
}

// repositoryMethods returns every method of the repository interface.
func repositoryMethods(h gen.GeneratorHelper, t *gen.Type) []method {
	ms := []method{
		createMethod(t),
		findByIDMethod(h, t),
		updateMethod(h, t),
		deleteMethod(h, t),
		listMethod(h, t),
	}
	if t.HasFilter() {
		ms = append(ms, queryMethod(t))
	}
	for _, field := range t.RelationFields() {
		ms = append(ms, method{
			Name:    "FindBy" + field.StructField(),
			Doc:     "FindBy" + field.StructField() + " returns the " + t.PluralName() + " referencing the given " + field.BelongsTo.Target + ".",
			Params:  []jen.Code{jen.Id("v").Add(h.BaseType(field))},
			Results: listResults(t),
			Args:    []string{"v"},
		})
	}
	for _, rel := range hasManyRelations(t) {
		ms = append(ms, method{
			Name:    rel.MethodName(),
			Doc:     rel.MethodName() + " returns the " + rel.Type.PluralName() + " of the " + t.Name + " with the given id.",
			Params:  []jen.Code{idParam(h, t)},
			Results: []jen.Code{entitySlice(rel.Type), jen.Error()},
			Args:    []string{"id"},
		})
	}
	for _, p := range t.Projections {
		ms = append(ms, method{
			Name:    "FindByID" + gen.Pascal(p.Name),
			Doc:     "FindByID" + gen.Pascal(p.Name) + " returns the " + p.Name + " projection of one " + t.Name + ", or nil when there is none.",
			Params:  []jen.Code{idParam(h, t)},
			Results: []jen.Code{jen.Op("*").Id(p.StructName(t.Name)), jen.Error()},
			Args:    []string{"id"},
		})
	}
	if t.SoftDelete {
		ms = append(ms,
			hardDeleteMethod(h, t),
			restoreMethod(h, t),
			method{
				Name:    "FindByIDWithDeleted",
				Doc:     "FindByIDWithDeleted is FindByID including soft-deleted rows.",
				Params:  []jen.Code{idParam(h, t)},
				Results: entityResults(t),
				Args:    []string{"id"},
			},
			method{
				Name:    "ListWithDeleted",
				Doc:     "ListWithDeleted is List including soft-deleted rows.",
				Params:  []jen.Code{jen.Id("page").Qual(h.RuntimePkg(), "Pagination")},
				Results: listResults(t),
				Args:    []string{"page"},
			},
		)
	}
	return ms
}

// genRepository generates the repository interface ({entity}_repository.go).
func genRepository(h gen.GeneratorHelper, t *gen.Type) *jen.File {
	f := h.NewFile(h.Pkg())
	f.Commentf("%s is the storage contract of %s.", t.RepositoryName(), t.Name)
	f.Type().Id(t.RepositoryName()).InterfaceFunc(func(group *jen.Group) {
		for _, m := range repositoryMethods(h, t) {
			group.Comment(m.Doc)
			group.Add(m.signature())
		}
	})
	return f
}
