package sql

import (
	"github.com/dave/jennifer/jen"

	"github.com/syssam/entgen/compiler/gen"
)

// Standard library import paths used by generated code.
const (
	contextPkg = "context"
	errorsPkg  = "errors"
	fmtPkg     = "fmt"
	jsonPkg    = "encoding/json"
	stringsPkg = "strings"
)

// ctxParam returns `ctx context.Context`.
func ctxParam() jen.Code {
	return jen.Id("ctx").Qual(contextPkg, "Context")
}

// idParam returns `id <IDType>`.
func idParam(h gen.GeneratorHelper, t *gen.Type) jen.Code {
	return jen.Id("id").Add(h.IDType(t))
}

// entityPtr returns `*E`.
func entityPtr(t *gen.Type) *jen.Statement {
	return jen.Op("*").Id(t.Name)
}

// entitySlice returns `[]*E`.
func entitySlice(t *gen.Type) *jen.Statement {
	return jen.Index().Op("*").Id(t.Name)
}

// ifErr returns `if err != nil { return results... }`.
func ifErr(results ...jen.Code) jen.Code {
	return jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(results...))
}

// jsonTag returns the json tag of a DTO field. omit adds omitempty.
func jsonTag(f *gen.Field, omit bool) map[string]string {
	name := f.Name
	if omit || f.IsOptional() || f.IsArray() {
		name += ",omitempty"
	}
	return map[string]string{"json": name}
}

// bindValue wraps a bind expression of f for the driver. Arrays are bound
// through sql.Array.
func bindValue(h gen.GeneratorHelper, f *gen.Field, v *jen.Statement) jen.Code {
	if f.IsArray() {
		return jen.Qual(h.SQLPkg(), "Array").Call(v)
	}
	return v
}

// scanDest returns the scan destination of f on the struct value recv.
func scanDest(h gen.GeneratorHelper, f *gen.Field, recv string) jen.Code {
	dest := jen.Op("&").Id(recv).Dot(f.StructField())
	if f.IsArray() {
		return jen.Qual(h.SQLPkg(), "Array").Call(dest)
	}
	return dest
}

// hasCommands reports whether the command artifact is emitted.
func hasCommands(t *gen.Type) bool {
	return t.HasFeature(gen.FeatureCommands.Name) && len(t.Commands) > 0
}

// hasStreams reports whether writes publish change notifications.
func hasStreams(t *gen.Type) bool {
	return t.HasFeature(gen.FeatureStreams.Name)
}

// idField returns the identifier struct field name of t.
func idField(t *gen.Type) string {
	return t.ID().StructField()
}

// idColumn returns the identifier column of t.
func idColumn(t *gen.Type) string {
	return t.ID().ColumnName()
}
