package gen

import (
	"strings"

	"github.com/syssam/entgen/compiler/load"
)

// Projection is a named subset of the entity fields.
type Projection struct {
	// Name of the projection, e.g. "Public".
	Name string
	// Fields are the field names in declared order.
	Fields []string
	// fields are resolved by NewType.
	fields []*Field
}

// ResolvedFields returns the projected fields in declared order.
func (p *Projection) ResolvedFields() []*Field {
	return p.fields
}

// StructName returns the projection struct name for entity e.
func (p *Projection) StructName(e string) string {
	return e + pascal(p.Name)
}

// projections reads `projection: ["Public: id, sku", {name: Admin, fields: [...]}]`.
func (x *extractor) projections(a *load.Attr) []*Projection {
	var out []*Projection
	for _, it := range listItems(a) {
		p := &Projection{}
		if it.Value != "" {
			name, fields, _ := strings.Cut(it.Value, ":")
			p.Name = strings.TrimSpace(name)
			p.Fields = (&load.Attr{Value: fields}).Values()
		} else {
			for _, c := range it.Args {
				switch c.Name {
				case "name":
					p.Name = strings.TrimSpace(c.Value)
				case "fields":
					p.Fields = c.Values()
				default:
					x.unknown("projection", c.Name)
				}
			}
		}
		if !validName(p.Name) {
			x.invalid("", it.String(), "attribute projection: invalid projection name %q", p.Name)
			continue
		}
		out = append(out, p)
	}
	return out
}
