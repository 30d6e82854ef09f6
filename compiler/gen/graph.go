package gen

import (
	"fmt"

	"github.com/syssam/entgen/compiler/load"
)

// Graph holds the entity models of one generation run.
type Graph struct {
	*Config
	// Nodes are the entities in load order.
	Nodes []*Type
	// Schemas are the raw inputs.
	Schemas []*load.Schema
	nodes   map[string]*Type
}

// NewGraph builds the model of every schema. It stops at the first failing
// entity. Relations are resolved against the other entities of the graph;
// targets outside the graph are reported as warnings.
func NewGraph(c *Config, schemas ...*load.Schema) (*Graph, error) {
	if c == nil {
		c = DefaultConfig()
	}
	g := &Graph{Config: c, Schemas: schemas, nodes: make(map[string]*Type, len(schemas))}
	tables := make(map[string]string, len(schemas))
	for _, s := range schemas {
		t, err := NewType(c, s)
		if err != nil {
			return nil, err
		}
		if _, ok := g.nodes[t.Name]; ok {
			return nil, NewSchemaError(t.Name, "", "duplicate entity", nil)
		}
		if prev, ok := tables[t.QualifiedTable()]; ok {
			return nil, NewSchemaError(t.Name, "", fmt.Sprintf("table %s is already used by %s", t.QualifiedTable(), prev), nil)
		}
		tables[t.QualifiedTable()] = t.Name
		g.nodes[t.Name] = t
		g.Nodes = append(g.Nodes, t)
	}
	g.resolve()
	return g, nil
}

// Type returns the entity with the given name.
func (g *Graph) Type(name string) (*Type, bool) {
	t, ok := g.nodes[name]
	return t, ok
}

func (g *Graph) resolve() {
	logger := g.logger()
	for _, t := range g.Nodes {
		for _, f := range t.RelationFields() {
			rel := f.BelongsTo
			target, ok := g.nodes[rel.Target]
			if !ok {
				logger.Warn("belongs_to target is not part of the graph", "type", t.Name, "field", f.Name, "target", rel.Target)
				continue
			}
			rel.Type = target
			rel.Field = target.ID()
		}
		for _, rel := range t.Relations {
			target, ok := g.nodes[rel.Target]
			if !ok {
				logger.Warn("has_many target is not part of the graph", "type", t.Name, "target", rel.Target)
				continue
			}
			rel.Type = target
			for _, f := range target.RelationFields() {
				if f.BelongsTo.Target == t.Name {
					rel.Field = f
					break
				}
			}
			if rel.Field == nil {
				logger.Warn("has_many target has no belongs_to field back", "type", t.Name, "target", rel.Target)
			}
		}
	}
}

// RefTable returns the schema, table and column a belongs_to field points
// at. owner is the entity declaring the field. Unresolved targets default
// to the pluralized snake_case target name and an "id" column in the
// owner's schema.
func (r *Relation) RefTable(owner *Type) (schema, table, column string) {
	if r.Resolved() {
		column = "id"
		if id := r.Type.ID(); id != nil {
			column = id.ColumnName()
		}
		return r.Type.Schema, r.Type.Table, column
	}
	return owner.Schema, snake(plural(r.Target)), "id"
}

// MethodName returns the lookup method name of a has_many relation, e.g.
// "FindReviews".
func (r *Relation) MethodName() string {
	return "Find" + pascal(plural(r.Target))
}
