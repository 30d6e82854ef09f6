package load

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind is the shape of a declared type.
type Kind string

// Declared type shapes. Only KindStruct describes an entity; the others are
// accepted by the loader so the model builder can reject them with a
// precise error.
const (
	KindStruct Kind = "struct"
	KindEnum   Kind = "enum"
	KindTuple  Kind = "tuple"
	KindUnit   Kind = "unit"
)

// Schema is one declared entity as read from a schema document.
type Schema struct {
	Name       string   `yaml:"name" json:"name"`
	Kind       Kind     `yaml:"kind,omitempty" json:"kind,omitempty"`
	Visibility string   `yaml:"visibility,omitempty" json:"visibility,omitempty"`
	Doc        string   `yaml:"doc,omitempty" json:"doc,omitempty"`
	Attrs      Attrs    `yaml:"attrs,omitempty" json:"attrs,omitempty"`
	Fields     []*Field `yaml:"fields,omitempty" json:"fields,omitempty"`
	// Pos is "<file>#<document>" and is filled by the loader.
	Pos string `yaml:"-" json:"-"`
}

// Field is one declared field.
type Field struct {
	Name  string `yaml:"name" json:"name"`
	Type  string `yaml:"type" json:"type"`
	Doc   string `yaml:"doc,omitempty" json:"doc,omitempty"`
	Attrs Attrs  `yaml:"attrs,omitempty" json:"attrs,omitempty"`
}

// Attr is one node of the annotation tree. A scalar entry has a Value, a
// nested mapping or list has Args. List items are unnamed.
type Attr struct {
	Name  string
	Value string
	Args  []*Attr
}

// Attrs is an ordered annotation list.
type Attrs []*Attr

// Lookup returns the first attribute with the given name.
func (as Attrs) Lookup(name string) (*Attr, bool) {
	for _, a := range as {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// Has reports whether an attribute with the given name exists.
func (as Attrs) Has(name string) bool {
	_, ok := as.Lookup(name)
	return ok
}

// All returns every attribute with the given name, in order.
func (as Attrs) All(name string) []*Attr {
	var out []*Attr
	for _, a := range as {
		if a.Name == name {
			out = append(out, a)
		}
	}
	return out
}

// Lookup returns the first child with the given name.
func (a *Attr) Lookup(name string) (*Attr, bool) {
	return Attrs(a.Args).Lookup(name)
}

// IsFlag reports whether the attribute was written without a value, as in
// `id:` or a bare list entry.
func (a *Attr) IsFlag() bool {
	return a.Value == "" && len(a.Args) == 0
}

// Values flattens the attribute into a list of strings. A scalar value is
// split on commas, and unnamed list items contribute their own values.
// Empty entries are dropped.
func (a *Attr) Values() []string {
	var out []string
	out = appendSplit(out, a.Value)
	for _, c := range a.Args {
		switch {
		case c.Name == "":
			out = append(out, c.Values()...)
		case c.IsFlag():
			out = append(out, c.Name)
		}
	}
	return out
}

func appendSplit(out []string, s string) []string {
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (a *Attr) String() string {
	var b strings.Builder
	a.write(&b)
	return b.String()
}

func (a *Attr) write(b *strings.Builder) {
	b.WriteString(a.Name)
	if a.Value != "" {
		if a.Name != "" {
			b.WriteString("=")
		}
		b.WriteString(strconv.Quote(a.Value))
	}
	if len(a.Args) > 0 {
		b.WriteString("(")
		for i, c := range a.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			c.write(b)
		}
		b.WriteString(")")
	}
}

// UnmarshalYAML converts a mapping (or a list of mappings and scalars) into
// an ordered attribute list. Mapping order is preserved.
func (as *Attrs) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		attrs, err := mappingAttrs(node)
		if err != nil {
			return err
		}
		*as = attrs
		return nil
	case yaml.SequenceNode:
		var out Attrs
		for _, item := range node.Content {
			switch item.Kind {
			case yaml.ScalarNode:
				out = append(out, &Attr{Name: item.Value})
			case yaml.MappingNode:
				attrs, err := mappingAttrs(item)
				if err != nil {
					return err
				}
				out = append(out, attrs...)
			default:
				return fmt.Errorf("line %d: unexpected attribute list item", item.Line)
			}
		}
		*as = out
		return nil
	default:
		if node.Tag == "!!null" {
			*as = nil
			return nil
		}
		return fmt.Errorf("line %d: attrs must be a mapping or a list", node.Line)
	}
}

func mappingAttrs(node *yaml.Node) (Attrs, error) {
	out := make(Attrs, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: attribute names must be scalars", k.Line)
		}
		a, err := nodeAttr(k.Value, v)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func nodeAttr(name string, v *yaml.Node) (*Attr, error) {
	a := &Attr{Name: name}
	switch v.Kind {
	case yaml.ScalarNode:
		if v.Tag != "!!null" {
			a.Value = v.Value
		}
	case yaml.MappingNode:
		args, err := mappingAttrs(v)
		if err != nil {
			return nil, err
		}
		a.Args = args
	case yaml.SequenceNode:
		for _, item := range v.Content {
			child, err := nodeAttr("", item)
			if err != nil {
				return nil, err
			}
			a.Args = append(a.Args, child)
		}
	case yaml.AliasNode:
		return nodeAttr(name, v.Alias)
	default:
		return nil, fmt.Errorf("line %d: unsupported value for attribute %q", v.Line, name)
	}
	return a, nil
}

// MarshalYAML renders the attribute list back into a mapping.
func (as Attrs) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, a := range as {
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: a.Name}, a.node())
	}
	return node, nil
}

func (a *Attr) node() *yaml.Node {
	if len(a.Args) == 0 {
		if a.Value == "" {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "~"}
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Value: a.Value}
	}
	named := a.Args[0].Name != ""
	if named {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for _, c := range a.Args {
			m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: c.Name}, c.node())
		}
		return m
	}
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, c := range a.Args {
		seq.Content = append(seq.Content, c.node())
	}
	return seq
}
