package gen

import (
	"errors"
	"fmt"
	"go/parser"
	"strings"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/entgen/compiler/load"
)

// CommandSource selects where the payload fields of a command come from.
type CommandSource uint8

// Command payload sources.
const (
	// SourceCreate copies the create fields.
	SourceCreate CommandSource = iota
	// SourceUpdate copies the update fields as optional values.
	SourceUpdate
	// SourceFields copies an explicit field subset.
	SourceFields
	// SourceCustom uses an external payload type verbatim.
	SourceCustom
	// SourceNone carries no fields besides the optional id.
	SourceNone
)

func (s CommandSource) String() string {
	switch s {
	case SourceCreate:
		return "create"
	case SourceUpdate:
		return "update"
	case SourceFields:
		return "fields"
	case SourceCustom:
		return "custom"
	default:
		return "none"
	}
}

// CommandKind classifies a command for result inference.
type CommandKind uint8

// Command kinds.
const (
	CommandCreate CommandKind = iota
	CommandUpdate
	CommandDelete
	CommandCustom
)

func (k CommandKind) String() string {
	switch k {
	case CommandCreate:
		return "create"
	case CommandUpdate:
		return "update"
	case CommandDelete:
		return "delete"
	default:
		return "custom"
	}
}

// ParseCommandKind parses the `kind` option of a command.
func ParseCommandKind(s string) (CommandKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "create":
		return CommandCreate, nil
	case "update":
		return CommandUpdate, nil
	case "delete":
		return CommandDelete, nil
	case "custom":
		return CommandCustom, nil
	default:
		return CommandCreate, fmt.Errorf("kind must be create, update, delete or custom, got %q", s)
	}
}

// Command is one declared CQRS command.
type Command struct {
	// Name is the command name, e.g. "Register".
	Name string
	// Source of the payload fields.
	Source CommandSource
	// Fields is the explicit subset of a SourceFields command.
	Fields []string
	// Payload is the Go type expression of a SourceCustom command.
	Payload string
	// RequiresID adds the entity id to the payload.
	RequiresID bool
	// Kind drives the default result type.
	Kind CommandKind
	// Result overrides the result type with a Go type expression.
	Result string
	// Security is an opaque security scheme name, "none" marks a public
	// command.
	Security string
	// Doc is the command documentation.
	Doc string
}

// ResultIsEntity reports whether the command returns the entity. An
// explicit Result wins over the kind.
func (c *Command) ResultIsEntity() bool {
	if c.Result != "" {
		return false
	}
	switch c.Kind {
	case CommandCreate, CommandUpdate:
		return true
	case CommandDelete:
		return false
	default:
		return c.Source != SourceCustom
	}
}

// ResultIsUnit reports whether the command returns no value.
func (c *Command) ResultIsUnit() bool {
	return c.Result == "" && !c.ResultIsEntity()
}

// IsPublic reports whether the command opts out of security.
func (c *Command) IsPublic() bool {
	return c.Security == "none"
}

// HandlerName returns the handler method name, e.g. "HandleRegister".
func (c *Command) HandlerName() string {
	return "Handle" + pascal(c.Name)
}

// StructName returns the payload struct name for entity e.
func (c *Command) StructName(e string) string {
	return pascal(c.Name) + e
}

// ResultName returns the result struct name for entity e.
func (c *Command) ResultName(e string) string {
	return pascal(c.Name) + e + "Result"
}

// newCommand applies the defaults of a bare command name.
func newCommand(name string) *Command {
	return &Command{Name: name, Source: SourceCreate, Kind: CommandCreate}
}

// commands reads the `command` attribute. Each entry is either a scalar
// ("Register", "Restock: quantity, price") or a mapping carrying a name and
// options.
func (x *extractor) commands(a *load.Attr) []*Command {
	var out []*Command
	for _, it := range listItems(a) {
		var cmd *Command
		if it.Value != "" {
			cmd = x.scalarCommand(it.Value)
		} else {
			cmd = x.mappingCommand(it)
		}
		if cmd != nil {
			out = append(out, cmd)
		}
	}
	return out
}

func (x *extractor) scalarCommand(s string) *Command {
	name, fields, hasFields := strings.Cut(s, ":")
	name = strings.TrimSpace(name)
	if !validName(name) {
		x.invalid("", s, "attribute command: invalid command name %q", name)
		return nil
	}
	cmd := newCommand(name)
	if hasFields {
		list := (&load.Attr{Value: fields}).Values()
		if len(list) == 0 {
			x.invalid("", s, "attribute command: %s lists no fields", name)
			return nil
		}
		cmd.setFields(list)
	}
	return cmd
}

func (c *Command) setFields(fields []string) {
	c.Source = SourceFields
	c.Fields = fields
	c.RequiresID = true
	c.Kind = CommandUpdate
}

// mappingCommand reads `{name: X, requires_id: true, source: update, ...}`.
// Options are applied in declaration order.
func (x *extractor) mappingCommand(it *load.Attr) *Command {
	nameAttr, ok := it.Lookup("name")
	if !ok || !validName(strings.TrimSpace(nameAttr.Value)) {
		x.invalid("", it.String(), "attribute command: missing or invalid name")
		return nil
	}
	cmd := newCommand(strings.TrimSpace(nameAttr.Value))
	for _, c := range it.Args {
		switch c.Name {
		case "name":
		case "doc":
			cmd.Doc = c.Value
		case "fields":
			list := c.Values()
			if len(list) == 0 {
				x.invalid("", c.String(), "attribute command: %s lists no fields", cmd.Name)
				continue
			}
			cmd.setFields(list)
		case "requires_id":
			if !x.bool("", c) {
				continue
			}
			cmd.RequiresID = true
			if cmd.Source == SourceCreate {
				cmd.Source = SourceNone
				cmd.Kind = CommandUpdate
			}
		case "source":
			switch strings.ToLower(strings.TrimSpace(c.Value)) {
			case "create":
				cmd.Source = SourceCreate
			case "update":
				cmd.Source = SourceUpdate
				cmd.RequiresID = true
				cmd.Kind = CommandUpdate
			case "none":
				cmd.Source = SourceNone
			default:
				x.invalid("", c.Value, "attribute command: source must be create, update or none")
			}
		case "payload":
			typ := strings.TrimSpace(c.Value)
			if err := checkTypeExpr(typ); err != nil {
				x.invalid("", c.Value, "attribute command: payload: %v", err)
				continue
			}
			cmd.Source = SourceCustom
			cmd.Payload = typ
			cmd.Kind = CommandCustom
		case "result":
			typ := strings.TrimSpace(c.Value)
			if err := checkTypeExpr(typ); err != nil {
				x.invalid("", c.Value, "attribute command: result: %v", err)
				continue
			}
			cmd.Result = typ
		case "kind":
			k, err := ParseCommandKind(c.Value)
			if err != nil {
				x.invalid("", c.Value, "attribute command: %v", err)
				continue
			}
			cmd.Kind = k
		case "security":
			cmd.Security = strings.TrimSpace(c.Value)
		default:
			x.invalid("", c.Name, "unknown command option %q, expected: requires_id, source, payload, result, kind, security", c.Name)
		}
	}
	return cmd
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// checkTypeExpr reports whether s is a Go type expression.
func checkTypeExpr(s string) error {
	if s == "" {
		return errors.New("empty type")
	}
	if _, err := parser.ParseExpr(s); err != nil {
		return fmt.Errorf("invalid Go type %q", s)
	}
	return nil
}

// TypeExpr renders a user-supplied type expression. A package path
// qualifier ("github.com/org/pkg.Type") becomes an import, other
// expressions are emitted verbatim.
func TypeExpr(s string) *jen.Statement {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "*"):
		return jen.Op("*").Add(TypeExpr(s[1:]))
	case strings.HasPrefix(s, "[]"):
		return jen.Index().Add(TypeExpr(s[2:]))
	}
	if i := strings.LastIndex(s, "."); i > 0 && strings.Contains(s[:i], "/") {
		return jen.Qual(s[:i], s[i+1:])
	}
	return jen.Id(s)
}
