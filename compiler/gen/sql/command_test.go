package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/entgen/compiler/gen"
)

func TestGenCommands(t *testing.T) {
	h := newMockHelper(t, productDoc, reviewDoc)
	out := render(t, genCommands(h, h.typ(t, "Product")))

	t.Run("unions", func(t *testing.T) {
		assert.Contains(t, out, "type ProductCommand interface {\n Name() string\n Kind() entgen.CommandKind\n isProductCommand()\n}")
		assert.Contains(t, out, "type ProductCommandResult interface {\n isProductCommandResult()\n}")
	})

	t.Run("create source", func(t *testing.T) {
		assert.Contains(t, out, "// RegisterProduct is the payload of the Register command.")
		assert.Contains(t, out, "type RegisterProduct struct {\n Sku string `json:\"sku\"`\n Name string `json:\"name\"`\n Quantity int32 `json:\"quantity\"`\n Tags []string `json:\"tags,omitempty\"`\n}")
		assert.Contains(t, out, "func (RegisterProduct) Name() string {\n return \"Register\"\n}")
		assert.Contains(t, out, "func (RegisterProduct) Kind() entgen.CommandKind {\n return entgen.CommandCreate\n}")
		assert.Contains(t, out, "type RegisterProductResult struct {\n Value *Product\n}")
	})

	t.Run("field subset", func(t *testing.T) {
		assert.Contains(t, out, "type RestockProduct struct {\n ID uuid.UUID `json:\"id\"`\n Quantity int32 `json:\"quantity\"`\n}")
		assert.Contains(t, out, "func (RestockProduct) Kind() entgen.CommandKind {\n return entgen.CommandUpdate\n}")
	})

	t.Run("id only", func(t *testing.T) {
		assert.Contains(t, out, "// The command requires the bearer security scheme.")
		assert.Contains(t, out, "type ArchiveProduct struct {\n ID uuid.UUID `json:\"id\"`\n}")
		assert.Contains(t, out, "func (ArchiveProduct) Kind() entgen.CommandKind {\n return entgen.CommandUpdate\n}")
		assert.Contains(t, out, "func (ArchiveProduct) Security() string {\n return \"bearer\"\n}")
		assert.Contains(t, out, "type ArchiveProductResult struct {\n Value *Product\n}")
		assert.NotContains(t, out, "func (RegisterProduct) Security()")
	})

	t.Run("handler", func(t *testing.T) {
		assert.Contains(t, out, "type ProductCommandHandler[C any] interface {")
		assert.Contains(t, out, "HandleRegister(ctx context.Context, c C, payload RegisterProduct) (*Product, error)")
		assert.Contains(t, out, "HandleRestock(ctx context.Context, c C, payload RestockProduct) (*Product, error)")
		assert.Contains(t, out, "HandleArchive(ctx context.Context, c C, payload ArchiveProduct) (*Product, error)")
	})

	t.Run("dispatch", func(t *testing.T) {
		assert.Contains(t, out, "func DispatchProductCommand[C any](ctx context.Context, h ProductCommandHandler[C], c C, cmd ProductCommand) (ProductCommandResult, error) {")
		assert.Contains(t, out, "switch cmd := cmd.(type) {")
		assert.Contains(t, out, "case RestockProduct:\n v, err := h.HandleRestock(ctx, c, cmd)")
		assert.Contains(t, out, "return RestockProductResult{Value: v}, nil")
		assert.Contains(t, out, "return nil, fmt.Errorf(\"product: unknown command %T\", cmd)")
	})
}

func TestGenCommands_Payloads(t *testing.T) {
	h := newMockHelper(t, `
name: Order
attrs:
  table: orders
  commands: true
  command:
    - {name: Import, payload: "github.com/acme/shop/imports.Batch", result: int}
    - {name: Ping, source: none, security: none}
    - {name: Purge, requires_id: true, kind: delete}
    - {name: Amend, source: update}
fields:
  - {name: id, type: uuid, attrs: {id: true}}
  - {name: note, type: string, attrs: {field: [create, update, response]}}
`)
	typ := h.typ(t, "Order")
	require.Len(t, typ.Commands, 4)
	out := render(t, genCommands(h, typ))

	t.Run("custom", func(t *testing.T) {
		assert.Equal(t, gen.CommandCustom, typ.Commands[0].Kind)
		assert.Contains(t, out, "type ImportOrder struct {\n Payload imports.Batch `json:\"payload\"`\n}")
		assert.Contains(t, out, "HandleImport(ctx context.Context, c C, payload imports.Batch) (int, error)")
		assert.Contains(t, out, "v, err := h.HandleImport(ctx, c, cmd.Payload)")
		assert.Contains(t, out, "return entgen.CommandCustom")
	})

	t.Run("none", func(t *testing.T) {
		assert.Contains(t, out, "// The command is public.")
		assert.Contains(t, out, "type PingOrder struct{}")
		assert.Contains(t, out, "HandlePing(ctx context.Context, c C) (*Order, error)")
		assert.Contains(t, out, "v, err := h.HandlePing(ctx, c)")
	})

	t.Run("unit result", func(t *testing.T) {
		assert.Contains(t, out, "type PurgeOrderResult struct {\n Value entgen.Unit\n}")
		assert.Contains(t, out, "HandlePurge(ctx context.Context, c C, payload PurgeOrder) (entgen.Unit, error)")
	})

	t.Run("update source", func(t *testing.T) {
		assert.Contains(t, out, "type AmendOrder struct {\n ID uuid.UUID `json:\"id\"`\n Note *string `json:\"note,omitempty\"`\n}")
	})
}

func TestCommandFields_DeclarationOrder(t *testing.T) {
	h := newMockHelper(t, `
name: Item
attrs:
  table: items
  command:
    - {name: Touch, fields: [b, a]}
fields:
  - {name: id, type: uuid, attrs: {id: true}}
  - {name: a, type: string}
  - {name: b, type: string}
`)
	typ := h.typ(t, "Item")
	var names []string
	for _, f := range commandFields(typ, typ.Commands[0]) {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"a", "b"}, names)
}
