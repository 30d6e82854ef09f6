package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenHooks(t *testing.T) {
	h := newMockHelper(t, productDoc, reviewDoc)
	out := render(t, genHooks(h, h.typ(t, "Product")))

	t.Run("contract", func(t *testing.T) {
		for _, want := range []string{
			"type ProductHooks interface {",
			"BeforeCreate(ctx context.Context, req *CreateProductRequest) error",
			"AfterCreate(ctx context.Context, e *Product) error",
			"BeforeUpdate(ctx context.Context, id uuid.UUID, req *UpdateProductRequest) error",
			"AfterDelete(ctx context.Context, id uuid.UUID) error",
			"BeforeHardDelete(ctx context.Context, id uuid.UUID) error",
			"AfterRestore(ctx context.Context, id uuid.UUID) error",
			"BeforeCommand(ctx context.Context, cmd ProductCommand) error",
			"AfterCommand(ctx context.Context, cmd ProductCommand, res ProductCommandResult) error",
		} {
			assert.Contains(t, out, want)
		}
	})

	t.Run("noop", func(t *testing.T) {
		assert.Contains(t, out, "type ProductNoopHooks struct{}")
		assert.Contains(t, out, "func (ProductNoopHooks) BeforeUpdate(ctx context.Context, id uuid.UUID, req *UpdateProductRequest) error {\n return nil\n}")
		assert.Contains(t, out, "var _ ProductHooks = ProductNoopHooks{}")
	})

	t.Run("hooked writes", func(t *testing.T) {
		assert.Contains(t, out, "type ProductHookedRepository struct {\n ProductRepository\n hooks ProductHooks\n}")
		assert.Contains(t, out, "if err := r.hooks.BeforeCreate(ctx, &req); err != nil {\n return nil, err\n }\n e, err := r.ProductRepository.Create(ctx, req)\n if err != nil || e == nil {\n return e, err\n }\n if err := r.hooks.AfterCreate(ctx, e); err != nil {\n return nil, err\n }")
		assert.Contains(t, out, "ok, err := r.ProductRepository.Restore(ctx, id)\n if err != nil || !ok {\n return ok, err\n }\n if err := r.hooks.AfterRestore(ctx, id); err != nil {\n return false, err\n }\n return true, nil")
	})

	t.Run("commands", func(t *testing.T) {
		assert.Contains(t, out, "func DispatchProductCommandWithHooks[C any](ctx context.Context, hooks ProductHooks, h ProductCommandHandler[C], c C, cmd ProductCommand) (ProductCommandResult, error) {")
		assert.Contains(t, out, "res, err := DispatchProductCommand(ctx, h, c, cmd)")
		assert.Less(t, indexOf(out, "hooks.BeforeCommand(ctx, cmd)"), indexOf(out, "res, err := DispatchProductCommand"))
		assert.Less(t, indexOf(out, "res, err := DispatchProductCommand"), indexOf(out, "hooks.AfterCommand(ctx, cmd, res)"))
	})
}

func TestGenHooks_NoCommands(t *testing.T) {
	h := newMockHelper(t, productDoc, reviewDoc)
	out := render(t, genHooks(h, h.typ(t, "Review")))
	assert.NotContains(t, out, "BeforeCommand")
	assert.NotContains(t, out, "HardDelete")
	assert.Contains(t, out, "func (r *ReviewHookedRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {")
}
