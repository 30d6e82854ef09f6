package privacy_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/entgen/privacy"
)

func TestDecisionHelpers(t *testing.T) {
	assert.ErrorIs(t, privacy.Allowf("ok %d", 1), privacy.Allow)
	assert.ErrorIs(t, privacy.Denyf("no %s", "way"), privacy.Deny)
	assert.ErrorIs(t, privacy.Skipf("pass"), privacy.Skip)
	assert.Equal(t, "no way: entgen/privacy: deny rule", privacy.Denyf("no %s", "way").Error())
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "create", privacy.OpCreate.String())
	assert.Equal(t, "read", privacy.OpRead.String())
	assert.Equal(t, "update", privacy.OpUpdate.String())
	assert.Equal(t, "delete", privacy.OpDelete.String())
	assert.Equal(t, "list", privacy.OpList.String())
	assert.Equal(t, "Op(42)", privacy.Op(42).String())
}

func TestError(t *testing.T) {
	t.Run("BareDeny", func(t *testing.T) {
		err := privacy.NewError(privacy.OpDelete, "Product", nil)
		assert.Equal(t, "entgen/privacy: delete Product denied", err.Error())
		assert.ErrorIs(t, err, privacy.Deny)
		assert.True(t, privacy.IsDenied(err))
	})

	t.Run("WithReason", func(t *testing.T) {
		err := privacy.NewError(privacy.OpUpdate, "Product", privacy.Denyf("not owner"))
		assert.Equal(t, "entgen/privacy: update Product denied: not owner: entgen/privacy: deny rule", err.Error())
		assert.ErrorIs(t, err, privacy.Deny)
	})

	t.Run("Wrapped", func(t *testing.T) {
		err := fmt.Errorf("handler: %w", privacy.NewError(privacy.OpRead, "Order", errors.New("custom")))
		assert.True(t, privacy.IsDenied(err))

		var pe *privacy.Error
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, privacy.OpRead, pe.Op)
		assert.Equal(t, "Order", pe.Entity)
	})

	t.Run("NotDenied", func(t *testing.T) {
		assert.False(t, privacy.IsDenied(nil))
		assert.False(t, privacy.IsDenied(errors.New("boom")))
	})
}

func TestRulesEval(t *testing.T) {
	ctx := context.Background()

	t.Run("FirstAllowWins", func(t *testing.T) {
		rs := privacy.Rules{
			privacy.RuleFunc(func(context.Context, privacy.Op) error { return nil }),
			privacy.RuleFunc(func(context.Context, privacy.Op) error { return privacy.Skip }),
			privacy.AlwaysAllowRule(),
			privacy.AlwaysDenyRule(),
		}
		assert.NoError(t, rs.Eval(ctx, privacy.OpCreate))
	})

	t.Run("FirstDenyWins", func(t *testing.T) {
		rs := privacy.Rules{privacy.AlwaysDenyRule(), privacy.AlwaysAllowRule()}
		assert.ErrorIs(t, rs.Eval(ctx, privacy.OpCreate), privacy.Deny)
	})

	t.Run("CustomDecision", func(t *testing.T) {
		boom := errors.New("boom")
		rs := privacy.Rules{privacy.RuleFunc(func(context.Context, privacy.Op) error { return boom })}
		assert.ErrorIs(t, rs.Eval(ctx, privacy.OpRead), boom)
	})

	t.Run("ExhaustedDenies", func(t *testing.T) {
		assert.ErrorIs(t, privacy.Rules{}.Eval(ctx, privacy.OpList), privacy.Deny)
		rs := privacy.Rules{privacy.RuleFunc(func(context.Context, privacy.Op) error { return privacy.Skip })}
		err := rs.Eval(ctx, privacy.OpList)
		assert.ErrorIs(t, err, privacy.Deny)
		assert.Contains(t, err.Error(), "no rule allowed list")
	})

	t.Run("OpScoped", func(t *testing.T) {
		rs := privacy.Rules{
			privacy.DenyOps(privacy.OpDelete),
			privacy.AllowOps(privacy.OpRead, privacy.OpList, privacy.OpDelete),
		}
		assert.NoError(t, rs.Eval(ctx, privacy.OpRead))
		assert.NoError(t, rs.Eval(ctx, privacy.OpList))
		err := rs.Eval(ctx, privacy.OpDelete)
		assert.ErrorIs(t, err, privacy.Deny)
		assert.Contains(t, err.Error(), "operation delete is not allowed")
		assert.ErrorIs(t, rs.Eval(ctx, privacy.OpCreate), privacy.Deny)
	})
}

func TestDecisionContext(t *testing.T) {
	ctx := context.Background()
	deny := privacy.Rules{privacy.AlwaysDenyRule()}

	assert.Equal(t, ctx, privacy.DecisionContext(ctx, nil))
	assert.Equal(t, ctx, privacy.DecisionContext(ctx, privacy.Skip))

	allowCtx := privacy.DecisionContext(ctx, privacy.Allow)
	d, ok := privacy.DecisionFromContext(allowCtx)
	assert.True(t, ok)
	assert.NoError(t, d)
	assert.NoError(t, deny.Eval(allowCtx, privacy.OpDelete))

	denyCtx := privacy.DecisionContext(ctx, privacy.Deny)
	allow := privacy.Rules{privacy.AlwaysAllowRule()}
	assert.ErrorIs(t, allow.Eval(denyCtx, privacy.OpRead), privacy.Deny)

	_, ok = privacy.DecisionFromContext(ctx)
	assert.False(t, ok)
}
