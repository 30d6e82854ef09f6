package privacy

import (
	"context"
	"slices"
)

type callerCtxKey struct{}

// WithCaller returns a copy of ctx carrying the caller of an operation.
// Generated rule policies attach the caller before evaluating their rules.
func WithCaller(ctx context.Context, caller any) context.Context {
	return context.WithValue(ctx, callerCtxKey{}, caller)
}

// CallerFromContext returns the caller attached with WithCaller.
func CallerFromContext(ctx context.Context) (any, bool) {
	c := ctx.Value(callerCtxKey{})
	return c, c != nil
}

// CallerAs returns the caller of ctx as a C.
func CallerAs[C any](ctx context.Context) (C, bool) {
	c, ok := ctx.Value(callerCtxKey{}).(C)
	return c, ok
}

// RoleHolder is implemented by callers carrying roles.
type RoleHolder interface {
	Roles() []string
}

// TenantHolder is implemented by callers scoped to a tenant.
type TenantHolder interface {
	TenantID() string
}

// CallerRule adapts fn to a Rule over callers of type C. Operations whose
// caller is missing or of another type are skipped.
func CallerRule[C any](fn func(ctx context.Context, caller C, op Op) error) Rule {
	return RuleFunc(func(ctx context.Context, op Op) error {
		c, ok := CallerAs[C](ctx)
		if !ok {
			return Skip
		}
		return fn(ctx, c, op)
	})
}

// DenyIfNoCaller denies every operation run without a caller.
//
//	privacy.Rules{
//	    privacy.DenyIfNoCaller(),
//	    privacy.HasRole("admin"),
//	    privacy.AllowOps(privacy.OpRead, privacy.OpList),
//	}
func DenyIfNoCaller() Rule {
	return RuleFunc(func(ctx context.Context, _ Op) error {
		if _, ok := CallerFromContext(ctx); !ok {
			return Denyf("entgen/privacy: caller required")
		}
		return Skip
	})
}

// HasRole allows callers holding role and skips the others.
func HasRole(role string) Rule {
	return HasAnyRole(role)
}

// HasAnyRole allows callers holding one of roles and skips the others.
func HasAnyRole(roles ...string) Rule {
	return CallerRule(func(_ context.Context, c RoleHolder, _ Op) error {
		if slices.ContainsFunc(c.Roles(), func(r string) bool { return slices.Contains(roles, r) }) {
			return Allow
		}
		return Skip
	})
}

// TenantRequired denies callers that are not scoped to a tenant.
func TenantRequired() Rule {
	return RuleFunc(func(ctx context.Context, _ Op) error {
		c, ok := CallerAs[TenantHolder](ctx)
		if !ok || c.TenantID() == "" {
			return Denyf("entgen/privacy: tenant required")
		}
		return Skip
	})
}
