package privacy

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Policy decision sentinel errors.
//
// Rules return one of these to steer evaluation. Use errors.Is() to check
// for them:
//
//	if errors.Is(err, privacy.Deny) { ... }
var (
	// Allow terminates evaluation with an allow decision.
	Allow = errors.New("entgen/privacy: allow rule")

	// Deny terminates evaluation with a deny decision.
	Deny = errors.New("entgen/privacy: deny rule")

	// Skip abstains and lets the next rule decide.
	Skip = errors.New("entgen/privacy: skip rule")
)

// Allowf returns a formatted wrapped Allow decision.
func Allowf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Allow)...)
}

// Denyf returns a formatted wrapped Deny decision.
func Denyf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Deny)...)
}

// Skipf returns a formatted wrapped Skip decision.
func Skipf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Skip)...)
}

// Op is the repository operation a policy is asked about.
type Op uint8

// Repository operations.
const (
	OpCreate Op = iota + 1
	OpRead
	OpUpdate
	OpDelete
	OpList
)

var opNames = [...]string{
	OpCreate: "create",
	OpRead:   "read",
	OpUpdate: "update",
	OpDelete: "delete",
	OpList:   "list",
}

func (op Op) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", op)
}

// Error reports a rejected operation. It wraps the policy decision, so
// errors.Is(err, Deny) holds for rejections built with Deny or Denyf.
type Error struct {
	Op     Op
	Entity string
	Err    error
}

// NewError returns an Error for the given operation. A nil err becomes Deny.
func NewError(op Op, entity string, err error) *Error {
	if err == nil {
		err = Deny
	}
	return &Error{Op: op, Entity: entity, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("entgen/privacy: ")
	b.WriteString(e.Op.String())
	b.WriteString(" ")
	b.WriteString(e.Entity)
	b.WriteString(" denied")
	if e.Err != nil && e.Err.Error() != Deny.Error() {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// IsDenied reports whether err is (or wraps) a privacy Error.
func IsDenied(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	return errors.As(err, &e)
}

// Rule decides whether an operation may proceed. Returning nil is the same
// as returning Skip.
type Rule interface {
	Eval(ctx context.Context, op Op) error
}

// RuleFunc adapts an ordinary function to a Rule.
type RuleFunc func(context.Context, Op) error

// Eval returns f(ctx, op).
func (f RuleFunc) Eval(ctx context.Context, op Op) error {
	return f(ctx, op)
}

// Rules is an ordered rule chain.
type Rules []Rule

// Eval evaluates the chain in order. The first Allow yields nil, the first
// other non-Skip decision is returned as is. A chain that ends without a
// decision denies, as does an empty chain.
func (rs Rules) Eval(ctx context.Context, op Op) error {
	if decision, ok := DecisionFromContext(ctx); ok {
		return decision
	}
	for _, r := range rs {
		switch decision := r.Eval(ctx, op); {
		case decision == nil || errors.Is(decision, Skip):
		case errors.Is(decision, Allow):
			return nil
		default:
			return decision
		}
	}
	return Denyf("entgen/privacy: no rule allowed %s", op)
}

// AlwaysAllowRule returns a rule that always allows.
func AlwaysAllowRule() Rule {
	return fixedDecision{Allow}
}

// AlwaysDenyRule returns a rule that always denies.
func AlwaysDenyRule() Rule {
	return fixedDecision{Deny}
}

// OnOps evaluates rule only for the listed operations and skips otherwise.
func OnOps(rule Rule, ops ...Op) Rule {
	return RuleFunc(func(ctx context.Context, op Op) error {
		for _, o := range ops {
			if o == op {
				return rule.Eval(ctx, op)
			}
		}
		return Skip
	})
}

// DenyOps returns a rule denying the listed operations.
func DenyOps(ops ...Op) Rule {
	return OnOps(RuleFunc(func(_ context.Context, op Op) error {
		return Denyf("entgen/privacy: operation %s is not allowed", op)
	}), ops...)
}

// AllowOps returns a rule allowing the listed operations.
func AllowOps(ops ...Op) Rule {
	return OnOps(AlwaysAllowRule(), ops...)
}

type decisionCtxKey struct{}

// DecisionContext attaches a decision that short-circuits rule evaluation
// for every Rules chain run with the returned context.
func DecisionContext(parent context.Context, decision error) context.Context {
	if decision == nil || errors.Is(decision, Skip) {
		return parent
	}
	return context.WithValue(parent, decisionCtxKey{}, decision)
}

// DecisionFromContext retrieves the decision attached by DecisionContext.
// An Allow decision is reported as nil.
func DecisionFromContext(ctx context.Context) (error, bool) {
	decision, ok := ctx.Value(decisionCtxKey{}).(error)
	if ok && errors.Is(decision, Allow) {
		decision = nil
	}
	return decision, ok
}

type fixedDecision struct {
	decision error
}

func (f fixedDecision) Eval(context.Context, Op) error {
	return f.decision
}
