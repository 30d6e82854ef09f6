// Package privacy holds the runtime side of generated entity policies.
//
// Every entity with the policy feature gets a <E>Policy[C] interface, an
// explicit <E>AllowAllPolicy[C], a rule-driven <E>RulePolicy[C] and a
// <E>PolicyRepository[C] that consults the policy before each repository
// call. A rejection surfaces as *Error carrying the operation and entity:
//
//	repo := ent.NewProductPolicyRepository[Caller](pg, ent.ProductRulePolicy[Caller]{
//	    Rules: privacy.Rules{
//	        privacy.DenyIfNoCaller(),
//	        privacy.HasRole("admin"),
//	        privacy.AllowOps(privacy.OpRead, privacy.OpList),
//	    },
//	})
//	_, err := repo.Delete(ctx, caller, id)
//	if privacy.IsDenied(err) { ... }
//
// # Rule Evaluation
//
// Rules are evaluated in order until one returns a final decision:
//
//   - Allow: grants access and stops evaluation
//   - Deny: denies access and stops evaluation
//   - Skip (or nil): continues to the next rule
//
// A chain that runs out of rules denies.
package privacy
