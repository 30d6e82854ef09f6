package sql

import (
	"github.com/dave/jennifer/jen"

	"github.com/syssam/entgen/compiler/gen"
)

// policyCheck is one policy method and the repository method it guards.
type policyCheck struct {
	Name string
	Op   string
	// Params follow ctx and the caller context.
	Params []jen.Code
	Args   []jen.Code
	Guards method
}

// policyChecks returns the checks of t in interface order.
func policyChecks(h gen.GeneratorHelper, t *gen.Type) []policyCheck {
	checks := []policyCheck{
		{
			Name:   "CanCreate",
			Op:     "OpCreate",
			Params: []jen.Code{jen.Id("req").Op("*").Id(t.CreateRequestName())},
			Args:   []jen.Code{jen.Op("&").Id("req")},
			Guards: createMethod(t),
		},
		{
			Name:   "CanRead",
			Op:     "OpRead",
			Params: []jen.Code{idParam(h, t)},
			Args:   []jen.Code{jen.Id("id")},
			Guards: findByIDMethod(h, t),
		},
		{
			Name:   "CanUpdate",
			Op:     "OpUpdate",
			Params: []jen.Code{idParam(h, t), jen.Id("req").Op("*").Id(t.UpdateRequestName())},
			Args:   []jen.Code{jen.Id("id"), jen.Op("&").Id("req")},
			Guards: updateMethod(h, t),
		},
		{
			Name:   "CanDelete",
			Op:     "OpDelete",
			Params: []jen.Code{idParam(h, t)},
			Args:   []jen.Code{jen.Id("id")},
			Guards: deleteMethod(h, t),
		},
		{
			Name:   "CanList",
			Op:     "OpList",
			Guards: listMethod(h, t),
		},
	}
	if t.HasFilter() {
		checks = append(checks, policyCheck{Name: "CanList", Op: "OpList", Guards: queryMethod(t)})
	}
	return checks
}

// policyParamTypes returns the parameter types of a policy check after
// the caller.
func policyParamTypes(h gen.GeneratorHelper, t *gen.Type, check string) []jen.Code {
	switch check {
	case "CanCreate":
		return []jen.Code{jen.Op("*").Id(t.CreateRequestName())}
	case "CanUpdate":
		return []jen.Code{h.IDType(t), jen.Op("*").Id(t.UpdateRequestName())}
	case "CanRead", "CanDelete":
		return []jen.Code{h.IDType(t)}
	}
	return nil
}

// genPolicy generates the policy file ({entity}_policy.go).
func genPolicy(h gen.GeneratorHelper, t *gen.Type) *jen.File {
	f := h.NewFile(h.Pkg())
	checks := policyChecks(h, t)
	allow := t.Name + "AllowAllPolicy"
	repo := t.Name + "PolicyRepository"
	typeParam := jen.Id("C").Any()

	f.Commentf("%s decides whether the caller c may run an operation on %s.", t.PolicyName(), t.Name)
	f.Comment("A non-nil error rejects the operation.")
	f.Type().Id(t.PolicyName()).Types(typeParam).InterfaceFunc(func(group *jen.Group) {
		for _, chk := range checks[:5] {
			params := append([]jen.Code{ctxParam(), jen.Id("c").Id("C")}, chk.Params...)
			group.Id(chk.Name).Params(params...).Error()
		}
	})

	f.Commentf("%s permits every operation.", allow)
	f.Type().Id(allow).Types(typeParam).Struct()
	for _, chk := range checks[:5] {
		params := append([]jen.Code{jen.Qual(contextPkg, "Context"), jen.Id("C")}, policyParamTypes(h, t, chk.Name)...)
		f.Func().Params(jen.Id(allow).Types(jen.Id("C"))).Id(chk.Name).Params(params...).Error().Block(jen.Return(jen.Nil()))
	}

	rules := t.Name + "RulePolicy"
	f.Commentf("%s evaluates Rules for every operation. The caller is attached", rules)
	f.Comment("to the rule context; see privacy.CallerAs.")
	f.Type().Id(rules).Types(typeParam).Struct(
		jen.Id("Rules").Qual(h.PrivacyPkg(), "Rules"),
	)
	for _, chk := range checks[:5] {
		params := []jen.Code{jen.Id("ctx").Qual(contextPkg, "Context"), jen.Id("c").Id("C")}
		for _, p := range policyParamTypes(h, t, chk.Name) {
			params = append(params, jen.Id("_").Add(p))
		}
		f.Func().Params(jen.Id("p").Id(rules).Types(jen.Id("C"))).Id(chk.Name).Params(params...).Error().Block(
			jen.Return(jen.Id("p").Dot("Rules").Dot("Eval").Call(
				jen.Qual(h.PrivacyPkg(), "WithCaller").Call(jen.Id("ctx"), jen.Id("c")),
				jen.Qual(h.PrivacyPkg(), chk.Op),
			)),
		)
	}
	f.Var().Id("_").Id(t.PolicyName()).Types(jen.Any()).Op("=").Id(rules).Types(jen.Any()).Values()

	f.Commentf("%s is a %s enforcing a %s before each operation.", repo, t.RepositoryName(), t.PolicyName())
	f.Comment("Rejections are reported as *privacy.Error; repository errors pass through.")
	f.Type().Id(repo).Types(typeParam).Struct(
		jen.Id("repo").Id(t.RepositoryName()),
		jen.Id("policy").Id(t.PolicyName()).Types(jen.Id("C")),
	)

	f.Commentf("New%s wraps repo with policy. It panics when policy is nil:", repo)
	f.Commentf("use %s to permit everything.", allow)
	f.Func().Id("New"+repo).Types(typeParam).Params(
		jen.Id("repo").Id(t.RepositoryName()),
		jen.Id("policy").Id(t.PolicyName()).Types(jen.Id("C")),
	).Op("*").Id(repo).Types(jen.Id("C")).Block(
		jen.If(jen.Id("policy").Op("==").Nil()).Block(
			jen.Panic(jen.Lit(t.Label()+": nil policy")),
		),
		jen.Return(jen.Op("&").Id(repo).Types(jen.Id("C")).Values(jen.Dict{
			jen.Id("repo"):   jen.Id("repo"),
			jen.Id("policy"): jen.Id("policy"),
		})),
	)

	recv := jen.Id("r").Op("*").Id(repo).Types(jen.Id("C"))
	f.Comment("Inner returns the wrapped repository.")
	f.Func().Params(recv).Id("Inner").Params().Id(t.RepositoryName()).Block(jen.Return(jen.Id("r").Dot("repo")))

	for _, chk := range checks {
		m := chk.Guards
		params := append([]jen.Code{ctxParam(), jen.Id("c").Id("C")}, m.Params...)
		fail := []jen.Code{jen.Nil()}
		if m.Name == "Delete" {
			fail = []jen.Code{jen.False()}
		}
		checkArgs := append([]jen.Code{jen.Id("ctx"), jen.Id("c")}, chk.Args...)
		f.Commentf("%s checks %s before calling the wrapped repository.", m.Name, chk.Name)
		f.Func().Params(recv).Id(m.Name).Params(params...).Params(m.Results...).Block(
			jen.If(
				jen.Err().Op(":=").Id("r").Dot("policy").Dot(chk.Name).Call(checkArgs...),
				jen.Err().Op("!=").Nil(),
			).Block(
				jen.Return(append(fail, jen.Qual(h.PrivacyPkg(), "NewError").Call(
					jen.Qual(h.PrivacyPkg(), chk.Op), jen.Lit(t.Label()), jen.Err(),
				))...),
			),
			jen.Return(m.call(jen.Id("r").Dot("repo"))),
		)
	}
	return f
}
