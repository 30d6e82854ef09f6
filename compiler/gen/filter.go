package gen

// FilterOp is the comparison of one filter clause.
type FilterOp uint8

// Filter operators.
const (
	OpEQ FilterOp = iota
	OpILike
	OpGTE
	OpLTE
)

// Method returns the sql.Where method implementing the operator.
func (op FilterOp) Method() string {
	switch op {
	case OpILike:
		return "ILike"
	case OpGTE:
		return "GTE"
	case OpLTE:
		return "LTE"
	default:
		return "EQ"
	}
}

// FilterClause pairs one optional filter parameter with the condition it
// produces. A range field yields two clauses.
type FilterClause struct {
	Field *Field
	Op    FilterOp
	// Param is the filter struct field holding the value.
	Param string
}

// FilterClauses returns the clauses of the query filter of t, in field
// declaration order. The order is the order conditions and binds are
// appended at runtime.
func FilterClauses(t *Type) []FilterClause {
	var cs []FilterClause
	for _, f := range t.FilterFields() {
		name := f.StructField()
		switch f.Filter {
		case FilterEq:
			cs = append(cs, FilterClause{Field: f, Op: OpEQ, Param: name})
		case FilterLike:
			cs = append(cs, FilterClause{Field: f, Op: OpILike, Param: name})
		case FilterRange:
			cs = append(cs,
				FilterClause{Field: f, Op: OpGTE, Param: name + "From"},
				FilterClause{Field: f, Op: OpLTE, Param: name + "To"},
			)
		}
	}
	return cs
}
