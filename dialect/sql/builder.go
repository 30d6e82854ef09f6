package sql

import (
	"strconv"
	"strings"
)

// Where accumulates WHERE conditions together with their bind values.
// Placeholders are numbered from $1 in the order conditions are added, and
// constant conditions (Raw) consume no placeholder.
type Where struct {
	conds []string
	args  []any
}

// NewWhere returns an empty accumulator.
func NewWhere() *Where {
	return &Where{}
}

// Add appends one condition and its bind. cond receives the placeholder
// index assigned to arg.
func (w *Where) Add(cond func(idx int) string, arg any) *Where {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, cond(len(w.args)))
	return w
}

// Raw appends a condition that has no bind value.
func (w *Where) Raw(cond string) *Where {
	w.conds = append(w.conds, cond)
	return w
}

// EQ appends `col = $n`.
func (w *Where) EQ(col string, v any) *Where {
	return w.Add(func(i int) string { return col + " = " + Placeholder(i) }, v)
}

// ILike appends a case-insensitive substring match. Wildcards in v are
// escaped so they match literally.
func (w *Where) ILike(col, v string) *Where {
	return w.Add(func(i int) string { return col + " ILIKE " + Placeholder(i) }, ContainsPattern(v))
}

// GTE appends `col >= $n`.
func (w *Where) GTE(col string, v any) *Where {
	return w.Add(func(i int) string { return col + " >= " + Placeholder(i) }, v)
}

// LTE appends `col <= $n`.
func (w *Where) LTE(col string, v any) *Where {
	return w.Add(func(i int) string { return col + " <= " + Placeholder(i) }, v)
}

// Len returns the number of conditions, bound or not.
func (w *Where) Len() int { return len(w.conds) }

// Conds returns the accumulated conditions.
func (w *Where) Conds() []string { return w.conds }

// Args returns the accumulated bind values in placeholder order.
func (w *Where) Args() []any { return w.args }

// Clause renders " WHERE c1 AND c2 ..." or the empty string when no
// condition was added.
func (w *Where) Clause() string {
	if w == nil || len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// Placeholder returns the Postgres positional parameter for index i.
func Placeholder(i int) string {
	return "$" + strconv.Itoa(i)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes the LIKE metacharacters \, % and _.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// ContainsPattern returns the LIKE pattern matching any value containing s.
func ContainsPattern(s string) string {
	return "%" + EscapeLike(s) + "%"
}

// Selector builds a single-table SELECT statement.
type Selector struct {
	columns []string
	table   string
	where   *Where
	order   []string
	limit   *int64
	offset  *int64
}

// Select starts a SELECT of the given columns.
func Select(columns ...string) *Selector {
	return &Selector{columns: columns}
}

// From sets the (schema-qualified) table.
func (s *Selector) From(table string) *Selector {
	s.table = table
	return s
}

// Where sets the condition accumulator.
func (s *Selector) Where(w *Where) *Selector {
	s.where = w
	return s
}

// OrderAsc appends `col ASC` to the ORDER BY list.
func (s *Selector) OrderAsc(col string) *Selector {
	s.order = append(s.order, col+" ASC")
	return s
}

// OrderDesc appends `col DESC` to the ORDER BY list.
func (s *Selector) OrderDesc(col string) *Selector {
	s.order = append(s.order, col+" DESC")
	return s
}

// Paginate binds LIMIT and OFFSET after every WHERE argument.
func (s *Selector) Paginate(limit, offset int64) *Selector {
	s.limit, s.offset = &limit, &offset
	return s
}

// Query renders the statement and returns it with its bind values.
func (s *Selector) Query() (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	if len(s.columns) == 0 {
		b.WriteString("*")
	} else {
		b.WriteString(strings.Join(s.columns, ", "))
	}
	b.WriteString(" FROM ")
	b.WriteString(s.table)
	var args []any
	if s.where != nil {
		b.WriteString(s.where.Clause())
		args = append(args, s.where.args...)
	}
	if len(s.order) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(s.order, ", "))
	}
	if s.limit != nil {
		args = append(args, *s.limit)
		b.WriteString(" LIMIT ")
		b.WriteString(Placeholder(len(args)))
	}
	if s.offset != nil {
		args = append(args, *s.offset)
		b.WriteString(" OFFSET ")
		b.WriteString(Placeholder(len(args)))
	}
	return b.String(), args
}
