package sql

import (
	"strconv"
	"strings"

	"github.com/syssam/entgen/compiler/gen"
)

// Statement text is rendered at generation time. Binds are positional and
// numbered from $1 in argument order.

// columns returns the column names of fs.
func columns(fs []*gen.Field) []string {
	cols := make([]string, len(fs))
	for i, f := range fs {
		cols[i] = f.ColumnName()
	}
	return cols
}

// placeholders returns "$1, $2, ..., $n".
func placeholders(n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = "$" + strconv.Itoa(i+1)
	}
	return strings.Join(ps, ", ")
}

// deletedAtColumn returns the soft-delete marker column of t.
func deletedAtColumn(t *gen.Type) string {
	if f, ok := t.Field(gen.DeletedAt); ok {
		return f.ColumnName()
	}
	return gen.DeletedAt
}

// liveCond returns the condition excluding soft-deleted rows, or "" when
// t has no soft delete.
func liveCond(t *gen.Type) string {
	if !t.SoftDelete {
		return ""
	}
	return deletedAtColumn(t) + " IS NULL"
}

// andLive returns " AND <liveCond>" when live is set and t soft-deletes.
func andLive(t *gen.Type, live bool) string {
	if c := liveCond(t); live && c != "" {
		return " AND " + c
	}
	return ""
}

// selectSQL returns the SELECT of every column of t, in field order.
func selectSQL(t *gen.Type) string {
	return "SELECT " + strings.Join(columns(t.Fields), ", ") + " FROM " + t.QualifiedTable()
}

// orderSQL returns the default ordering of list operations.
func orderSQL(t *gen.Type) string {
	return " ORDER BY " + idColumn(t) + " DESC"
}

// findByIDSQL selects one row by id.
func findByIDSQL(t *gen.Type, live bool) string {
	return selectSQL(t) + " WHERE " + idColumn(t) + " = $1" + andLive(t, live)
}

// listSQL selects one page of rows. LIMIT and OFFSET bind $1 and $2.
func listSQL(t *gen.Type, live bool) string {
	q := selectSQL(t)
	if c := liveCond(t); live && c != "" {
		q += " WHERE " + c
	}
	return q + orderSQL(t) + " LIMIT $1 OFFSET $2"
}

// lookupSQL selects the rows of t whose column col equals $1.
func lookupSQL(t *gen.Type, col string) string {
	return selectSQL(t) + " WHERE " + col + " = $1" + andLive(t, true) + orderSQL(t)
}

// projectionSQL selects the projected columns of one live row by id.
func projectionSQL(t *gen.Type, p *gen.Projection) string {
	return "SELECT " + strings.Join(columns(p.ResolvedFields()), ", ") + " FROM " + t.QualifiedTable() +
		" WHERE " + idColumn(t) + " = $1" + andLive(t, true)
}

// insertSQL returns the INSERT of the insert fields of t followed by
// returning.
func insertSQL(t *gen.Type, returning string) string {
	fs := t.InsertFields()
	q := "INSERT INTO " + t.QualifiedTable()
	if len(fs) == 0 {
		q += " DEFAULT VALUES"
	} else {
		q += " (" + strings.Join(columns(fs), ", ") + ") VALUES (" + placeholders(len(fs)) + ")"
	}
	return q + returning
}

// returnFields returns the fields read back by an id-only or column-list
// write. The id is always part of the list so the row can be re-read.
func returnFields(t *gen.Type) []*gen.Field {
	switch t.Returning.Mode {
	case gen.ReturningIDOnly:
		return []*gen.Field{t.ID()}
	case gen.ReturningColumns:
		fs := []*gen.Field{}
		hasID := false
		for _, name := range t.Returning.Columns {
			for _, f := range t.Fields {
				if f.Name == name || f.ColumnName() == name {
					fs = append(fs, f)
					hasID = hasID || f.ID
					break
				}
			}
		}
		if !hasID {
			fs = append([]*gen.Field{t.ID()}, fs...)
		}
		return fs
	default:
		return nil
	}
}

// returningSQL returns the RETURNING clause of writes, with a leading space.
func returningSQL(t *gen.Type) string {
	switch t.Returning.Mode {
	case gen.ReturningFull:
		return " RETURNING *"
	case gen.ReturningNone:
		return ""
	default:
		return " RETURNING " + strings.Join(columns(returnFields(t)), ", ")
	}
}

// updatePrefix starts a partial UPDATE. The SET list is built at runtime.
func updatePrefix(t *gen.Type) string {
	return "UPDATE " + t.QualifiedTable() + " SET "
}

// whereIDAt returns " WHERE <id> = " to be followed by the runtime
// placeholder of the id bind.
func whereIDAt(t *gen.Type) string {
	return " WHERE " + idColumn(t) + " = "
}

// softDeleteSQL marks one live row deleted.
func softDeleteSQL(t *gen.Type) string {
	return updatePrefix(t) + deletedAtColumn(t) + " = NOW() WHERE " + idColumn(t) + " = $1 AND " + liveCond(t)
}

// restoreSQL clears the deleted marker of one soft-deleted row.
func restoreSQL(t *gen.Type) string {
	return updatePrefix(t) + deletedAtColumn(t) + " = NULL WHERE " + idColumn(t) + " = $1 AND " + deletedAtColumn(t) + " IS NOT NULL"
}

// hardDeleteSQL removes one row.
func hardDeleteSQL(t *gen.Type) string {
	return "DELETE FROM " + t.QualifiedTable() + " WHERE " + idColumn(t) + " = $1"
}
