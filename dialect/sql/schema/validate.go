package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError represents a table validation error.
type ValidationError struct {
	Table   string
	Column  string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s.%s: %s", e.Table, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Table, e.Message)
}

// ValidationResult holds the results of table validation.
type ValidationResult struct {
	Errors   []*ValidationError
	Warnings []*ValidationError
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Err joins the validation errors, or returns nil.
func (r *ValidationResult) Err() error {
	if !r.HasErrors() {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// String returns a human-readable summary of the validation result.
func (r *ValidationResult) String() string {
	var sb strings.Builder
	if len(r.Errors) > 0 {
		sb.WriteString("Errors:\n")
		for _, e := range r.Errors {
			sb.WriteString("  - ")
			sb.WriteString(e.Error())
			sb.WriteString("\n")
		}
	}
	if len(r.Warnings) > 0 {
		sb.WriteString("Warnings:\n")
		for _, w := range r.Warnings {
			sb.WriteString("  - ")
			sb.WriteString(w.Error())
			sb.WriteString("\n")
		}
	}
	if !r.HasErrors() && !r.HasWarnings() {
		sb.WriteString("No issues found")
	}
	return sb.String()
}

// ValidateTable checks a single table definition before its DDL is
// rendered.
func ValidateTable(t *Table) *ValidationResult {
	result := &ValidationResult{}
	if t.Name == "" {
		result.Errors = append(result.Errors, &ValidationError{Message: "table has no name"})
		return result
	}

	pk := 0
	colNames := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if colNames[c.Name] {
			result.Errors = append(result.Errors, &ValidationError{
				Table:   t.Name,
				Column:  c.Name,
				Message: "duplicate column name",
			})
		}
		colNames[c.Name] = true
		if c.Type == "" {
			result.Errors = append(result.Errors, &ValidationError{
				Table:   t.Name,
				Column:  c.Name,
				Message: "column has no type",
			})
		}
		if c.PrimaryKey {
			pk++
		}
		if c.Ref != nil && c.Ref.RefTable == "" {
			result.Errors = append(result.Errors, &ValidationError{
				Table:   t.Name,
				Column:  c.Name,
				Message: "foreign key has no target table",
			})
		}
		if c.Ref != nil && c.Ref.OnDelete == SetNull && !c.Nullable {
			result.Warnings = append(result.Warnings, &ValidationError{
				Table:   t.Name,
				Column:  c.Name,
				Message: "ON DELETE SET NULL on a NOT NULL column will fail at delete time",
			})
		}
	}
	switch {
	case pk == 0:
		result.Warnings = append(result.Warnings, &ValidationError{
			Table:   t.Name,
			Message: "table has no primary key",
		})
	case pk > 1:
		result.Errors = append(result.Errors, &ValidationError{
			Table:   t.Name,
			Message: fmt.Sprintf("table declares %d inline primary keys", pk),
		})
	}

	idxNames := make(map[string]bool)
	for _, c := range t.Columns {
		if c.Index != "" {
			idxNames["idx_"+t.Name+"_"+c.Name] = true
		}
	}
	for _, idx := range t.Indexes {
		name := idx.Name
		if name == "" {
			name = idx.DefaultName(t.Name)
		}
		if idxNames[name] {
			result.Errors = append(result.Errors, &ValidationError{
				Table:   t.Name,
				Message: fmt.Sprintf("duplicate index name: %s", name),
			})
		}
		idxNames[name] = true
		if len(idx.Columns) == 0 {
			result.Errors = append(result.Errors, &ValidationError{
				Table:   t.Name,
				Message: fmt.Sprintf("index %q has no columns", name),
			})
		}
		for _, col := range idx.Columns {
			if !colNames[col] {
				result.Errors = append(result.Errors, &ValidationError{
					Table:   t.Name,
					Message: fmt.Sprintf("index %q references non-existent column %q", name, col),
				})
			}
		}
	}
	return result
}

// ValidateTables validates every table and checks that foreign keys whose
// target is part of the set point at an existing column.
func ValidateTables(tables []*Table) *ValidationResult {
	result := &ValidationResult{}
	byName := make(map[string]*Table, len(tables))
	for _, t := range tables {
		if _, ok := byName[t.QualifiedName()]; ok {
			result.Errors = append(result.Errors, &ValidationError{
				Table:   t.Name,
				Message: "duplicate table name",
			})
		}
		byName[t.QualifiedName()] = t

		tr := ValidateTable(t)
		result.Errors = append(result.Errors, tr.Errors...)
		result.Warnings = append(result.Warnings, tr.Warnings...)
	}
	for _, t := range tables {
		for _, c := range t.Columns {
			if c.Ref == nil {
				continue
			}
			s := c.Ref.RefSchema
			if s == "" {
				s = t.Schema
			}
			ref, ok := byName[s+"."+c.Ref.RefTable]
			if !ok {
				// Tables outside the set are assumed to exist.
				continue
			}
			col := c.Ref.RefColumn
			if col == "" {
				col = "id"
			}
			if _, ok := ref.Column(col); !ok {
				result.Errors = append(result.Errors, &ValidationError{
					Table:   t.Name,
					Column:  c.Name,
					Message: fmt.Sprintf("foreign key references non-existent column %s.%s", ref.Name, col),
				})
			}
		}
	}
	return result
}
