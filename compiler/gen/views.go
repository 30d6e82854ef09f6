package gen

// Field categorization views. Every view is recomputed from the immutable
// field slice on each call.

// CreateFields returns the fields of the create request.
func (t *Type) CreateFields() []*Field {
	return t.fieldsBy(func(f *Field) bool {
		return f.InCreate && !f.Skip && !f.ID && !f.Auto
	})
}

// UpdateFields returns the fields of the update request.
func (t *Type) UpdateFields() []*Field {
	return t.fieldsBy(func(f *Field) bool {
		return f.InUpdate && !f.Skip && !f.ID && !f.Auto
	})
}

// ResponseFields returns the fields of the response. The identifier is
// always included unless it is skipped.
func (t *Type) ResponseFields() []*Field {
	return t.fieldsBy(func(f *Field) bool {
		return !f.Skip && (f.InResponse || f.ID)
	})
}

// FilterFields returns the fields taking part in the query filter.
func (t *Type) FilterFields() []*Field {
	return t.fieldsBy(func(f *Field) bool {
		return f.Filter != FilterNone
	})
}

// RelationFields returns the belongs_to fields.
func (t *Type) RelationFields() []*Field {
	return t.fieldsBy(func(f *Field) bool {
		return f.BelongsTo != nil
	})
}

// AutoFields returns the fields assigned by the database.
func (t *Type) AutoFields() []*Field {
	return t.fieldsBy(func(f *Field) bool {
		return f.Auto
	})
}

// InsertFields returns the columns written by an INSERT: the client-side id
// followed by the create fields.
func (t *Type) InsertFields() []*Field {
	var fs []*Field
	if t.ClientID() {
		fs = append(fs, t.ID())
	}
	return append(fs, t.CreateFields()...)
}

// HasFilter reports whether the entity has a query filter.
func (t *Type) HasFilter() bool {
	return len(t.FilterFields()) > 0
}

// HasUpdate reports whether the update request has any field.
func (t *Type) HasUpdate() bool {
	return len(t.UpdateFields()) > 0
}

func (t *Type) fieldsBy(fn func(*Field) bool) []*Field {
	var fs []*Field
	for _, f := range t.Fields {
		if fn(f) {
			fs = append(fs, f)
		}
	}
	return fs
}
