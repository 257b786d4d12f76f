package query

// FieldDef maps an API field name to its SQL column.
type FieldDef struct {
	Name   string
	Column string
}

// Schema is the typed boundary for one listable resource: the table it lives
// in, the identity column, and the closed set of fields callers may filter,
// sort, or project on.
type Schema struct {
	Table       string
	IDColumn    string
	DefaultSort string

	fields []FieldDef
	byName map[string]string
}

func NewSchema(table, idColumn, defaultSort string, fields ...FieldDef) *Schema {
	s := &Schema{
		Table:       table,
		IDColumn:    idColumn,
		DefaultSort: defaultSort,
		fields:      fields,
		byName:      make(map[string]string, len(fields)),
	}

	for _, f := range fields {
		s.byName[f.Name] = f.Column
	}

	return s
}

func (s *Schema) Has(field string) bool {
	_, ok := s.byName[field]
	return ok
}

func (s *Schema) Column(field string) string {
	return s.byName[field]
}

// Fields returns the declared fields in declaration order, which fixes the
// column order of an unrestricted projection.
func (s *Schema) Fields() []FieldDef {
	return s.fields
}
