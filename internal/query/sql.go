package query

import (
	"fmt"
	"strings"
)

// TotalColumn is the window-count column appended to every shaped select so
// list handlers can report the unpaginated match count in one round trip.
const TotalColumn = "__total"

var sqlOps = map[Op]string{
	OpEq:  "=",
	OpGTE: ">=",
	OpGT:  ">",
	OpLTE: "<=",
	OpLT:  "<",
}

// BuildSelect renders a plan against a schema into a single SQL statement
// with positional args. The stages are applied in a fixed order: filter,
// sort, project, paginate. Columns are aliased back to their API field names
// so callers can shape result documents without a second mapping.
func BuildSelect(s *Schema, p Plan) (string, []any) {
	var b strings.Builder

	b.WriteString("SELECT ")
	b.WriteString(strings.Join(selectColumns(s, p), ", "))
	b.WriteString(", COUNT(*) OVER() AS \"" + TotalColumn + "\"")
	b.WriteString(" FROM ")
	b.WriteString(s.Table)

	var args []any

	if len(p.Filters) > 0 {
		conds := make([]string, 0, len(p.Filters))

		for _, c := range p.Filters {
			args = append(args, c.Value)
			conds = append(conds, fmt.Sprintf("%s %s $%d", s.Column(c.Field), sqlOps[c.Op], len(args)))
		}

		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}

	b.WriteString(" ORDER BY ")
	b.WriteString(strings.Join(orderColumns(s, p), ", "))

	args = append(args, p.Limit)
	b.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))

	args = append(args, p.Skip())
	b.WriteString(fmt.Sprintf(" OFFSET $%d", len(args)))

	return b.String(), args
}

// selectColumns resolves the projection. The identity column is always
// retained; an empty field set means every declared field.
func selectColumns(s *Schema, p Plan) []string {
	cols := []string{s.IDColumn + ` AS "id"`}

	if len(p.Fields) == 0 {
		for _, f := range s.Fields() {
			if f.Column == s.IDColumn {
				continue
			}
			cols = append(cols, fmt.Sprintf(`%s AS "%s"`, f.Column, f.Name))
		}
		return cols
	}

	for _, name := range p.Fields {
		col := s.Column(name)
		if col == s.IDColumn {
			continue
		}
		cols = append(cols, fmt.Sprintf(`%s AS "%s"`, col, name))
	}

	return cols
}

// orderColumns renders the sort keys with the identity column as a
// tiebreaker so pagination is stable across requests.
func orderColumns(s *Schema, p Plan) []string {
	cols := make([]string, 0, len(p.Sort)+1)

	for _, k := range p.Sort {
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		cols = append(cols, s.Column(k.Field)+" "+dir)
	}

	cols = append(cols, s.IDColumn+" ASC")
	return cols
}
