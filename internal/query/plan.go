package query

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/Emmanuel246/natours/internal/apperr"
)

// Op is a comparison understood by the storage layer.
type Op string

const (
	OpEq  Op = "eq"
	OpGTE Op = "gte"
	OpGT  Op = "gt"
	OpLTE Op = "lte"
	OpLT  Op = "lt"
)

// Plan defaults.
const (
	DefaultPage  = 1
	DefaultLimit = 100
)

// Reserved control keys. Anything else in the query string is treated as a
// filter on a schema field.
var reservedKeys = map[string]struct{}{
	"page":   {},
	"sort":   {},
	"limit":  {},
	"fields": {},
}

var opRank = map[Op]int{OpEq: 0, OpGTE: 1, OpGT: 2, OpLTE: 3, OpLT: 4}

type Condition struct {
	Field string
	Op    Op
	Value string
}

type SortKey struct {
	Field string
	Desc  bool
}

// Plan is the resolved filter/sort/projection/pagination set for one list
// request. It is a pure value: parsing the same raw parameters always yields
// an identical plan.
type Plan struct {
	Filters []Condition
	Sort    []SortKey
	Fields  []string
	Page    int
	Limit   int
}

// Skip is the row offset implied by the page number.
func (p Plan) Skip() int {
	return p.Limit * (p.Page - 1)
}

// Parse translates raw query parameters into a Plan, validated against the
// resource schema. Reserved keys drive sort/projection/pagination; every
// remaining key becomes a filter condition. Bracketed keys like price[gte]
// carry a comparison operator; bare keys mean equality. Unknown fields and
// unknown operator words are rejected outright rather than passed through to
// the storage layer.
func Parse(values url.Values, s *Schema) (Plan, error) {
	p := Plan{
		Page:  parsePositiveInt(values.Get("page"), DefaultPage),
		Limit: parsePositiveInt(values.Get("limit"), DefaultLimit),
	}

	var err error

	p.Sort, err = parseSort(values.Get("sort"), s)
	if err != nil {
		return Plan{}, err
	}

	p.Fields, err = parseFields(values.Get("fields"), s)
	if err != nil {
		return Plan{}, err
	}

	p.Filters, err = parseFilters(values, s)
	if err != nil {
		return Plan{}, err
	}

	return p, nil
}

// Missing or non-numeric values fall back to the default. An out-of-range
// page is not an error; it legitimately produces an empty result set.
func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func parseSort(raw string, s *Schema) ([]SortKey, error) {
	if raw == "" {
		// newest first
		return []SortKey{{Field: s.DefaultSort, Desc: true}}, nil
	}

	var keys []SortKey

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		desc := strings.HasPrefix(part, "-")
		field := strings.TrimPrefix(part, "-")

		if !s.Has(field) {
			return nil, apperr.Validation("unknown_sort_field", "Cannot sort by field "+field)
		}

		keys = append(keys, SortKey{Field: field, Desc: desc})
	}

	if len(keys) == 0 {
		return []SortKey{{Field: s.DefaultSort, Desc: true}}, nil
	}
	return keys, nil
}

func parseFields(raw string, s *Schema) ([]string, error) {
	if raw == "" {
		// no restriction
		return nil, nil
	}

	seen := make(map[string]struct{})
	var fields []string

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if !s.Has(part) {
			return nil, apperr.Validation("unknown_field", "Unknown field "+part)
		}

		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		fields = append(fields, part)
	}

	// Deterministic projection set regardless of the order the caller
	// requested the fields in.
	sort.Strings(fields)
	return fields, nil
}

func parseFilters(values url.Values, s *Schema) ([]Condition, error) {
	var conds []Condition

	for key, vals := range values {
		if _, ok := reservedKeys[key]; ok {
			continue
		}

		field, op, err := splitFilterKey(key)
		if err != nil {
			return nil, err
		}

		if !s.Has(field) {
			return nil, apperr.Validation("unknown_field", "Cannot filter on field "+field)
		}

		for _, v := range vals {
			conds = append(conds, Condition{Field: field, Op: op, Value: v})
		}
	}

	// url.Values is a map, so impose a stable order: by field, then by a
	// fixed operator rank.
	sort.SliceStable(conds, func(i, j int) bool {
		if conds[i].Field != conds[j].Field {
			return conds[i].Field < conds[j].Field
		}
		return opRank[conds[i].Op] < opRank[conds[j].Op]
	})

	return conds, nil
}

// splitFilterKey decomposes "price[gte]" into (price, gte). A bare key is an
// equality condition. Operator words outside the enumerated set are rejected.
func splitFilterKey(key string) (string, Op, error) {
	open := strings.Index(key, "[")
	if open == -1 {
		return key, OpEq, nil
	}

	if !strings.HasSuffix(key, "]") {
		return "", "", apperr.Validation("malformed_filter", "Malformed filter key "+key)
	}

	field := key[:open]
	word := key[open+1 : len(key)-1]

	switch Op(word) {
	case OpGTE, OpGT, OpLTE, OpLT:
		return field, Op(word), nil
	default:
		return "", "", apperr.Validation("unknown_operator", "Unknown filter operator "+word)
	}
}
