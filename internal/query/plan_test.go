package query

import (
	"net/url"
	"reflect"
	"testing"
)

func tourSchema() *Schema {
	return NewSchema("tours", "id", "createdAt",
		FieldDef{Name: "name", Column: "name"},
		FieldDef{Name: "duration", Column: "duration"},
		FieldDef{Name: "difficulty", Column: "difficulty"},
		FieldDef{Name: "price", Column: "price"},
		FieldDef{Name: "ratingsAverage", Column: "ratings_average"},
		FieldDef{Name: "createdAt", Column: "created_at"},
	)
}

func mustParse(t *testing.T, raw string) Plan {
	t.Helper()

	values, err := url.ParseQuery(raw)
	if err != nil {
		t.Fatalf("parse query string: %v", err)
	}

	p, err := Parse(values, tourSchema())
	if err != nil {
		t.Fatalf("Parse(%q): %v", raw, err)
	}
	return p
}

func TestParseReservedKeysOnlyYieldEmptyFilter(t *testing.T) {
	p := mustParse(t, "page=2&sort=price&limit=10&fields=name")

	if len(p.Filters) != 0 {
		t.Fatalf("expected empty filter, got %v", p.Filters)
	}
}

func TestParseBracketedComparisons(t *testing.T) {
	p := mustParse(t, "price[gte]=100&price[lte]=500")

	want := []Condition{
		{Field: "price", Op: OpGTE, Value: "100"},
		{Field: "price", Op: OpLTE, Value: "500"},
	}

	if !reflect.DeepEqual(p.Filters, want) {
		t.Fatalf("filters = %v, want %v", p.Filters, want)
	}
}

func TestParseBareKeyIsEquality(t *testing.T) {
	p := mustParse(t, "difficulty=easy")

	want := []Condition{{Field: "difficulty", Op: OpEq, Value: "easy"}}

	if !reflect.DeepEqual(p.Filters, want) {
		t.Fatalf("filters = %v, want %v", p.Filters, want)
	}
}

func TestParseSort(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []SortKey
	}{
		{
			name: "mixed directions",
			raw:  "sort=-createdAt,name",
			want: []SortKey{{Field: "createdAt", Desc: true}, {Field: "name"}},
		},
		{
			name: "default is newest first",
			raw:  "",
			want: []SortKey{{Field: "createdAt", Desc: true}},
		},
		{
			name: "ascending single field",
			raw:  "sort=price",
			want: []SortKey{{Field: "price"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := mustParse(t, tc.raw)

			if !reflect.DeepEqual(p.Sort, tc.want) {
				t.Fatalf("sort = %v, want %v", p.Sort, tc.want)
			}
		})
	}
}

func TestParseFieldsOrderIndependent(t *testing.T) {
	a := mustParse(t, "fields=name,price")
	b := mustParse(t, "fields=price,name")

	if !reflect.DeepEqual(a.Fields, b.Fields) {
		t.Fatalf("projection depends on request order: %v vs %v", a.Fields, b.Fields)
	}

	want := []string{"name", "price"}
	if !reflect.DeepEqual(a.Fields, want) {
		t.Fatalf("fields = %v, want %v", a.Fields, want)
	}
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantPage  int
		wantLimit int
		wantSkip  int
	}{
		{name: "explicit", raw: "page=2&limit=10", wantPage: 2, wantLimit: 10, wantSkip: 10},
		{name: "defaults", raw: "", wantPage: 1, wantLimit: 100, wantSkip: 0},
		{name: "non numeric falls back", raw: "page=abc&limit=xyz", wantPage: 1, wantLimit: 100, wantSkip: 0},
		{name: "zero falls back", raw: "page=0&limit=0", wantPage: 1, wantLimit: 100, wantSkip: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := mustParse(t, tc.raw)

			if p.Page != tc.wantPage || p.Limit != tc.wantLimit {
				t.Fatalf("page/limit = %d/%d, want %d/%d", p.Page, p.Limit, tc.wantPage, tc.wantLimit)
			}
			if p.Skip() != tc.wantSkip {
				t.Fatalf("skip = %d, want %d", p.Skip(), tc.wantSkip)
			}
		})
	}
}

func TestParseIsIdempotent(t *testing.T) {
	raw := "price[gte]=100&price[lte]=500&sort=-createdAt,name&fields=name,price&page=3&limit=7"

	first := mustParse(t, raw)
	second := mustParse(t, raw)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("plans differ across parses:\n%v\n%v", first, second)
	}
}

func TestParseRejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "unknown operator word", raw: "price[near]=100"},
		{name: "unknown filter field", raw: "secret=1"},
		{name: "unknown sort field", raw: "sort=secret"},
		{name: "unknown projection field", raw: "fields=secret"},
		{name: "malformed bracket", raw: "price[gte=100"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			values, err := url.ParseQuery(tc.raw)
			if err != nil {
				t.Fatalf("parse query string: %v", err)
			}

			if _, err := Parse(values, tourSchema()); err == nil {
				t.Fatalf("expected error for %q", tc.raw)
			}
		})
	}
}
