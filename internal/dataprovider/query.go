package dataprovider

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	DefaultPage    = 1
	DefaultPerPage = 25
	DefaultSort    = "id"

	OrderASC  = "ASC"
	OrderDESC = "DESC"
)

// Pagination is 1-based.
type Pagination struct {
	Page    int `json:"page" query:"page"`
	PerPage int `json:"perPage" query:"per_page"`
}

type Sort struct {
	Field string `json:"field" query:"sort"`
	Order string `json:"order" query:"order"`
}

// Filter maps query keys to values. The key "q" is a full-text search.
type Filter map[string]any

type ListParams struct {
	Pagination Pagination
	Sort       Sort
	Filter     Filter
}

// ReferenceParams selects the records of a resource that point at one record
// of another resource through Target.
type ReferenceParams struct {
	Target     string
	ID         string
	Pagination Pagination
	Sort       Sort
	Filter     Filter
}

// Query keeps parameters in insertion order. The backend does not care, but
// logs and tests read better with a stable layout.
type Query struct {
	pairs [][2]string
}

func (q *Query) Add(key, value string) {
	q.pairs = append(q.pairs, [2]string{key, value})
}

// Get returns the first value of key.
func (q Query) Get(key string) (string, bool) {
	for _, p := range q.pairs {
		if p[0] == key {
			return p[1], true
		}
	}
	return "", false
}

func (q Query) Len() int { return len(q.pairs) }

func (q Query) Encode() string {
	var b strings.Builder
	for i, p := range q.pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p[0]))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p[1]))
	}
	return b.String()
}

// Ordering renders a sort as the backend ordering parameter.
func Ordering(s Sort) string {
	field := s.Field
	if field == "" {
		field = DefaultSort
	}
	if strings.EqualFold(s.Order, OrderDESC) {
		return "-" + field
	}
	return field
}

func (p Pagination) orDefault() Pagination {
	if p.Page <= 0 {
		p.Page = DefaultPage
	}
	if p.PerPage <= 0 {
		p.PerPage = DefaultPerPage
	}
	return p
}

// ListQuery builds page, page_size, the filters and ordering, in that order.
func ListQuery(params ListParams) Query {
	var q Query
	pg := params.Pagination.orDefault()
	q.Add("page", strconv.Itoa(pg.Page))
	q.Add("page_size", strconv.Itoa(pg.PerPage))
	addFilters(&q, params.Filter)
	q.Add("ordering", Ordering(params.Sort))
	return q
}

// ReferenceQuery builds target, page and page_size, then any filters and an
// explicit ordering.
func ReferenceQuery(params ReferenceParams) Query {
	var q Query
	q.Add(params.Target, params.ID)
	pg := params.Pagination.orDefault()
	q.Add("page", strconv.Itoa(pg.Page))
	q.Add("page_size", strconv.Itoa(pg.PerPage))
	addFilters(&q, params.Filter)
	if params.Sort.Field != "" {
		q.Add("ordering", Ordering(params.Sort))
	}
	return q
}

// addFilters appends filters sorted by key. Empty values are dropped and q
// becomes search.
func addFilters(q *Query, f Filter) {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v, ok := FormatValue(f[k])
		if !ok {
			continue
		}
		if k == "q" {
			k = "search"
		}
		q.Add(k, v)
	}
}

// FormatValue renders a filter value. It reports false for values that must
// not be sent: nil, empty strings and empty lists.
func FormatValue(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, val != ""
	case bool:
		return strconv.FormatBool(val), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case fmt.Stringer:
		s := val.String()
		return s, s != ""
	case []string:
		return joinValues(toAny(val))
	case []any:
		return joinValues(val)
	case []int:
		out := make([]any, len(val))
		for i, n := range val {
			out[i] = n
		}
		return joinValues(out)
	}
	s := fmt.Sprint(v)
	return s, s != ""
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func joinValues(vs []any) (string, bool) {
	parts := make([]string, 0, len(vs))
	for _, v := range vs {
		if s, ok := FormatValue(v); ok {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, ","), true
}
