package repositories

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Filter is one WHERE condition. Values are always bound as parameters;
// list filters use "= ANY($n)" with a Postgres array.
type Filter struct {
	Column string
	Op     string
	Value  interface{}
	anyOf  []Filter
}

func Eq(column string, value interface{}) Filter {
	return Filter{Column: column, Op: "=", Value: value}
}

func In(column string, values []string) Filter {
	return Filter{Column: column, Op: "in", Value: pq.Array(values)}
}

// AnyOf joins filters with OR inside parentheses.
func AnyOf(filters ...Filter) Filter {
	return Filter{anyOf: filters}
}

type Order struct {
	Column string
	Desc   bool
}

// selectQuery renders select(table, columns, filters, ordering) into
// parameterized SQL. Joined projections go in from and columns.
type selectQuery struct {
	from    string
	columns []string
	filters []Filter
	orders  []Order
}

func newSelect(from string, columns ...string) selectQuery {
	return selectQuery{from: from, columns: columns}
}

func (q selectQuery) Where(filters ...Filter) selectQuery {
	q.filters = append(q.filters, filters...)
	return q
}

func (q selectQuery) OrderBy(column string, desc bool) selectQuery {
	q.orders = append(q.orders, Order{Column: column, Desc: desc})
	return q
}

func (q selectQuery) SQL() (string, []interface{}) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(q.columns, ", "))
	b.WriteString(" FROM ")
	b.WriteString(q.from)

	args := []interface{}{}
	if len(q.filters) > 0 {
		conds := make([]string, 0, len(q.filters))
		for _, f := range q.filters {
			conds = append(conds, renderFilter(f, &args))
		}
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}

	if len(q.orders) > 0 {
		parts := make([]string, 0, len(q.orders))
		for _, o := range q.orders {
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			parts = append(parts, o.Column+" "+dir)
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(parts, ", "))
	}
	return b.String(), args
}

func renderFilter(f Filter, args *[]interface{}) string {
	if len(f.anyOf) > 0 {
		parts := make([]string, 0, len(f.anyOf))
		for _, sub := range f.anyOf {
			parts = append(parts, renderFilter(sub, args))
		}
		return "(" + strings.Join(parts, " OR ") + ")"
	}
	*args = append(*args, f.Value)
	if f.Op == "in" {
		return fmt.Sprintf("%s = ANY($%d)", f.Column, len(*args))
	}
	return fmt.Sprintf("%s %s $%d", f.Column, f.Op, len(*args))
}
