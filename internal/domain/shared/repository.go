package shared

import (
	"reflect"
)

// Filter represents list query options. Filters holds equality predicates;
// a slice value is treated as a membership predicate (column IN (...)).
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Filters  map[string]interface{}
}

// DefaultFilter returns an unpaginated filter ordered by creation time
func DefaultFilter() Filter {
	return Filter{
		OrderBy:  "created_at",
		OrderDir: "asc",
		Filters:  make(map[string]interface{}),
	}
}

// Where adds an equality predicate and returns the filter for chaining
func (f Filter) Where(field string, value interface{}) Filter {
	f.Filters = f.copyFilters()
	f.Filters[field] = value
	return f
}

// WhereIn adds a membership predicate and returns the filter for chaining
func (f Filter) WhereIn(field string, values interface{}) Filter {
	return f.Where(field, values)
}

// OrderedBy sets the ordering and returns the filter for chaining
func (f Filter) OrderedBy(field, dir string) Filter {
	f.OrderBy = field
	f.OrderDir = dir
	return f
}

// HasEmptyMembership reports whether any membership predicate has no values.
// Such a filter can never match and callers may skip the round trip.
func (f Filter) HasEmptyMembership() bool {
	for _, v := range f.Filters {
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Slice && rv.Len() == 0 {
			return true
		}
	}
	return false
}

func (f Filter) copyFilters() map[string]interface{} {
	out := make(map[string]interface{}, len(f.Filters)+1)
	for k, v := range f.Filters {
		out[k] = v
	}
	return out
}
