package api

import (
	"encoding/json"
	"net/url"
	"strconv"
)

// Filter is a Directus filter object, e.g. {"member": {"_eq": 3}}.
// Nested objects address fields of related items.
type Filter map[string]any

// Query is the Directus query object used by SEARCH requests.
type Query struct {
	Filter Filter   `json:"filter,omitempty"`
	Fields []string `json:"fields,omitempty"`
	Limit  int      `json:"limit,omitempty"`
}

// SearchBody is the request body of a SEARCH request.
type SearchBody struct {
	Query Query `json:"query"`
}

// Eq matches values equal to v.
func Eq(v any) map[string]any { return map[string]any{"_eq": v} }

// In matches values contained in vs.
func In[T any](vs []T) map[string]any { return map[string]any{"_in": vs} }

// Gte matches values greater than or equal to v.
func Gte(v any) map[string]any { return map[string]any{"_gte": v} }

// Contains matches strings containing s.
func Contains(s string) map[string]any { return map[string]any{"_contains": s} }

// Null matches fields that are not set.
func Null() map[string]any { return map[string]any{"_null": true} }

// NoLimit disables the default page size of 100 items.
const NoLimit = -1

// Values encodes q as query parameters for a plain GET.
func (q Query) Values() (url.Values, error) {
	v := url.Values{}
	if len(q.Filter) > 0 {
		buf, err := json.Marshal(q.Filter)
		if err != nil {
			return nil, err
		}
		v.Set("filter", string(buf))
	}
	for _, f := range q.Fields {
		v.Add("fields[]", f)
	}
	if q.Limit != 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v, nil
}
