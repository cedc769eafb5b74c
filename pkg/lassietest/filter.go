package lassietest

import (
	"cmp"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
)

// match evaluates a Directus filter against row. Callers hold s.mu.
func (s *DirectusServer) match(collection string, row map[string]any, filter map[string]any) (bool, error) {
	for field, cond := range filter {
		switch field {
		case "_and", "_or":
			ok, err := s.matchGroup(collection, row, field, cond)
			if err != nil || !ok {
				return false, err
			}
			continue
		}

		ops, ok := cond.(map[string]any)
		if !ok {
			return false, fmt.Errorf("invalid filter for field %q", field)
		}

		if isOperatorSet(ops) {
			for op, arg := range ops {
				ok, err := compare(op, row[field], arg)
				if err != nil || !ok {
					return false, err
				}
			}
			continue
		}

		// Anything else addresses a field of the related item.
		target, ok := directusRelations[collection][field]
		if !ok {
			return false, fmt.Errorf("field %q of %s is not a relation", field, collection)
		}
		related := s.find(target, toInt(row[field]))
		if related == nil {
			return false, nil
		}
		ok, err := s.match(target, related, ops)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (s *DirectusServer) matchGroup(collection string, row map[string]any, op string, cond any) (bool, error) {
	list, ok := cond.([]any)
	if !ok {
		return false, fmt.Errorf("%s takes a list of filters", op)
	}
	for _, item := range list {
		sub, ok := item.(map[string]any)
		if !ok {
			return false, fmt.Errorf("%s takes a list of filters", op)
		}
		matched, err := s.match(collection, row, sub)
		if err != nil {
			return false, err
		}
		if op == "_or" && matched {
			return true, nil
		}
		if op == "_and" && !matched {
			return false, nil
		}
	}
	return op == "_and", nil
}

func isOperatorSet(m map[string]any) bool {
	for k := range m {
		if !strings.HasPrefix(k, "_") {
			return false
		}
	}
	return len(m) > 0
}

func compare(op string, value, arg any) (bool, error) {
	switch op {
	case "_eq":
		return equal(value, arg), nil
	case "_neq":
		return !equal(value, arg), nil
	case "_in", "_nin":
		list, ok := arg.([]any)
		if !ok {
			return false, fmt.Errorf("%s takes a list", op)
		}
		found := slices.ContainsFunc(list, func(a any) bool { return equal(value, a) })
		return found == (op == "_in"), nil
	case "_gt", "_gte", "_lt", "_lte":
		c, ok := order(value, arg)
		if !ok {
			return false, nil
		}
		switch op {
		case "_gt":
			return c > 0, nil
		case "_gte":
			return c >= 0, nil
		case "_lt":
			return c < 0, nil
		default:
			return c <= 0, nil
		}
	case "_contains":
		str, ok := value.(string)
		sub, _ := arg.(string)
		return ok && strings.Contains(str, sub), nil
	case "_null":
		want, _ := arg.(bool)
		return (value == nil) == want, nil
	default:
		return false, fmt.Errorf("unsupported filter operator %q", op)
	}
}

func equal(a, b any) bool {
	x, xok := a.(float64)
	y, yok := b.(float64)
	if xok && yok {
		return x == y
	}
	return reflect.DeepEqual(a, b)
}

// order compares numbers numerically and strings lexically, which is also
// date order for YYYY-MM-DD values. Other combinations do not compare.
func order(a, b any) (int, bool) {
	switch x := a.(type) {
	case float64:
		if y, ok := b.(float64); ok {
			return cmp.Compare(x, y), true
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), true
		}
	}
	return 0, false
}

// project applies a fields list. "*" copies every field; "rel.*" replaces
// the foreign key rel by the related item. Callers hold s.mu.
func (s *DirectusServer) project(collection string, row map[string]any, fields []string) map[string]any {
	if len(fields) == 0 {
		return maps.Clone(row)
	}

	out := make(map[string]any, len(fields))
	var expand []string
	for _, f := range fields {
		switch {
		case f == "*":
			maps.Copy(out, row)
		case strings.HasSuffix(f, ".*"):
			expand = append(expand, strings.TrimSuffix(f, ".*"))
		default:
			out[f] = row[f]
		}
	}
	for _, rel := range expand {
		target, ok := directusRelations[collection][rel]
		if !ok {
			out[rel] = row[rel]
			continue
		}
		if related := s.find(target, toInt(row[rel])); related != nil {
			out[rel] = maps.Clone(related)
		} else {
			out[rel] = nil
		}
	}
	return out
}

func toInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}
