package store

import (
	"reflect"
	"strings"
	"time"
)

// Op is a comparison operator inside a condition.
type Op string

const (
	OpEq       Op = "eq"
	OpNe       Op = "ne"
	OpIn       Op = "in"
	OpLt       Op = "lt"
	OpLte      Op = "lte"
	OpGt       Op = "gt"
	OpGte      Op = "gte"
	OpContains Op = "contains"
)

// Cond compares one document field against a value.
type Cond struct {
	Field string
	Op    Op
	Value any
}

// Where is a composable predicate tree. A record matches when every Cond and
// every And subclause matches, and, if Or subclauses are present, at least one
// of them matches. The zero Where matches everything.
//
// Interceptors compose predicates by nesting the caller's tree as an untouched
// subtree, so the caller's constraints are preserved exactly.
type Where struct {
	Conds []Cond
	And   []Where
	Or    []Where
}

// IsEmpty reports whether the predicate constrains nothing.
func (w Where) IsEmpty() bool {
	return len(w.Conds) == 0 && len(w.And) == 0 && len(w.Or) == 0
}

// Eq builds a field = value predicate.
func Eq(field string, value any) Where {
	return Where{Conds: []Cond{{Field: field, Op: OpEq, Value: value}}}
}

// Ne builds a field != value predicate.
func Ne(field string, value any) Where {
	return Where{Conds: []Cond{{Field: field, Op: OpNe, Value: value}}}
}

// In builds a field-in-set predicate. Values must be a slice.
func In(field string, values any) Where {
	return Where{Conds: []Cond{{Field: field, Op: OpIn, Value: values}}}
}

// Lt builds a field < value predicate.
func Lt(field string, value any) Where {
	return Where{Conds: []Cond{{Field: field, Op: OpLt, Value: value}}}
}

// Lte builds a field <= value predicate.
func Lte(field string, value any) Where {
	return Where{Conds: []Cond{{Field: field, Op: OpLte, Value: value}}}
}

// Gt builds a field > value predicate.
func Gt(field string, value any) Where {
	return Where{Conds: []Cond{{Field: field, Op: OpGt, Value: value}}}
}

// Gte builds a field >= value predicate.
func Gte(field string, value any) Where {
	return Where{Conds: []Cond{{Field: field, Op: OpGte, Value: value}}}
}

// Contains builds a substring predicate over a string field.
func Contains(field string, sub string) Where {
	return Where{Conds: []Cond{{Field: field, Op: OpContains, Value: sub}}}
}

// All combines clauses with logical AND. Empty clauses are dropped.
func All(clauses ...Where) Where {
	kept := make([]Where, 0, len(clauses))
	for _, c := range clauses {
		if !c.IsEmpty() {
			kept = append(kept, c)
		}
	}
	switch len(kept) {
	case 0:
		return Where{}
	case 1:
		return kept[0]
	}
	return Where{And: kept}
}

// Any combines clauses with logical OR. Empty clauses are dropped.
func Any(clauses ...Where) Where {
	kept := make([]Where, 0, len(clauses))
	for _, c := range clauses {
		if !c.IsEmpty() {
			kept = append(kept, c)
		}
	}
	switch len(kept) {
	case 0:
		return Where{}
	case 1:
		return kept[0]
	}
	return Where{Or: kept}
}

// Match evaluates the predicate against a record. Used by the in-memory store;
// the postgres store compiles the same tree to SQL.
func (w Where) Match(rec Record) bool {
	for _, c := range w.Conds {
		if !c.match(rec) {
			return false
		}
	}
	for _, sub := range w.And {
		if !sub.Match(rec) {
			return false
		}
	}
	if len(w.Or) > 0 {
		matched := false
		for _, sub := range w.Or {
			if sub.Match(rec) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func (c Cond) match(rec Record) bool {
	got, present := rec[c.Field]
	switch c.Op {
	case OpEq:
		if c.Value == nil {
			return !present || got == nil
		}
		return present && equalValues(got, c.Value)
	case OpNe:
		if c.Value == nil {
			return present && got != nil
		}
		return !present || !equalValues(got, c.Value)
	case OpIn:
		if !present {
			return false
		}
		vs := reflect.ValueOf(c.Value)
		if vs.Kind() != reflect.Slice && vs.Kind() != reflect.Array {
			return false
		}
		for i := 0; i < vs.Len(); i++ {
			if equalValues(got, vs.Index(i).Interface()) {
				return true
			}
		}
		return false
	case OpContains:
		s, ok := got.(string)
		sub, ok2 := c.Value.(string)
		return ok && ok2 && strings.Contains(s, sub)
	case OpLt, OpLte, OpGt, OpGte:
		if !present {
			return false
		}
		cmp, ok := compareValues(got, c.Value)
		if !ok {
			return false
		}
		switch c.Op {
		case OpLt:
			return cmp < 0
		case OpLte:
			return cmp <= 0
		case OpGt:
			return cmp > 0
		default:
			return cmp >= 0
		}
	}
	return false
}

// equalValues compares loosely enough to survive JSON round-trips: numbers
// compare numerically regardless of concrete type.
func equalValues(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders numbers, strings, and times. Returns ok=false for
// unorderable pairs.
func compareValues(a, b any) (int, bool) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		default:
			return 0, true
		}
	}
	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(sa, sb), true
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return ta.Compare(tb), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
