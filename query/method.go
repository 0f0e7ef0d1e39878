/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package query

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/tomoncle/roster/types"
)

// Subject is what a derived query method returns.
type Subject int

const (
	SubjectFind Subject = iota
	SubjectCount
	SubjectExists
)

func (s Subject) String() string {
	switch s {
	case SubjectFind:
		return "find"
	case SubjectCount:
		return "count"
	case SubjectExists:
		return "exists"
	default:
		return types.IllegalName
	}
}

var subjectVerbs = []struct {
	verb    string
	subject Subject
}{
	{"exists", SubjectExists},
	{"count", SubjectCount},
	{"search", SubjectFind},
	{"stream", SubjectFind},
	{"query", SubjectFind},
	{"find", SubjectFind},
	{"read", SubjectFind},
	{"get", SubjectFind},
}

// operator keywords, longest first so that "GreaterThanEqual" wins over "GreaterThan".
var operatorKeywords = []struct {
	keyword string
	op      Operator
}{
	{"GreaterThanEqual", OpGte},
	{"LessThanEqual", OpLte},
	{"GreaterThan", OpGt},
	{"LessThan", OpLt},
	{"Equals", OpEq},
	{"NotIn", OpNotIn},
	{"IsNot", OpNe},
	{"Not", OpNe},
	{"In", OpIn},
	{"Is", OpEq},
}

type methodClause[T any] struct {
	field Field[T]
	op    Operator
}

// MethodTemplate is a query derived from a method name such as
// "findByUsernameAndAgeGreaterThan". It is parsed once and bound to
// arguments on every call.
type MethodTemplate[T any] struct {
	name    string
	table   string
	subject Subject
	limit   int
	clauses []methodClause[T]
	sort    types.Sort
}

// ParseMethod derives a query from name. Supported forms:
//
//	find|read|get|query|search|stream[First<N>|Top<N>][Subject]By<Criteria>[OrderBy<Orders>]
//	count[Subject]By<Criteria>
//	exists[Subject]By<Criteria>
//
// Criteria are property expressions joined by And. Or is rejected.
func ParseMethod[T any](schema *Schema[T], name string) (*MethodTemplate[T], error) {
	unresolvable := func(field, reason string) error {
		return &UnresolvableQueryError{Table: schema.Table(), Field: field, Reason: fmt.Sprintf("method %s: %s", name, reason)}
	}

	t := &MethodTemplate[T]{name: name, table: schema.Table()}
	rest := ""
	matched := false
	for _, sv := range subjectVerbs {
		if strings.HasPrefix(name, sv.verb) {
			t.subject = sv.subject
			rest = name[len(sv.verb):]
			matched = true
			break
		}
	}
	if !matched {
		return nil, unresolvable("", "unknown subject verb")
	}

	var orderPart string
	if i := strings.Index(rest, "OrderBy"); i >= 0 {
		orderPart = rest[i+len("OrderBy"):]
		rest = rest[:i]
		if orderPart == "" {
			return nil, unresolvable("", "OrderBy without properties")
		}
	}

	subjectPart, criteria := rest, ""
	if i := strings.Index(rest, "By"); i >= 0 {
		subjectPart, criteria = rest[:i], rest[i+len("By"):]
		if criteria == "" {
			return nil, unresolvable("", "By without criteria")
		}
	}

	limit, err := parseLimit(subjectPart)
	if err != nil {
		return nil, unresolvable("", err.Error())
	}
	if limit > 0 && t.subject != SubjectFind {
		return nil, unresolvable("", "First/Top only applies to find queries")
	}
	t.limit = limit

	if criteria != "" {
		if len(splitKeyword(criteria, "Or")) > 1 {
			return nil, unresolvable("", "Or is not supported, clauses are only AND-ed")
		}
		for _, part := range splitKeyword(criteria, "And") {
			c, ok := parseClause(schema, part)
			if !ok {
				return nil, unresolvable(part, "no such field")
			}
			t.clauses = append(t.clauses, c)
		}
	}

	if orderPart != "" {
		sort, field, ok := parseOrderBy(schema, orderPart)
		if !ok {
			return nil, unresolvable(field, "no such field in OrderBy")
		}
		t.sort = sort
	}
	return t, nil
}

// parseLimit reads a First<N>/Top<N> marker at the start of the subject part.
func parseLimit(subject string) (int, error) {
	for _, kw := range []string{"First", "Top"} {
		if !strings.HasPrefix(subject, kw) {
			continue
		}
		digits := subject[len(kw):]
		end := strings.IndexFunc(digits, func(r rune) bool { return !unicode.IsDigit(r) })
		if end < 0 {
			end = len(digits)
		}
		if end == 0 {
			return 1, nil
		}
		n, err := strconv.Atoi(digits[:end])
		if err != nil || n < 1 {
			return 0, fmt.Errorf("invalid %s limit %q", kw, digits[:end])
		}
		return n, nil
	}
	return 0, nil
}

// splitKeyword splits s on kw where kw starts a new capitalized word.
func splitKeyword(s, kw string) []string {
	var parts []string
	start := 0
	for i := 1; i+len(kw) < len(s); i++ {
		if s[i:i+len(kw)] == kw && unicode.IsUpper(rune(s[i+len(kw)])) {
			parts = append(parts, s[start:i])
			start = i + len(kw)
			i = start
		}
	}
	return append(parts, s[start:])
}

func parseClause[T any](schema *Schema[T], part string) (methodClause[T], bool) {
	for _, kw := range operatorKeywords {
		prop, found := strings.CutSuffix(part, kw.keyword)
		if !found || prop == "" {
			continue
		}
		if f, found := lookupProperty(schema, prop); found {
			return methodClause[T]{field: f, op: kw.op}, true
		}
	}
	if f, found := lookupProperty(schema, part); found {
		return methodClause[T]{field: f, op: OpEq}, true
	}
	return methodClause[T]{}, false
}

// lookupProperty resolves a property name, allowing a trailing "Is" as in "AgeIsGreaterThan".
func lookupProperty[T any](schema *Schema[T], prop string) (Field[T], bool) {
	if f, ok := schema.Lookup(prop); ok {
		return f, true
	}
	if p, found := strings.CutSuffix(prop, "Is"); found && p != "" {
		return schema.Lookup(p)
	}
	return Field[T]{}, false
}

func parseOrderBy[T any](schema *Schema[T], s string) (types.Sort, string, bool) {
	var sort types.Sort
	start := 0
	for i := 0; i < len(s); i++ {
		for _, d := range []struct {
			kw  string
			dir types.Direction
		}{{"Desc", types.DESC}, {"Asc", types.ASC}} {
			end := i + len(d.kw)
			if i == start || end > len(s) || s[i:end] != d.kw {
				continue
			}
			if end < len(s) && !unicode.IsUpper(rune(s[end])) {
				continue
			}
			prop := s[start:i]
			f, ok := schema.Lookup(prop)
			if !ok {
				return nil, prop, false
			}
			sort = append(sort, types.Order{Field: f.Name(), Direction: d.dir})
			start = end
			i = end - 1
			break
		}
	}
	if start < len(s) {
		prop := s[start:]
		f, ok := schema.Lookup(prop)
		if !ok {
			return nil, prop, false
		}
		sort = append(sort, types.Asc(f.Name()))
	}
	return sort, "", true
}

func (t *MethodTemplate[T]) Name() string { return t.name }

func (t *MethodTemplate[T]) Subject() Subject { return t.subject }

// Arity is the number of arguments Bind expects.
func (t *MethodTemplate[T]) Arity() int { return len(t.clauses) }

// Bind fills the template with arguments, one per clause in declaration
// order. In and NotIn clauses take a slice.
func (t *MethodTemplate[T]) Bind(args ...interface{}) (Spec, error) {
	if len(args) != len(t.clauses) {
		return Spec{}, t.arityError(len(args))
	}
	preds := make([]Predicate, len(t.clauses))
	for i, c := range t.clauses {
		if c.op.isSet() {
			vs, ok := setValues(args[i])
			if !ok {
				return Spec{}, &UnresolvableQueryError{Table: t.table, Field: c.field.Name(), Reason: fmt.Sprintf("method %s: %s needs a slice argument, got %T", t.name, c.op, args[i])}
			}
			preds[i] = Predicate{op: c.op, field: c.field.Name(), values: vs}
			continue
		}
		preds[i] = compare(c.op, c.field.Name(), args[i])
	}
	return t.spec(preds), nil
}

// BindStrings binds textual arguments, parsing each according to its field
// kind. In and NotIn arguments are comma separated lists.
func (t *MethodTemplate[T]) BindStrings(args []string) (Spec, error) {
	if len(args) != len(t.clauses) {
		return Spec{}, t.arityError(len(args))
	}
	preds := make([]Predicate, len(t.clauses))
	for i, c := range t.clauses {
		texts := []string{args[i]}
		if c.op.isSet() {
			texts = strings.Split(args[i], ",")
			if args[i] == "" {
				texts = nil
			}
		}
		vs := make([]Value, 0, len(texts))
		for _, text := range texts {
			v, err := ParseValue(c.field.Kind(), text)
			if err != nil {
				return Spec{}, &UnresolvableQueryError{Table: t.table, Field: c.field.Name(), Reason: err.Error()}
			}
			vs = append(vs, v)
		}
		preds[i] = Predicate{op: c.op, field: c.field.Name(), values: vs}
	}
	return t.spec(preds), nil
}

func (t *MethodTemplate[T]) spec(preds []Predicate) Spec {
	return Where(And(preds...)).OrderBy(t.sort...).Limit(t.limit)
}

func (t *MethodTemplate[T]) arityError(got int) error {
	return &UnresolvableQueryError{Table: t.table, Reason: fmt.Sprintf("method %s expects %d arguments, got %d", t.name, len(t.clauses), got)}
}

func setValues(arg interface{}) ([]Value, bool) {
	switch x := arg.(type) {
	case []Value:
		return append([]Value(nil), x...), true
	case []string:
		return valuesOf(x), true
	case []int:
		return valuesOf(x), true
	case []int64:
		return valuesOf(x), true
	case []int32:
		return valuesOf(x), true
	case []interface{}:
		return valuesOf(x), true
	default:
		return nil, false
	}
}
