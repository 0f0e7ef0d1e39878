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
	"strings"

	"github.com/tomoncle/roster/types"
)

// Operator is the kind of a predicate node.
type Operator int

const (
	OpAnd Operator = iota
	OpEq
	OpNe
	OpGt
	OpGte
	OpLt
	OpLte
	OpIn
	OpNotIn
)

var _ types.BaseEnum = OpEq

var operatorNames = [...]string{"AND", "EQ", "NE", "GT", "GTE", "LT", "LTE", "IN", "NOT_IN"}

var operatorSymbols = [...]string{"AND", "=", "<>", ">", ">=", "<", "<=", "IN", "NOT IN"}

func (o Operator) IsValid() bool { return o >= OpAnd && o <= OpNotIn }

func (o Operator) Number() int {
	if !o.IsValid() {
		return types.IllegalValue
	}
	return int(o)
}

func (o Operator) Name() string {
	if !o.IsValid() {
		return types.IllegalName
	}
	return operatorNames[o]
}

func (o Operator) String() string { return o.Name() }

// Desc returns the SQL spelling of the operator.
func (o Operator) Desc() string {
	if !o.IsValid() {
		return types.IllegalDesc
	}
	return operatorSymbols[o]
}

func (o Operator) isSet() bool { return o == OpIn || o == OpNotIn }

// Predicate is a node of a filter tree: either a comparison of one field
// with one or more values, or a conjunction of child predicates. The zero
// Predicate and And() with no children match every record.
type Predicate struct {
	op       Operator
	field    string
	values   []Value
	children []Predicate
}

func compare(op Operator, field string, v interface{}) Predicate {
	return Predicate{op: op, field: field, values: []Value{ValueOf(v)}}
}

func Eq(field string, v interface{}) Predicate  { return compare(OpEq, field, v) }
func Ne(field string, v interface{}) Predicate  { return compare(OpNe, field, v) }
func Gt(field string, v interface{}) Predicate  { return compare(OpGt, field, v) }
func Gte(field string, v interface{}) Predicate { return compare(OpGte, field, v) }
func Lt(field string, v interface{}) Predicate  { return compare(OpLt, field, v) }
func Lte(field string, v interface{}) Predicate { return compare(OpLte, field, v) }

// In matches records whose field equals any of vs. An empty set matches nothing.
func In[V any](field string, vs []V) Predicate {
	return Predicate{op: OpIn, field: field, values: valuesOf(vs)}
}

// NotIn matches records whose field equals none of vs. An empty set matches everything.
func NotIn[V any](field string, vs []V) Predicate {
	return Predicate{op: OpNotIn, field: field, values: valuesOf(vs)}
}

func valuesOf[V any](vs []V) []Value {
	out := make([]Value, len(vs))
	for i, v := range vs {
		out[i] = ValueOf(v)
	}
	return out
}

// And conjoins predicates. Nested conjunctions are flattened.
func And(ps ...Predicate) Predicate {
	out := Predicate{op: OpAnd}
	for _, p := range ps {
		if p.op == OpAnd {
			out.children = append(out.children, p.children...)
			continue
		}
		out.children = append(out.children, p)
	}
	if len(out.children) == 1 {
		return out.children[0]
	}
	return out
}

// All matches every record.
func All() Predicate { return Predicate{op: OpAnd} }

// And returns p conjoined with others.
func (p Predicate) And(others ...Predicate) Predicate {
	return And(append([]Predicate{p}, others...)...)
}

func (p Predicate) Op() Operator { return p.op }

func (p Predicate) Field() string { return p.field }

func (p Predicate) Values() []Value { return append([]Value(nil), p.values...) }

func (p Predicate) Children() []Predicate { return append([]Predicate(nil), p.children...) }

// MatchesAll reports whether p is an empty conjunction.
func (p Predicate) MatchesAll() bool { return p.op == OpAnd && len(p.children) == 0 }

func (p Predicate) String() string {
	switch {
	case p.op == OpAnd:
		if len(p.children) == 0 {
			return "TRUE"
		}
		parts := make([]string, len(p.children))
		for i, c := range p.children {
			parts[i] = c.String()
		}
		return "(" + strings.Join(parts, " AND ") + ")"
	case p.op.isSet():
		parts := make([]string, len(p.values))
		for i, v := range p.values {
			parts[i] = v.String()
		}
		return fmt.Sprintf("%s %s (%s)", p.field, p.op.Desc(), strings.Join(parts, ", "))
	default:
		return fmt.Sprintf("%s %s %s", p.field, p.op.Desc(), p.values[0])
	}
}

// Matcher tests a record against a compiled predicate.
type Matcher[T any] func(*T) bool

// Compile resolves every field named in p against schema and checks value
// kinds. The returned matcher never fails.
func Compile[T any](schema *Schema[T], p Predicate) (Matcher[T], error) {
	if !p.op.IsValid() {
		return nil, &UnresolvableQueryError{Table: schema.Table(), Reason: fmt.Sprintf("unsupported operator %d", int(p.op))}
	}
	if p.op == OpAnd {
		ms := make([]Matcher[T], 0, len(p.children))
		for _, c := range p.children {
			m, err := Compile(schema, c)
			if err != nil {
				return nil, err
			}
			ms = append(ms, m)
		}
		return func(rec *T) bool {
			for _, m := range ms {
				if !m(rec) {
					return false
				}
			}
			return true
		}, nil
	}

	f, err := resolveOperands(schema, p)
	if err != nil {
		return nil, err
	}
	values := p.values
	switch p.op {
	case OpIn, OpNotIn:
		want := p.op == OpIn
		return func(rec *T) bool {
			got := f.Get(rec)
			for _, v := range values {
				if got.Equal(v) {
					return want
				}
			}
			return !want
		}, nil
	default:
		op, v := p.op, values[0]
		return func(rec *T) bool {
			c := f.Get(rec).Compare(v)
			switch op {
			case OpEq:
				return c == 0
			case OpNe:
				return c != 0
			case OpGt:
				return c > 0
			case OpGte:
				return c >= 0
			case OpLt:
				return c < 0
			default:
				return c <= 0
			}
		}, nil
	}
}

// resolveOperands checks that a leaf names a known field and that its values
// are of the field's kind.
func resolveOperands[T any](schema *Schema[T], p Predicate) (Field[T], error) {
	f, err := schema.Field(p.field)
	if err != nil {
		return Field[T]{}, err
	}
	if !p.op.isSet() && len(p.values) != 1 {
		return Field[T]{}, &UnresolvableQueryError{Table: schema.Table(), Field: p.field, Reason: "comparison needs exactly one value"}
	}
	for _, v := range p.values {
		if v.Kind() != f.Kind() {
			return Field[T]{}, &UnresolvableQueryError{
				Table:  schema.Table(),
				Field:  p.field,
				Reason: fmt.Sprintf("%s field compared with %s", f.Kind(), describeKind(v)),
			}
		}
	}
	return f, nil
}

func describeKind(v Value) string {
	if v.Kind() == KindInvalid {
		return fmt.Sprintf("%T value", v.Any())
	}
	return v.Kind().String() + " value"
}
