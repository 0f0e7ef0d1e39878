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
)

// MutationKind is the kind of a bulk update expression.
type MutationKind int

const (
	MutationSet MutationKind = iota
	MutationIncrement
)

// Mutation is one field update applied by a bulk update.
type Mutation struct {
	kind  MutationKind
	field string
	value Value
}

// Set assigns v to field.
func Set(field string, v interface{}) Mutation {
	return Mutation{kind: MutationSet, field: field, value: ValueOf(v)}
}

// Increment adds n to an integer field. Use a negative n to decrement.
func Increment(field string, n int64) Mutation {
	return Mutation{kind: MutationIncrement, field: field, value: Int(n)}
}

func (m Mutation) Kind() MutationKind { return m.kind }

func (m Mutation) Field() string { return m.field }

func (m Mutation) Value() Value { return m.value }

func (m Mutation) String() string {
	if m.kind == MutationIncrement {
		return fmt.Sprintf("%s = %s + %d", m.field, m.field, m.value.AsInt())
	}
	return fmt.Sprintf("%s = %s", m.field, m.value)
}

// Apply mutates one record in place.
type Apply[T any] func(*T)

// CompileMutations validates every mutation against schema before returning
// a function that applies them all. Nothing is applied when any is invalid.
func CompileMutations[T any](schema *Schema[T], ms ...Mutation) (Apply[T], error) {
	if len(ms) == 0 {
		return nil, &InvalidMutationError{Table: schema.Table(), Reason: "no update expressions"}
	}
	fields, err := resolveMutations(schema, ms)
	if err != nil {
		return nil, err
	}
	return func(rec *T) {
		for i, m := range ms {
			f := fields[i]
			switch m.kind {
			case MutationIncrement:
				f.set(rec, Int(f.Get(rec).AsInt()+m.value.AsInt()))
			default:
				f.set(rec, m.value)
			}
		}
	}, nil
}

func resolveMutations[T any](schema *Schema[T], ms []Mutation) ([]Field[T], error) {
	fields := make([]Field[T], len(ms))
	seen := make(map[string]bool, len(ms))
	for i, m := range ms {
		invalid := func(reason string) error {
			return &InvalidMutationError{Table: schema.Table(), Field: m.field, Reason: reason}
		}
		f, ok := schema.Lookup(m.field)
		switch {
		case !ok:
			return nil, invalid("no such field")
		case f.Name() == IdentityField:
			return nil, invalid("identity is immutable")
		case !f.Settable():
			return nil, invalid("field is read-only")
		case seen[strings.ToLower(f.Name())]:
			return nil, invalid("field updated twice")
		}
		seen[strings.ToLower(f.Name())] = true
		switch m.kind {
		case MutationIncrement:
			if f.Kind() != KindInt {
				return nil, invalid(fmt.Sprintf("cannot increment %s field", f.Kind()))
			}
		case MutationSet:
			if m.value.Kind() != f.Kind() {
				return nil, invalid(fmt.Sprintf("cannot assign %s to %s field", describeKind(m.value), f.Kind()))
			}
		default:
			return nil, invalid(fmt.Sprintf("unknown mutation kind %d", int(m.kind)))
		}
		fields[i] = f
	}
	return fields, nil
}
