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

// IdentityField is the name under which every schema exposes the record identity.
const IdentityField = "id"

// Field describes one queryable attribute of a record type T.
type Field[T any] struct {
	name   string
	column string
	kind   Kind
	get    func(*T) Value
	set    func(*T, Value)
}

// IntField declares an integer attribute. A nil set makes the field read-only.
func IntField[T any](name, column string, get func(*T) int64, set func(*T, int64)) Field[T] {
	f := Field[T]{
		name:   name,
		column: column,
		kind:   KindInt,
		get:    func(rec *T) Value { return Int(get(rec)) },
	}
	if set != nil {
		f.set = func(rec *T, v Value) { set(rec, v.AsInt()) }
	}
	return f
}

// StringField declares a string attribute. A nil set makes the field read-only.
func StringField[T any](name, column string, get func(*T) string, set func(*T, string)) Field[T] {
	f := Field[T]{
		name:   name,
		column: column,
		kind:   KindString,
		get:    func(rec *T) Value { return String(get(rec)) },
	}
	if set != nil {
		f.set = func(rec *T, v Value) { set(rec, v.AsString()) }
	}
	return f
}

func (f Field[T]) Name() string { return f.name }

func (f Field[T]) Column() string { return f.column }

func (f Field[T]) Kind() Kind { return f.kind }

func (f Field[T]) Settable() bool { return f.set != nil }

// Get reads the field from rec.
func (f Field[T]) Get(rec *T) Value { return f.get(rec) }

// Schema is the explicit field table of a record type: identity accessors
// plus every field a query, sort, projection or mutation may name.
type Schema[T any] struct {
	table  string
	getID  func(*T) int64
	setID  func(*T, int64)
	fields []Field[T]
	index  map[string]int
}

// NewSchema declares a record type stored in table. The identity is exposed
// as the read-only int field "id" on idColumn. NewSchema panics on duplicate
// field names since that is a programming error.
func NewSchema[T any](table, idColumn string, getID func(*T) int64, setID func(*T, int64), fields ...Field[T]) *Schema[T] {
	s := &Schema[T]{
		table: table,
		getID: getID,
		setID: setID,
		index: make(map[string]int),
	}
	s.add(IntField[T](IdentityField, idColumn, getID, nil))
	for _, f := range fields {
		s.add(f)
	}
	return s
}

func (s *Schema[T]) add(f Field[T]) {
	keys := []string{strings.ToLower(f.name), strings.ToLower(f.column)}
	for _, k := range keys {
		if i, ok := s.index[k]; ok && s.fields[i].name != f.name {
			panic(fmt.Sprintf("query: duplicate field %q in schema %s", k, s.table))
		}
	}
	s.fields = append(s.fields, f)
	for _, k := range keys {
		s.index[k] = len(s.fields) - 1
	}
}

func (s *Schema[T]) Table() string { return s.table }

// ID returns the identity of rec; zero means unassigned.
func (s *Schema[T]) ID(rec *T) int64 { return s.getID(rec) }

// AssignID writes an identity into rec. Only stores call it.
func (s *Schema[T]) AssignID(rec *T, id int64) { s.setID(rec, id) }

// Identity returns the identity field.
func (s *Schema[T]) Identity() Field[T] { return s.fields[0] }

// Fields returns all fields in declaration order, identity first.
func (s *Schema[T]) Fields() []Field[T] {
	out := make([]Field[T], len(s.fields))
	copy(out, s.fields)
	return out
}

// Lookup finds a field by name or column, ignoring case.
func (s *Schema[T]) Lookup(name string) (Field[T], bool) {
	i, ok := s.index[strings.ToLower(name)]
	if !ok {
		return Field[T]{}, false
	}
	return s.fields[i], true
}

// Field is Lookup with an UnresolvableQueryError for unknown names.
func (s *Schema[T]) Field(name string) (Field[T], error) {
	f, ok := s.Lookup(name)
	if !ok {
		return Field[T]{}, &UnresolvableQueryError{Table: s.table, Field: name, Reason: "no such field"}
	}
	return f, nil
}
