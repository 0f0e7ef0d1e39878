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
	"slices"

	"github.com/tomoncle/roster/types"
)

// Resolved is a specification bound to a schema, ready to run over records.
type Resolved[T any] struct {
	match Matcher[T]
	cmp   func(a, b *T) int
	limit int
}

// Resolve validates spec against schema. Unknown fields, kind mismatches and
// invalid sort directions are reported as UnresolvableQueryError.
func Resolve[T any](schema *Schema[T], spec Spec) (*Resolved[T], error) {
	m, err := Compile(schema, spec.Predicate())
	if err != nil {
		return nil, err
	}
	cmp, err := Comparator(schema, spec.Sort())
	if err != nil {
		return nil, err
	}
	return &Resolved[T]{match: m, cmp: cmp, limit: spec.MaxResults()}, nil
}

// Matches reports whether rec satisfies the predicate.
func (r *Resolved[T]) Matches(rec *T) bool { return r.match(rec) }

// Apply filters records, sorts the matches stably and applies the limit.
// Input order is the tie-break, so callers pass records in natural order.
func (r *Resolved[T]) Apply(records []*T) []*T {
	out := make([]*T, 0)
	for _, rec := range records {
		if r.match(rec) {
			out = append(out, rec)
		}
	}
	if r.cmp != nil {
		slices.SortStableFunc(out, r.cmp)
	}
	if r.limit > 0 && len(out) > r.limit {
		out = out[:r.limit]
	}
	return out
}

// Comparator builds a record comparison from sort directives. It returns a
// nil function for an unsorted Sort.
func Comparator[T any](schema *Schema[T], sort types.Sort) (func(a, b *T) int, error) {
	if sort.Unsorted() {
		return nil, nil
	}
	type key struct {
		field Field[T]
		desc  bool
	}
	keys := make([]key, 0, len(sort))
	for _, o := range sort {
		f, err := schema.Field(o.Field)
		if err != nil {
			return nil, err
		}
		if !o.Direction.IsValid() {
			return nil, &UnresolvableQueryError{Table: schema.Table(), Field: o.Field, Reason: fmt.Sprintf("invalid sort direction %d", int(o.Direction))}
		}
		keys = append(keys, key{field: f, desc: o.Direction == types.DESC})
	}
	return func(a, b *T) int {
		for _, k := range keys {
			c := k.field.Get(a).Compare(k.field.Get(b))
			if k.desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	}, nil
}
