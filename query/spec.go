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

import "github.com/tomoncle/roster/types"

// Spec is an immutable query specification: a predicate, a sort and an
// optional result limit. Every builder method returns a new Spec.
type Spec struct {
	where Predicate
	sort  types.Sort
	limit int
}

// Where starts a specification filtered by p.
func Where(p Predicate) Spec { return Spec{where: p} }

// Everything matches every record in natural order.
func Everything() Spec { return Spec{where: All()} }

// And narrows the specification with further predicates.
func (s Spec) And(ps ...Predicate) Spec {
	s.where = s.where.And(ps...)
	return s
}

// OrderBy appends sort directives after any already present.
func (s Spec) OrderBy(orders ...types.Order) Spec {
	s.sort = s.sort.And(types.By(orders...))
	return s
}

// Limit caps the number of results; n <= 0 removes the cap.
func (s Spec) Limit(n int) Spec {
	if n < 0 {
		n = 0
	}
	s.limit = n
	return s
}

func (s Spec) Predicate() Predicate { return s.where }

func (s Spec) Sort() types.Sort { return types.By(s.sort...) }

// MaxResults returns the result cap, 0 when unlimited.
func (s Spec) MaxResults() int { return s.limit }
