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

package types

import (
	"fmt"
	"strings"
)

// Order is a single sort directive on a record field.
type Order struct {
	Field     string
	Direction Direction
}

// Asc returns an ascending order on field.
func Asc(field string) Order { return Order{Field: field, Direction: ASC} }

// Desc returns a descending order on field.
func Desc(field string) Order { return Order{Field: field, Direction: DESC} }

func (o Order) String() string { return o.Field + " " + o.Direction.Name() }

// Sort is an ordered list of sort directives; earlier entries take precedence.
type Sort []Order

// By builds a Sort from the given orders.
func By(orders ...Order) Sort {
	s := make(Sort, len(orders))
	copy(s, orders)
	return s
}

// Unsorted reports whether the sort carries no directives.
func (s Sort) Unsorted() bool { return len(s) == 0 }

// And returns a new Sort with other appended after s.
func (s Sort) And(other Sort) Sort {
	out := make(Sort, 0, len(s)+len(other))
	out = append(out, s...)
	return append(out, other...)
}

// ParseOrder parses "field" or "field,asc|desc", the form used on command lines.
func ParseOrder(s string) (Order, error) {
	parts := strings.SplitN(s, ",", 2)
	field := strings.TrimSpace(parts[0])
	if field == "" {
		return Order{}, fmt.Errorf("empty sort field in %q", s)
	}
	dir := ""
	if len(parts) == 2 {
		dir = parts[1]
	}
	d, ok := ParseDirection(dir)
	if !ok {
		return Order{}, fmt.Errorf("invalid sort direction %q", dir)
	}
	return Order{Field: field, Direction: d}, nil
}
