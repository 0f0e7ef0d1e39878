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
	"errors"
	"fmt"
)

var (
	// ErrUnresolvableQuery is matched by every UnresolvableQueryError.
	ErrUnresolvableQuery = errors.New("unresolvable query")

	// ErrInvalidMutation is matched by every InvalidMutationError.
	ErrInvalidMutation = errors.New("invalid mutation")
)

// UnresolvableQueryError reports a query that names a field the record shape
// does not have, compares a field with a value of the wrong kind, or uses a
// construct the resolver does not support.
type UnresolvableQueryError struct {
	Table  string
	Field  string
	Reason string
}

func (e *UnresolvableQueryError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("unresolvable query on %s: field %q: %s", e.Table, e.Field, e.Reason)
	}
	return fmt.Sprintf("unresolvable query on %s: %s", e.Table, e.Reason)
}

func (e *UnresolvableQueryError) Is(target error) bool {
	return target == ErrUnresolvableQuery
}

// InvalidMutationError reports a bulk update expression that cannot be
// applied to the record shape. It is raised before any record is touched.
type InvalidMutationError struct {
	Table  string
	Field  string
	Reason string
}

func (e *InvalidMutationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid mutation on %s: field %q: %s", e.Table, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid mutation on %s: %s", e.Table, e.Reason)
}

func (e *InvalidMutationError) Is(target error) bool {
	return target == ErrInvalidMutation
}

// IsUnresolvableQuery checks if an error is an unresolvable query error.
func IsUnresolvableQuery(err error) bool {
	return errors.Is(err, ErrUnresolvableQuery)
}

// IsInvalidMutation checks if an error is an invalid mutation error.
func IsInvalidMutation(err error) bool {
	return errors.Is(err, ErrInvalidMutation)
}
