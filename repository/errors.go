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

package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateIdentity is matched by every DuplicateIdentityError.
	ErrDuplicateIdentity = errors.New("duplicate identity")

	// ErrNotFound is matched by every NotFoundError.
	ErrNotFound = errors.New("record not found")

	// ErrIncorrectResultSize is matched by every IncorrectResultSizeError.
	ErrIncorrectResultSize = errors.New("incorrect result size")
)

// DuplicateIdentityError reports an insert whose caller-supplied identity
// is already present.
type DuplicateIdentityError struct {
	Table string
	ID    int64
	Err   error
}

func (e *DuplicateIdentityError) Error() string {
	return fmt.Sprintf("duplicate identity %d in %s", e.ID, e.Table)
}

func (e *DuplicateIdentityError) Is(target error) bool {
	return target == ErrDuplicateIdentity
}

// Unwrap exposes the driver error, if any.
func (e *DuplicateIdentityError) Unwrap() error { return e.Err }

// NotFoundError reports an update or delete of an absent record. Lookups
// never return it: a missing record is a nil result.
type NotFoundError struct {
	Table string
	ID    int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Table, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// IncorrectResultSizeError reports a single-result query that matched more
// than one record.
type IncorrectResultSizeError struct {
	Table    string
	Expected int
	Actual   int
}

func (e *IncorrectResultSizeError) Error() string {
	return fmt.Sprintf("incorrect result size on %s: expected %d, actual %d", e.Table, e.Expected, e.Actual)
}

func (e *IncorrectResultSizeError) Is(target error) bool {
	return target == ErrIncorrectResultSize
}

// IsDuplicateIdentity checks if an error is a duplicate identity error.
func IsDuplicateIdentity(err error) bool {
	return errors.Is(err, ErrDuplicateIdentity)
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsIncorrectResultSize checks if an error is an incorrect result size error.
func IsIncorrectResultSize(err error) bool {
	return errors.Is(err, ErrIncorrectResultSize)
}
