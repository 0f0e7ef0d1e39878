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
	"context"

	"github.com/tomoncle/roster/query"
	"github.com/tomoncle/roster/types"
)

// CrudRepository defines identity-keyed operations on records of type T.
// Records passed in and returned are copies; callers never alias store state.
type CrudRepository[T any] interface {
	// Insert stores rec and returns its identity. A zero identity is
	// assigned by the store and written back into rec.
	Insert(ctx context.Context, rec *T) (int64, error)

	// Save inserts rec when its identity is zero and otherwise writes it
	// under its identity, inserting or replacing.
	Save(ctx context.Context, rec *T) error

	// FindByID returns nil, nil when no record has the identity.
	FindByID(ctx context.Context, id int64) (*T, error)

	// FindAll returns every record in natural order: insertion order, which
	// is identity order for store-assigned identities.
	FindAll(ctx context.Context) ([]*T, error)

	// Update replaces every non-identity field of the record with identity id.
	Update(ctx context.Context, id int64, rec *T) error

	Delete(ctx context.Context, id int64) error

	Count(ctx context.Context) (int64, error)
}

// QueryRepository resolves query specifications against the store.
type QueryRepository[T any] interface {
	Find(ctx context.Context, spec query.Spec) ([]*T, error)
	FindOne(ctx context.Context, spec query.Spec) (*T, error)
	FindPage(ctx context.Context, spec query.Spec, req *types.PageRequest) (*types.Page[T], error)
	FindSlice(ctx context.Context, spec query.Spec, req *types.PageRequest) (*types.Slice[T], error)
	CountWhere(ctx context.Context, spec query.Spec) (int64, error)
	Exists(ctx context.Context, spec query.Spec) (bool, error)
}

// BulkRepository applies predicate-scoped updates.
type BulkRepository[T any] interface {
	// BulkUpdate applies every mutation to every record matching where and
	// returns the number of records matched. Predicate and mutations are
	// validated before anything is written. It bypasses any session cache.
	BulkUpdate(ctx context.Context, where query.Predicate, mutations ...query.Mutation) (int64, error)
}

// Repository is the full record store contract.
type Repository[T any] interface {
	CrudRepository[T]
	QueryRepository[T]
	BulkRepository[T]
	Schema() *query.Schema[T]
}
