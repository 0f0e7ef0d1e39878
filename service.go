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

package roster

import (
	"context"
	"errors"
	"sync"

	"github.com/tomoncle/roster/database"
	"github.com/tomoncle/roster/query"
	"github.com/tomoncle/roster/repository"
	"github.com/tomoncle/roster/session"
	"github.com/tomoncle/roster/types"
)

// ErrDatabaseNotInitialized is returned by a Service used before database.InitDB.
var ErrDatabaseNotInitialized = errors.New("database not initialized")

type Service[T any] interface {
	// Get returns a single record by identity, nil when absent.
	Get(ctx context.Context, id int64) (*T, error)

	// All returns all records in identity order.
	All(ctx context.Context) ([]*T, error)

	// List returns the records matching spec.
	List(ctx context.Context, spec query.Spec) ([]*T, error)

	// Page returns one page of the records matching spec.
	Page(ctx context.Context, spec query.Spec, req *types.PageRequest) (*types.Page[T], error)

	// Save inserts or upserts a record.
	Save(ctx context.Context, model *T) error

	// Update replaces the record with identity id.
	Update(ctx context.Context, id int64, model *T) error

	// Delete removes a record by identity.
	Delete(ctx context.Context, id int64) error

	// BulkUpdate applies mutations to every record matching where.
	BulkUpdate(ctx context.Context, where query.Predicate, mutations ...query.Mutation) (int64, error)

	// Session opens an identity-mapped session over the service's repository.
	Session(opts ...session.Option) (*session.Session[T], error)
}

type baseServiceImpl[T any] struct {
	schema *query.Schema[T]
	mu     sync.Mutex
	repo   repository.Repository[T]
}

// NewService returns a Service backed by the global database connection.
// The repository is bound on first use, so the service may be created
// before database.InitDB runs.
func NewService[T any](schema *query.Schema[T]) Service[T] {
	return &baseServiceImpl[T]{schema: schema}
}

func (s *baseServiceImpl[T]) baseRepo() (repository.Repository[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.repo == nil {
		db := database.GetDB()
		if db == nil {
			return nil, ErrDatabaseNotInitialized
		}
		s.repo = repository.NewBunRepository(db, s.schema)
	}
	return s.repo, nil
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id int64) (*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.FindByID(ctx, id)
}

func (s *baseServiceImpl[T]) All(ctx context.Context) ([]*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.FindAll(ctx)
}

func (s *baseServiceImpl[T]) List(ctx context.Context, spec query.Spec) ([]*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.Find(ctx, spec)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, spec query.Spec, req *types.PageRequest) (*types.Page[T], error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.FindPage(ctx, spec, req)
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, model *T) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.Save(ctx, model)
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, id int64, model *T) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.Update(ctx, id, model)
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id int64) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.Delete(ctx, id)
}

func (s *baseServiceImpl[T]) BulkUpdate(ctx context.Context, where query.Predicate, mutations ...query.Mutation) (int64, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return 0, err
	}
	return repo.BulkUpdate(ctx, where, mutations...)
}

func (s *baseServiceImpl[T]) Session(opts ...session.Option) (*session.Session[T], error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return session.New(repo, opts...), nil
}
