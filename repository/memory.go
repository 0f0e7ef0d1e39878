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
	"slices"
	"sync"
	"time"

	"github.com/tomoncle/roster/database"
	"github.com/tomoncle/roster/metrics"
	"github.com/tomoncle/roster/paging"
	"github.com/tomoncle/roster/query"
	"github.com/tomoncle/roster/types"
)

const memoryBackend = "memory"

// MemoryRepository keeps records in process memory. Natural order is
// insertion order. It is safe for concurrent use; a bulk update is applied
// under one write lock so readers never observe it half done.
type MemoryRepository[T any] struct {
	schema *query.Schema[T]
	logger database.Logger

	mu     sync.RWMutex
	rows   map[int64]*T
	order  []int64
	nextID int64
}

var _ Repository[struct{}] = (*MemoryRepository[struct{}])(nil)

// NewMemoryRepository returns an empty store for records described by schema.
func NewMemoryRepository[T any](schema *query.Schema[T]) *MemoryRepository[T] {
	return &MemoryRepository[T]{
		schema: schema,
		logger: database.GetLogger(),
		rows:   make(map[int64]*T),
	}
}

func (r *MemoryRepository[T]) Schema() *query.Schema[T] { return r.schema }

func clone[T any](rec *T) *T {
	c := *rec
	return &c
}

func cloneAll[T any](recs []*T) []*T {
	out := make([]*T, len(recs))
	for i, rec := range recs {
		out[i] = clone(rec)
	}
	return out
}

// snapshot returns the stored records in natural order. Callers hold mu.
func (r *MemoryRepository[T]) snapshot() []*T {
	out := make([]*T, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.rows[id])
	}
	return out
}

func (r *MemoryRepository[T]) insertLocked(rec *T) (int64, error) {
	id := r.schema.ID(rec)
	if id == 0 {
		r.nextID++
		id = r.nextID
	} else if _, ok := r.rows[id]; ok {
		return 0, &DuplicateIdentityError{Table: r.schema.Table(), ID: id}
	}
	if id > r.nextID {
		r.nextID = id
	}
	row := clone(rec)
	r.schema.AssignID(row, id)
	r.rows[id] = row
	r.order = append(r.order, id)
	r.schema.AssignID(rec, id)
	return id, nil
}

func (r *MemoryRepository[T]) Insert(ctx context.Context, rec *T) (id int64, err error) {
	defer func(start time.Time) { metrics.ObserveOperation(memoryBackend, "insert", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(rec)
}

func (r *MemoryRepository[T]) Save(ctx context.Context, rec *T) (err error) {
	defer func(start time.Time) { metrics.ObserveOperation(memoryBackend, "save", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.schema.ID(rec)
	if _, ok := r.rows[id]; ok && id != 0 {
		r.rows[id] = clone(rec)
		return nil
	}
	_, err = r.insertLocked(rec)
	return err
}

func (r *MemoryRepository[T]) FindByID(ctx context.Context, id int64) (rec *T, err error) {
	defer func(start time.Time) { metrics.ObserveOperation(memoryBackend, "find_by_id", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	return clone(row), nil
}

func (r *MemoryRepository[T]) FindAll(ctx context.Context) (recs []*T, err error) {
	defer func(start time.Time) { metrics.ObserveOperation(memoryBackend, "find_all", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneAll(r.snapshot()), nil
}

func (r *MemoryRepository[T]) Update(ctx context.Context, id int64, rec *T) (err error) {
	defer func(start time.Time) { metrics.ObserveOperation(memoryBackend, "update", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return &NotFoundError{Table: r.schema.Table(), ID: id}
	}
	row := clone(rec)
	r.schema.AssignID(row, id)
	r.rows[id] = row
	return nil
}

func (r *MemoryRepository[T]) Delete(ctx context.Context, id int64) (err error) {
	defer func(start time.Time) { metrics.ObserveOperation(memoryBackend, "delete", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return &NotFoundError{Table: r.schema.Table(), ID: id}
	}
	delete(r.rows, id)
	if i := slices.Index(r.order, id); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	return nil
}

func (r *MemoryRepository[T]) Count(ctx context.Context) (n int64, err error) {
	defer func(start time.Time) { metrics.ObserveOperation(memoryBackend, "count", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.rows)), nil
}

// resolve runs spec over a snapshot and returns cloned matches.
func (r *MemoryRepository[T]) resolve(ctx context.Context, spec query.Spec) ([]*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resolved, err := query.Resolve(r.schema, spec)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneAll(resolved.Apply(r.snapshot())), nil
}

func (r *MemoryRepository[T]) Find(ctx context.Context, spec query.Spec) (recs []*T, err error) {
	defer func(start time.Time) { metrics.ObserveOperation(memoryBackend, "find", start, err) }(time.Now())
	return r.resolve(ctx, spec)
}

func (r *MemoryRepository[T]) FindOne(ctx context.Context, spec query.Spec) (rec *T, err error) {
	defer func(start time.Time) { metrics.ObserveOperation(memoryBackend, "find_one", start, err) }(time.Now())
	recs, err := r.resolve(ctx, spec)
	if err != nil {
		return nil, err
	}
	return single(r.schema.Table(), recs)
}

func single[T any](table string, recs []*T) (*T, error) {
	switch len(recs) {
	case 0:
		return nil, nil
	case 1:
		return recs[0], nil
	default:
		return nil, &IncorrectResultSizeError{Table: table, Expected: 1, Actual: len(recs)}
	}
}

// FindPage orders the matches by the query sort, then stably by the request
// sort, and cuts out the requested page. The query limit does not apply.
func (r *MemoryRepository[T]) FindPage(ctx context.Context, spec query.Spec, req *types.PageRequest) (page *types.Page[T], err error) {
	defer func(start time.Time) { metrics.ObserveOperation(memoryBackend, "find_page", start, err) }(time.Now())
	if err = req.Validate(); err != nil {
		return nil, err
	}
	recs, err := r.resolve(ctx, spec.Limit(0))
	if err != nil {
		return nil, err
	}
	return paging.Paginate(r.schema, recs, req)
}

func (r *MemoryRepository[T]) FindSlice(ctx context.Context, spec query.Spec, req *types.PageRequest) (slice *types.Slice[T], err error) {
	defer func(start time.Time) { metrics.ObserveOperation(memoryBackend, "find_slice", start, err) }(time.Now())
	if err = req.Validate(); err != nil {
		return nil, err
	}
	recs, err := r.resolve(ctx, spec.Limit(0))
	if err != nil {
		return nil, err
	}
	return paging.Window(r.schema, recs, req)
}

func (r *MemoryRepository[T]) CountWhere(ctx context.Context, spec query.Spec) (n int64, err error) {
	defer func(start time.Time) { metrics.ObserveOperation(memoryBackend, "count_where", start, err) }(time.Now())
	m, err := query.Compile(r.schema, spec.Predicate())
	if err != nil {
		return 0, err
	}
	if err = ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, row := range r.rows {
		if m(row) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository[T]) Exists(ctx context.Context, spec query.Spec) (ok bool, err error) {
	defer func(start time.Time) { metrics.ObserveOperation(memoryBackend, "exists", start, err) }(time.Now())
	m, err := query.Compile(r.schema, spec.Predicate())
	if err != nil {
		return false, err
	}
	if err = ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, row := range r.rows {
		if m(row) {
			return true, nil
		}
	}
	return false, nil
}

// BulkUpdate validates where and mutations, then rewrites every match under
// a single write lock. Records are replaced, never mutated in place, so
// copies handed out earlier keep their old values.
func (r *MemoryRepository[T]) BulkUpdate(ctx context.Context, where query.Predicate, mutations ...query.Mutation) (n int64, err error) {
	defer func(start time.Time) { metrics.ObserveOperation(memoryBackend, "bulk_update", start, err) }(time.Now())
	match, err := query.Compile(r.schema, where)
	if err != nil {
		return 0, err
	}
	apply, err := query.CompileMutations(r.schema, mutations...)
	if err != nil {
		return 0, err
	}
	if err = ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		row := r.rows[id]
		if !match(row) {
			continue
		}
		updated := clone(row)
		apply(updated)
		r.rows[id] = updated
		n++
	}
	r.logger.Debug("bulk update applied", "table", r.schema.Table(), "where", where.String(), "affected", n)
	metrics.ObserveBulk(memoryBackend, r.schema.Table(), n)
	return n, nil
}
