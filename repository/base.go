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
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"

	"github.com/tomoncle/roster/database"
	"github.com/tomoncle/roster/metrics"
	"github.com/tomoncle/roster/query"
	"github.com/tomoncle/roster/types"
)

const sqlBackend = "sql"

// BunRepository stores records in a SQL table through Bun. Natural order is
// identity order.
type BunRepository[T any] struct {
	db     bun.IDB
	schema *query.Schema[T]
	logger database.Logger
}

var _ Repository[struct{}] = (*BunRepository[struct{}])(nil)

// NewBunRepository returns a repository over db, which may be a *bun.DB, a
// bun.Conn or a bun.Tx.
func NewBunRepository[T any](db bun.IDB, schema *query.Schema[T]) *BunRepository[T] {
	return &BunRepository[T]{db: db, schema: schema, logger: database.GetLogger()}
}

// WithTx returns a copy of the repository bound to tx.
func (r *BunRepository[T]) WithTx(tx bun.Tx) *BunRepository[T] {
	return &BunRepository[T]{db: tx, schema: r.schema, logger: r.logger}
}

// RunInTx runs fn with a repository bound to a new transaction, committing
// when fn returns nil.
func (r *BunRepository[T]) RunInTx(ctx context.Context, fn func(ctx context.Context, repo *BunRepository[T]) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, r.WithTx(tx))
	})
}

func (r *BunRepository[T]) Schema() *query.Schema[T] { return r.schema }

func (r *BunRepository[T]) DB() bun.IDB { return r.db }

func (r *BunRepository[T]) Dialect() schema.Dialect { return r.db.Dialect() }

func (r *BunRepository[T]) NewSelect() *bun.SelectQuery { return r.db.NewSelect() }

func (r *BunRepository[T]) model() *T { return (*T)(nil) }

func (r *BunRepository[T]) identity() bun.Ident { return bun.Ident(r.schema.Identity().Column()) }

func (r *BunRepository[T]) hasFeature(f feature.Feature) bool {
	return r.db.Dialect().Features().Has(f)
}

func (r *BunRepository[T]) Insert(ctx context.Context, rec *T) (id int64, err error) {
	defer func(start time.Time) { metrics.ObserveOperation(sqlBackend, "insert", start, err) }(time.Now())
	row := clone(rec)
	if _, err = r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return 0, r.insertError(rec, err)
	}
	if r.schema.ID(rec) != 0 {
		if err = r.advanceSequence(ctx); err != nil {
			return 0, err
		}
	}
	id = r.schema.ID(row)
	r.schema.AssignID(rec, id)
	return id, nil
}

// advanceSequence moves a PostgreSQL identity sequence past the largest
// stored identity after a caller-supplied identity was written. Other
// dialects assign max+1 on their own.
func (r *BunRepository[T]) advanceSequence(ctx context.Context) error {
	if r.db.Dialect().Name() != dialect.PG {
		return nil
	}
	table, col := r.schema.Table(), r.schema.Identity().Column()
	_, err := r.db.NewRaw(
		"SELECT setval(pg_get_serial_sequence(?, ?), (SELECT COALESCE(MAX(?), 0) + 1 FROM ?), false)",
		table, col, bun.Ident(col), bun.Ident(table),
	).Exec(ctx)
	if err != nil {
		return fmt.Errorf("advance %s identity sequence: %w", table, err)
	}
	return nil
}

func (r *BunRepository[T]) insertError(rec *T, err error) error {
	if database.IsDuplicateKey(err) {
		return &DuplicateIdentityError{Table: r.schema.Table(), ID: r.schema.ID(rec), Err: err}
	}
	return err
}

// Save inserts a record without identity and upserts one with identity,
// using ON CONFLICT or ON DUPLICATE KEY depending on the dialect.
func (r *BunRepository[T]) Save(ctx context.Context, rec *T) (err error) {
	if r.schema.ID(rec) == 0 {
		_, err = r.Insert(ctx, rec)
		return err
	}
	defer func(start time.Time) { metrics.ObserveOperation(sqlBackend, "save", start, err) }(time.Now())
	row := clone(rec)
	switch {
	case r.hasFeature(feature.InsertOnConflict):
		err = r.upsertOnConflict(ctx, row)
	case r.hasFeature(feature.InsertOnDuplicateKey):
		err = r.upsertOnDuplicateKey(ctx, row)
	default:
		err = r.upsertFallback(ctx, row)
	}
	if err != nil {
		return err
	}
	return r.advanceSequence(ctx)
}

func (r *BunRepository[T]) dataColumns() []string {
	var cols []string
	for _, f := range r.schema.Fields() {
		if f.Settable() {
			cols = append(cols, f.Column())
		}
	}
	return cols
}

func (r *BunRepository[T]) upsertOnConflict(ctx context.Context, row *T) error {
	q := r.db.NewInsert().Model(row).On("CONFLICT (?) DO UPDATE", r.identity())
	for _, col := range r.dataColumns() {
		q = q.Set("? = EXCLUDED.?", bun.Ident(col), bun.Ident(col))
	}
	_, err := q.Exec(ctx)
	return err
}

func (r *BunRepository[T]) upsertOnDuplicateKey(ctx context.Context, row *T) error {
	q := r.db.NewInsert().Model(row).On("DUPLICATE KEY UPDATE")
	for _, col := range r.dataColumns() {
		q = q.Set("? = VALUES(?)", bun.Ident(col), bun.Ident(col))
	}
	_, err := q.Exec(ctx)
	return err
}

func (r *BunRepository[T]) upsertFallback(ctx context.Context, row *T) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model(row).WherePK().Exec(ctx)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			return nil
		}
		_, err = tx.NewInsert().Model(row).Exec(ctx)
		return err
	})
}

func (r *BunRepository[T]) FindByID(ctx context.Context, id int64) (rec *T, err error) {
	defer func(start time.Time) { metrics.ObserveOperation(sqlBackend, "find_by_id", start, err) }(time.Now())
	row := new(T)
	err = r.db.NewSelect().Model(row).Where("? = ?", r.identity(), id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *BunRepository[T]) FindAll(ctx context.Context) (recs []*T, err error) {
	defer func(start time.Time) { metrics.ObserveOperation(sqlBackend, "find_all", start, err) }(time.Now())
	recs = make([]*T, 0)
	err = r.db.NewSelect().Model(&recs).OrderExpr("? ASC", r.identity()).Scan(ctx)
	return recs, err
}

func (r *BunRepository[T]) Update(ctx context.Context, id int64, rec *T) (err error) {
	defer func(start time.Time) { metrics.ObserveOperation(sqlBackend, "update", start, err) }(time.Now())
	row := clone(rec)
	r.schema.AssignID(row, id)
	res, err := r.db.NewUpdate().Model(row).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	return r.requireRow(res, id)
}

func (r *BunRepository[T]) Delete(ctx context.Context, id int64) (err error) {
	defer func(start time.Time) { metrics.ObserveOperation(sqlBackend, "delete", start, err) }(time.Now())
	res, err := r.db.NewDelete().Model(r.model()).Where("? = ?", r.identity(), id).Exec(ctx)
	if err != nil {
		return err
	}
	return r.requireRow(res, id)
}

func (r *BunRepository[T]) requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &NotFoundError{Table: r.schema.Table(), ID: id}
	}
	return nil
}

func (r *BunRepository[T]) Count(ctx context.Context) (total int64, err error) {
	defer func(start time.Time) { metrics.ObserveOperation(sqlBackend, "count", start, err) }(time.Now())
	n, err := r.db.NewSelect().Model(r.model()).Count(ctx)
	return int64(n), err
}

// where renders the query predicate onto q.
func (r *BunRepository[T]) where(q *bun.SelectQuery, spec query.Spec) (*bun.SelectQuery, error) {
	expr, err := query.WhereSQL(r.schema, spec.Predicate(), "")
	if err != nil {
		return nil, err
	}
	return q.Where(expr.Query, expr.Args...), nil
}

// orderBy appends the given sorts in precedence order, then the identity.
func (r *BunRepository[T]) orderBy(q *bun.SelectQuery, sorts ...types.Sort) (*bun.SelectQuery, error) {
	for _, s := range sorts {
		exprs, err := query.OrderSQL(r.schema, s, "")
		if err != nil {
			return nil, err
		}
		for _, e := range exprs {
			q = q.OrderExpr(e.Query, e.Args...)
		}
	}
	return q.OrderExpr("? ASC", r.identity()), nil
}

func (r *BunRepository[T]) Find(ctx context.Context, spec query.Spec) (recs []*T, err error) {
	defer func(start time.Time) { metrics.ObserveOperation(sqlBackend, "find", start, err) }(time.Now())
	return r.find(ctx, spec, spec.MaxResults())
}

func (r *BunRepository[T]) find(ctx context.Context, spec query.Spec, limit int) ([]*T, error) {
	recs := make([]*T, 0)
	q, err := r.where(r.db.NewSelect().Model(&recs), spec)
	if err != nil {
		return nil, err
	}
	if q, err = r.orderBy(q, spec.Sort()); err != nil {
		return nil, err
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *BunRepository[T]) FindOne(ctx context.Context, spec query.Spec) (rec *T, err error) {
	defer func(start time.Time) { metrics.ObserveOperation(sqlBackend, "find_one", start, err) }(time.Now())
	recs, err := r.find(ctx, spec, 2)
	if err != nil {
		return nil, err
	}
	if len(recs) > 1 {
		n, err := r.CountWhere(ctx, spec)
		if err != nil {
			return nil, err
		}
		return nil, &IncorrectResultSizeError{Table: r.schema.Table(), Expected: 1, Actual: int(n)}
	}
	return single(r.schema.Table(), recs)
}

// pageQuery selects one window of the matches ordered by the request sort,
// then the query sort, then identity.
func (r *BunRepository[T]) pageQuery(recs *[]*T, spec query.Spec, req *types.PageRequest, limit int) (*bun.SelectQuery, error) {
	q, err := r.where(r.db.NewSelect().Model(recs), spec)
	if err != nil {
		return nil, err
	}
	if q, err = r.orderBy(q, req.GetSort(), spec.Sort()); err != nil {
		return nil, err
	}
	return q.Offset(req.GetOffset()).Limit(limit), nil
}

func (r *BunRepository[T]) FindPage(ctx context.Context, spec query.Spec, req *types.PageRequest) (page *types.Page[T], err error) {
	defer func(start time.Time) { metrics.ObserveOperation(sqlBackend, "find_page", start, err) }(time.Now())
	if err = req.Validate(); err != nil {
		return nil, err
	}
	recs := make([]*T, 0)
	q, err := r.pageQuery(&recs, spec, req, req.GetPageSize())
	if err != nil {
		return nil, err
	}
	total, err := r.CountWhere(ctx, spec)
	if err != nil {
		return nil, err
	}
	if req.InRange(total) {
		if err = q.Scan(ctx); err != nil {
			return nil, err
		}
	}
	return types.NewPage(recs, req, total), nil
}

// FindSlice fetches one row past the page to learn whether a next page exists.
func (r *BunRepository[T]) FindSlice(ctx context.Context, spec query.Spec, req *types.PageRequest) (slice *types.Slice[T], err error) {
	defer func(start time.Time) { metrics.ObserveOperation(sqlBackend, "find_slice", start, err) }(time.Now())
	if err = req.Validate(); err != nil {
		return nil, err
	}
	limit := req.GetPageSize()
	if limit < math.MaxInt {
		limit++
	}
	recs := make([]*T, 0)
	q, err := r.pageQuery(&recs, spec, req, limit)
	if err != nil {
		return nil, err
	}
	// no table holds rows that far out; the window would overflow OFFSET+LIMIT
	if req.GetOffset() > math.MaxInt-limit {
		return types.NewSlice(recs, req, false), nil
	}
	if err = q.Scan(ctx); err != nil {
		return nil, err
	}
	hasNext := len(recs) > req.GetPageSize()
	if hasNext {
		recs = recs[:req.GetPageSize()]
	}
	return types.NewSlice(recs, req, hasNext), nil
}

func (r *BunRepository[T]) CountWhere(ctx context.Context, spec query.Spec) (total int64, err error) {
	defer func(start time.Time) { metrics.ObserveOperation(sqlBackend, "count_where", start, err) }(time.Now())
	q, err := r.where(r.db.NewSelect().Model(r.model()), spec)
	if err != nil {
		return 0, err
	}
	n, err := q.Count(ctx)
	return int64(n), err
}

func (r *BunRepository[T]) Exists(ctx context.Context, spec query.Spec) (ok bool, err error) {
	defer func(start time.Time) { metrics.ObserveOperation(sqlBackend, "exists", start, err) }(time.Now())
	q, err := r.where(r.db.NewSelect().Model(r.model()), spec)
	if err != nil {
		return false, err
	}
	return q.Exists(ctx)
}

// BulkUpdate issues one UPDATE statement. Both the predicate and the
// mutations are rendered before the statement is sent.
func (r *BunRepository[T]) BulkUpdate(ctx context.Context, where query.Predicate, mutations ...query.Mutation) (n int64, err error) {
	defer func(start time.Time) { metrics.ObserveOperation(sqlBackend, "bulk_update", start, err) }(time.Now())
	cond, err := query.WhereSQL(r.schema, where, "")
	if err != nil {
		return 0, err
	}
	sets, err := query.SetSQL(r.schema, mutations...)
	if err != nil {
		return 0, err
	}
	q := r.db.NewUpdate().Model(r.model())
	for _, s := range sets {
		q = q.Set(s.Query, s.Args...)
	}
	res, err := q.Where(cond.Query, cond.Args...).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("bulk update %s: %w", r.schema.Table(), err)
	}
	if n, err = res.RowsAffected(); err != nil {
		return 0, err
	}
	r.logger.Debug("bulk update applied", "table", r.schema.Table(), "where", where.String(), "affected", n)
	metrics.ObserveBulk(sqlBackend, r.schema.Table(), n)
	return n, nil
}
