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
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/tomoncle/roster/query"
	"github.com/tomoncle/roster/repository"
)

// Derived runs queries named by method, such as
// "findByUsernameAndAgeGreaterThan", against a repository. Parsed templates
// are cached per method name.
type Derived[T any] struct {
	repo    repository.Repository[T]
	methods *xsync.MapOf[string, *query.MethodTemplate[T]]
}

func NewDerived[T any](repo repository.Repository[T]) *Derived[T] {
	return &Derived[T]{repo: repo, methods: xsync.NewMapOf[string, *query.MethodTemplate[T]]()}
}

// Method returns the parsed template for name.
func (d *Derived[T]) Method(name string) (*query.MethodTemplate[T], error) {
	if t, ok := d.methods.Load(name); ok {
		return t, nil
	}
	t, err := query.ParseMethod(d.repo.Schema(), name)
	if err != nil {
		return nil, err
	}
	t, _ = d.methods.LoadOrStore(name, t)
	return t, nil
}

func (d *Derived[T]) bind(method string, subject query.Subject, args []interface{}) (query.Spec, error) {
	t, err := d.Method(method)
	if err != nil {
		return query.Spec{}, err
	}
	if t.Subject() != subject {
		return query.Spec{}, &query.UnresolvableQueryError{
			Table:  d.repo.Schema().Table(),
			Reason: fmt.Sprintf("method %s is a %s query, not %s", method, t.Subject(), subject),
		}
	}
	return t.Bind(args...)
}

// FindBy runs a find method.
func (d *Derived[T]) FindBy(ctx context.Context, method string, args ...interface{}) ([]*T, error) {
	spec, err := d.bind(method, query.SubjectFind, args)
	if err != nil {
		return nil, err
	}
	return d.repo.Find(ctx, spec)
}

// CountBy runs a count method.
func (d *Derived[T]) CountBy(ctx context.Context, method string, args ...interface{}) (int64, error) {
	spec, err := d.bind(method, query.SubjectCount, args)
	if err != nil {
		return 0, err
	}
	return d.repo.CountWhere(ctx, spec)
}

// ExistsBy runs an exists method.
func (d *Derived[T]) ExistsBy(ctx context.Context, method string, args ...interface{}) (bool, error) {
	spec, err := d.bind(method, query.SubjectExists, args)
	if err != nil {
		return false, err
	}
	return d.repo.Exists(ctx, spec)
}

// Result holds the outcome of Invoke; which field is set depends on Subject.
type Result[T any] struct {
	Subject query.Subject
	Records []*T
	Count   int64
	Exists  bool
}

// Invoke runs any method with textual arguments, as typed on a command line.
func (d *Derived[T]) Invoke(ctx context.Context, method string, args []string) (*Result[T], error) {
	t, err := d.Method(method)
	if err != nil {
		return nil, err
	}
	spec, err := t.BindStrings(args)
	if err != nil {
		return nil, err
	}
	res := &Result[T]{Subject: t.Subject()}
	switch t.Subject() {
	case query.SubjectCount:
		res.Count, err = d.repo.CountWhere(ctx, spec)
	case query.SubjectExists:
		res.Exists, err = d.repo.Exists(ctx, spec)
	default:
		res.Records, err = d.repo.Find(ctx, spec)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}
