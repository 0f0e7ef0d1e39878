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

// Package session keeps an identity map over a repository: within a session
// each identity resolves to one in-memory instance until it is cleared,
// evicted or refreshed. Bulk updates go straight to the store and are not
// reconciled with cached instances.
package session

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/tomoncle/roster/database"
	"github.com/tomoncle/roster/metrics"
	"github.com/tomoncle/roster/query"
	"github.com/tomoncle/roster/repository"
)

type options struct {
	clearAutomatically bool
}

// Option configures a Session.
type Option func(*options)

// WithClearAutomatically clears the identity map after every bulk update,
// so later lookups read the updated records from the store.
func WithClearAutomatically() Option {
	return func(o *options) { o.clearAutomatically = true }
}

// Session is an identity map in front of a repository. It is safe for
// concurrent use, but instances it hands out are shared and not synchronized.
type Session[T any] struct {
	repo   repository.Repository[T]
	cache  *xsync.MapOf[int64, *T]
	opts   options
	logger database.Logger
}

// New opens a session over repo.
func New[T any](repo repository.Repository[T], opts ...Option) *Session[T] {
	s := &Session[T]{
		repo:   repo,
		cache:  xsync.NewMapOf[int64, *T](),
		logger: database.GetLogger(),
	}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return s
}

func (s *Session[T]) Repository() repository.Repository[T] { return s.repo }

func (s *Session[T]) table() string { return s.repo.Schema().Table() }

// attach returns the managed instance for rec's identity, registering rec
// when none exists yet.
func (s *Session[T]) attach(rec *T) *T {
	id := s.repo.Schema().ID(rec)
	managed, loaded := s.cache.LoadOrStore(id, rec)
	metrics.ObserveLookup(s.table(), loaded)
	return managed
}

// Find returns the managed instance for id, loading it on a miss. It
// returns nil, nil when the store has no such record.
func (s *Session[T]) Find(ctx context.Context, id int64) (*T, error) {
	if rec, ok := s.cache.Load(id); ok {
		metrics.ObserveLookup(s.table(), true)
		return rec, nil
	}
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil || rec == nil {
		return nil, err
	}
	return s.attach(rec), nil
}

// Query runs spec against the store. Records already in the session are
// returned as their cached instance, not as the freshly read row.
func (s *Session[T]) Query(ctx context.Context, spec query.Spec) ([]*T, error) {
	recs, err := s.repo.Find(ctx, spec)
	if err != nil {
		return nil, err
	}
	for i, rec := range recs {
		recs[i] = s.attach(rec)
	}
	return recs, nil
}

// Save writes rec and makes it the managed instance for its identity.
func (s *Session[T]) Save(ctx context.Context, rec *T) error {
	if err := s.repo.Save(ctx, rec); err != nil {
		return err
	}
	s.cache.Store(s.repo.Schema().ID(rec), rec)
	return nil
}

// Update writes rec under id and makes it the managed instance.
func (s *Session[T]) Update(ctx context.Context, id int64, rec *T) error {
	if err := s.repo.Update(ctx, id, rec); err != nil {
		return err
	}
	s.repo.Schema().AssignID(rec, id)
	s.cache.Store(id, rec)
	return nil
}

func (s *Session[T]) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Delete(id)
	return nil
}

// BulkUpdate passes through to the store. Cached instances keep their old
// values unless the session was opened WithClearAutomatically.
func (s *Session[T]) BulkUpdate(ctx context.Context, where query.Predicate, mutations ...query.Mutation) (int64, error) {
	n, err := s.repo.BulkUpdate(ctx, where, mutations...)
	if err != nil {
		return 0, err
	}
	if s.opts.clearAutomatically {
		s.Clear()
	} else if n > 0 && s.Size() > 0 {
		s.logger.Debug("bulk update bypassed session cache", "table", s.table(), "affected", n, "cached", s.Size())
	}
	return n, nil
}

// Refresh reloads id from the store into the managed instance, so holders
// of that instance observe the stored values. A record gone from the store
// is evicted and nil is returned.
func (s *Session[T]) Refresh(ctx context.Context, id int64) (*T, error) {
	fresh, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if fresh == nil {
		s.cache.Delete(id)
		return nil, nil
	}
	managed, loaded := s.cache.LoadOrStore(id, fresh)
	if loaded {
		*managed = *fresh
	}
	return managed, nil
}

// Evict detaches id from the session.
func (s *Session[T]) Evict(id int64) { s.cache.Delete(id) }

// Clear detaches every instance.
func (s *Session[T]) Clear() { s.cache.Clear() }

func (s *Session[T]) Contains(id int64) bool {
	_, ok := s.cache.Load(id)
	return ok
}

func (s *Session[T]) Size() int { return s.cache.Size() }
