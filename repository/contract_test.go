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
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/tomoncle/roster/entity"
	"github.com/tomoncle/roster/metrics"
	"github.com/tomoncle/roster/query"
	"github.com/tomoncle/roster/types"
)

func newSQLiteDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()
	for _, model := range []interface{}{(*entity.Team)(nil), (*entity.Member)(nil)} {
		if _, err := db.NewCreateTable().Model(model).Exec(ctx); err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}

// forEachBackend runs fn against a fresh member store of every backend.
func forEachBackend(t *testing.T, fn func(t *testing.T, repo Repository[entity.Member])) {
	backends := []struct {
		name string
		new  func(t *testing.T) Repository[entity.Member]
	}{
		{"memory", func(t *testing.T) Repository[entity.Member] {
			return NewMemoryRepository(entity.MemberSchema)
		}},
		{"sqlite", func(t *testing.T) Repository[entity.Member] {
			return NewBunRepository(newSQLiteDB(t), entity.MemberSchema)
		}},
	}
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			fn(t, b.new(t))
		})
	}
}

func seed(t *testing.T, repo Repository[entity.Member], ages ...int) []*entity.Member {
	t.Helper()
	out := make([]*entity.Member, 0, len(ages))
	for i, age := range ages {
		m := entity.NewMember("member"+string(rune('1'+i)), age, nil)
		if _, err := repo.Insert(context.Background(), m); err != nil {
			t.Fatalf("insert %s: %v", m.Username, err)
		}
		out = append(out, m)
	}
	return out
}

func usernames(ms []*entity.Member) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Username
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestInsertAndFindByID(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository[entity.Member]) {
		ctx := context.Background()
		ms := seed(t, repo, 10, 20)
		if ms[0].ID == 0 || ms[1].ID == 0 || ms[0].ID == ms[1].ID {
			t.Fatalf("identities not assigned: %d, %d", ms[0].ID, ms[1].ID)
		}

		got, err := repo.FindByID(ctx, ms[1].ID)
		if err != nil {
			t.Fatalf("find by id: %v", err)
		}
		if got == nil || got.Username != "member2" || got.Age != 20 {
			t.Fatalf("unexpected record: %+v", got)
		}

		got.Age = 99
		again, _ := repo.FindByID(ctx, ms[1].ID)
		if again.Age != 20 {
			t.Errorf("store aliased returned record: age %d", again.Age)
		}

		missing, err := repo.FindByID(ctx, 12345)
		if err != nil || missing != nil {
			t.Errorf("expected nil, nil for absent id, got %+v, %v", missing, err)
		}

		all, err := repo.FindAll(ctx)
		if err != nil {
			t.Fatalf("find all: %v", err)
		}
		if !equalStrings(usernames(all), []string{"member1", "member2"}) {
			t.Errorf("find all order: %v", usernames(all))
		}
		if n, _ := repo.Count(ctx); n != 2 {
			t.Errorf("count = %d, want 2", n)
		}
	})
}

func TestInsertDuplicateIdentity(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository[entity.Member]) {
		ms := seed(t, repo, 10)
		dup := &entity.Member{ID: ms[0].ID, Username: "dup", Age: 1}
		_, err := repo.Insert(context.Background(), dup)
		if !IsDuplicateIdentity(err) {
			t.Fatalf("expected duplicate identity error, got %v", err)
		}
		if n, _ := repo.Count(context.Background()); n != 1 {
			t.Errorf("count = %d, want 1", n)
		}
	})
}

func TestInsertExplicitIdentityAdvancesSequence(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository[entity.Member]) {
		ctx := context.Background()
		if _, err := repo.Insert(ctx, &entity.Member{ID: 10, Username: "ten"}); err != nil {
			t.Fatal(err)
		}
		if err := repo.Save(ctx, &entity.Member{ID: 20, Username: "twenty"}); err != nil {
			t.Fatal(err)
		}
		id, err := repo.Insert(ctx, entity.NewMember("next", 1, nil))
		if err != nil {
			t.Fatalf("store-assigned insert after explicit ones: %v", err)
		}
		if id != 21 {
			t.Errorf("assigned id = %d, want 21", id)
		}
	})
}

func TestUpdateAndDelete(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository[entity.Member]) {
		ctx := context.Background()
		ms := seed(t, repo, 10, 20)

		changed := *ms[0]
		changed.Username = "renamed"
		changed.Age = 11
		changed.TeamID = 7
		if err := repo.Update(ctx, ms[0].ID, &changed); err != nil {
			t.Fatalf("update: %v", err)
		}
		got, _ := repo.FindByID(ctx, ms[0].ID)
		if got == nil || got.ID != ms[0].ID || got.Username != "renamed" || got.Age != 11 || got.TeamID != 7 {
			t.Errorf("update not visible: %+v", got)
		}
		// unchanged values still count as a match
		if err := repo.Update(ctx, ms[0].ID, &changed); err != nil {
			t.Errorf("idempotent update: %v", err)
		}

		if err := repo.Update(ctx, 999, &changed); !IsNotFound(err) {
			t.Errorf("update missing: expected not found, got %v", err)
		}
		if err := repo.Delete(ctx, ms[1].ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := repo.Delete(ctx, ms[1].ID); !IsNotFound(err) {
			t.Errorf("second delete: expected not found, got %v", err)
		}
		if n, _ := repo.Count(ctx); n != 1 {
			t.Errorf("count = %d, want 1", n)
		}
	})
}

func TestSave(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository[entity.Member]) {
		ctx := context.Background()
		m := entity.NewMember("fresh", 30, nil)
		if err := repo.Save(ctx, m); err != nil {
			t.Fatalf("save new: %v", err)
		}
		if m.ID == 0 {
			t.Fatal("save did not assign identity")
		}
		m.Age = 31
		if err := repo.Save(ctx, m); err != nil {
			t.Fatalf("save existing: %v", err)
		}
		explicit := &entity.Member{ID: 500, Username: "explicit", Age: 5}
		if err := repo.Save(ctx, explicit); err != nil {
			t.Fatalf("save explicit id: %v", err)
		}

		got, _ := repo.FindByID(ctx, m.ID)
		if got.Age != 31 {
			t.Errorf("age = %d, want 31", got.Age)
		}
		if got, _ := repo.FindByID(ctx, 500); got == nil || got.Username != "explicit" {
			t.Errorf("explicit record: %+v", got)
		}
		if n, _ := repo.Count(ctx); n != 2 {
			t.Errorf("count = %d, want 2", n)
		}
	})
}

func TestFindSpec(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository[entity.Member]) {
		ctx := context.Background()
		seed(t, repo, 10, 19, 20, 21, 40)

		got, err := repo.Find(ctx, query.Where(query.Gte("age", 20)).OrderBy(types.Desc("age")))
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if want := []string{"member5", "member4", "member3"}; !equalStrings(usernames(got), want) {
			t.Errorf("got %v, want %v", usernames(got), want)
		}

		got, _ = repo.Find(ctx, query.Where(query.Gte("age", 20)).Limit(2))
		if want := []string{"member3", "member4"}; !equalStrings(usernames(got), want) {
			t.Errorf("limit: got %v, want %v", usernames(got), want)
		}

		got, _ = repo.Find(ctx, query.Where(query.In("username", []string{"member1", "member5", "nobody"})))
		if want := []string{"member1", "member5"}; !equalStrings(usernames(got), want) {
			t.Errorf("in: got %v, want %v", usernames(got), want)
		}

		got, _ = repo.Find(ctx, query.Where(query.In("username", []string{})))
		if len(got) != 0 {
			t.Errorf("empty in matched %v", usernames(got))
		}

		got, _ = repo.Find(ctx, query.Everything().And(query.Ne("age", 10), query.Lt("age", 21)))
		if want := []string{"member2", "member3"}; !equalStrings(usernames(got), want) {
			t.Errorf("and: got %v, want %v", usernames(got), want)
		}
	})
}

func TestFindOne(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository[entity.Member]) {
		ctx := context.Background()
		seed(t, repo, 10, 20, 20)

		one, err := repo.FindOne(ctx, query.Where(query.Eq("age", 10)))
		if err != nil || one == nil || one.Username != "member1" {
			t.Fatalf("find one: %+v, %v", one, err)
		}
		none, err := repo.FindOne(ctx, query.Where(query.Eq("age", 99)))
		if err != nil || none != nil {
			t.Errorf("expected nil, nil, got %+v, %v", none, err)
		}
		_, err = repo.FindOne(ctx, query.Where(query.Eq("age", 20)))
		if !IsIncorrectResultSize(err) {
			t.Errorf("expected incorrect result size, got %v", err)
		}
	})
}

func TestUnresolvableQuery(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository[entity.Member]) {
		ctx := context.Background()
		seed(t, repo, 10)

		if _, err := repo.Find(ctx, query.Where(query.Eq("nickname", "x"))); !query.IsUnresolvableQuery(err) {
			t.Errorf("unknown field: got %v", err)
		}
		if _, err := repo.Find(ctx, query.Where(query.Eq("age", "ten"))); !query.IsUnresolvableQuery(err) {
			t.Errorf("kind mismatch: got %v", err)
		}
		if _, err := repo.Find(ctx, query.Everything().OrderBy(types.Asc("nickname"))); !query.IsUnresolvableQuery(err) {
			t.Errorf("unknown sort field: got %v", err)
		}
		if _, err := repo.CountWhere(ctx, query.Where(query.Gt("nickname", 1))); !query.IsUnresolvableQuery(err) {
			t.Errorf("count: got %v", err)
		}
	})
}

func TestFindPage(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository[entity.Member]) {
		ctx := context.Background()
		seed(t, repo, 10, 10, 10, 10, 10, 10, 10)

		req, err := types.NewPageRequest(0, 3, types.Desc("username"))
		if err != nil {
			t.Fatal(err)
		}
		page, err := repo.FindPage(ctx, query.Where(query.Eq("age", 10)), req)
		if err != nil {
			t.Fatalf("find page: %v", err)
		}
		if page.NumberOfElements() != 3 || page.TotalElements() != 7 || page.TotalPages() != 3 {
			t.Errorf("page shape: %d elements, %d total, %d pages", page.NumberOfElements(), page.TotalElements(), page.TotalPages())
		}
		if page.Number() != 0 || !page.IsFirst() || !page.HasNext() {
			t.Errorf("page flags: number %d, first %v, next %v", page.Number(), page.IsFirst(), page.HasNext())
		}
		if want := []string{"member7", "member6", "member5"}; !equalStrings(usernames(page.Content()), want) {
			t.Errorf("content %v, want %v", usernames(page.Content()), want)
		}

		last, _ := repo.FindPage(ctx, query.Everything(), req.Next().Next())
		if want := []string{"member1"}; !equalStrings(usernames(last.Content()), want) || !last.IsLast() {
			t.Errorf("last page %v, last %v", usernames(last.Content()), last.IsLast())
		}

		beyond, _ := types.NewPageRequest(5, 3)
		empty, err := repo.FindPage(ctx, query.Everything(), beyond)
		if err != nil || empty.HasContent() || empty.TotalElements() != 7 {
			t.Errorf("out of range page: %v, content %v", err, empty)
		}

		// page*size does not fit in an int
		huge, err := types.NewPageRequest(math.MaxInt/2+1, 2)
		if err != nil {
			t.Fatal(err)
		}
		far, err := repo.FindPage(ctx, query.Everything(), huge)
		if err != nil {
			t.Fatalf("far page: %v", err)
		}
		if far.HasContent() || far.HasNext() || !far.IsLast() || far.TotalElements() != 7 || far.TotalPages() != 4 {
			t.Errorf("far page: %d elements, next %v, %d total, %d pages",
				far.NumberOfElements(), far.HasNext(), far.TotalElements(), far.TotalPages())
		}
	})
}

func TestFindPageSortPrecedence(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository[entity.Member]) {
		ctx := context.Background()
		seed(t, repo, 30, 10, 30, 20)

		req, _ := types.NewPageRequest(0, 10, types.Desc("age"))
		spec := query.Everything().OrderBy(types.Desc("username"))
		page, err := repo.FindPage(ctx, spec, req)
		if err != nil {
			t.Fatalf("find page: %v", err)
		}
		if want := []string{"member3", "member1", "member4", "member2"}; !equalStrings(usernames(page.Content()), want) {
			t.Errorf("got %v, want %v", usernames(page.Content()), want)
		}
	})
}

func TestFindSlice(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository[entity.Member]) {
		ctx := context.Background()
		seed(t, repo, 1, 2, 3, 4, 5)

		req, _ := types.NewPageRequest(0, 2, types.Asc("age"))
		slice, err := repo.FindSlice(ctx, query.Everything(), req)
		if err != nil {
			t.Fatalf("find slice: %v", err)
		}
		if slice.NumberOfElements() != 2 || !slice.HasNext() {
			t.Errorf("first slice: %d elements, next %v", slice.NumberOfElements(), slice.HasNext())
		}
		last, _ := repo.FindSlice(ctx, query.Everything(), req.Next().Next())
		if last.NumberOfElements() != 1 || last.HasNext() {
			t.Errorf("last slice: %d elements, next %v", last.NumberOfElements(), last.HasNext())
		}

		for _, page := range []int{math.MaxInt/2 + 1, math.MaxInt} {
			huge, _ := types.NewPageRequest(page, 2)
			far, err := repo.FindSlice(ctx, query.Everything(), huge)
			if err != nil || far.NumberOfElements() != 0 || far.HasNext() {
				t.Errorf("slice %d: %v, %d elements, next %v", page, err, far.NumberOfElements(), far.HasNext())
			}
		}
	})
}

func TestInvalidPageRequest(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository[entity.Member]) {
		var req *types.PageRequest
		if _, err := repo.FindPage(context.Background(), query.Everything(), req); !types.IsInvalidPageRequest(err) {
			t.Errorf("nil request: got %v", err)
		}
	})
}

func TestCountOperationsAreObserved(t *testing.T) {
	stores := map[string]Repository[entity.Member]{
		memoryBackend: NewMemoryRepository(entity.MemberSchema),
		sqlBackend:    NewBunRepository(newSQLiteDB(t), entity.MemberSchema),
	}
	ctx := context.Background()
	for backend, repo := range stores {
		for _, op := range []string{"count", "count_where", "exists"} {
			before := testutil.ToFloat64(metrics.OperationsTotal.WithLabelValues(backend, op, "ok"))
			switch op {
			case "count":
				_, _ = repo.Count(ctx)
			case "count_where":
				_, _ = repo.CountWhere(ctx, query.Everything())
			case "exists":
				_, _ = repo.Exists(ctx, query.Everything())
			}
			after := testutil.ToFloat64(metrics.OperationsTotal.WithLabelValues(backend, op, "ok"))
			if after-before != 1 {
				t.Errorf("%s %s counter moved by %v, want 1", backend, op, after-before)
			}
		}
	}
}

func TestCountWhereAndExists(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository[entity.Member]) {
		ctx := context.Background()
		seed(t, repo, 10, 20, 30)

		n, err := repo.CountWhere(ctx, query.Where(query.Gt("age", 15)))
		if err != nil || n != 2 {
			t.Errorf("count where = %d, %v; want 2", n, err)
		}
		ok, err := repo.Exists(ctx, query.Where(query.Eq("username", "member3")))
		if err != nil || !ok {
			t.Errorf("exists = %v, %v", ok, err)
		}
		ok, _ = repo.Exists(ctx, query.Where(query.Eq("username", "nobody")))
		if ok {
			t.Error("exists for absent username")
		}
	})
}

func TestBulkUpdate(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository[entity.Member]) {
		ctx := context.Background()
		seed(t, repo, 10, 19, 20, 21, 40)

		n, err := repo.BulkUpdate(ctx, query.Gte("age", 20), query.Increment("age", 1))
		if err != nil {
			t.Fatalf("bulk update: %v", err)
		}
		if n != 3 {
			t.Errorf("affected = %d, want 3", n)
		}
		all, _ := repo.FindAll(ctx)
		want := []int{10, 19, 21, 22, 41}
		for i, m := range all {
			if m.Age != want[i] {
				t.Errorf("%s age = %d, want %d", m.Username, m.Age, want[i])
			}
		}

		n, err = repo.BulkUpdate(ctx, query.Eq("age", 10), query.Set("username", "kid"), query.Set("teamId", 7))
		if err != nil || n != 1 {
			t.Fatalf("bulk set: %d, %v", n, err)
		}
		kid, _ := repo.FindOne(ctx, query.Where(query.Eq("username", "kid")))
		if kid == nil || kid.TeamID != 7 {
			t.Errorf("bulk set not applied: %+v", kid)
		}

		n, err = repo.BulkUpdate(ctx, query.Eq("age", 1000), query.Increment("age", 1))
		if err != nil || n != 0 {
			t.Errorf("no match: %d, %v", n, err)
		}
	})
}

func TestBulkUpdateRejectsBeforeWriting(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository[entity.Member]) {
		ctx := context.Background()
		seed(t, repo, 10, 20)

		cases := []struct {
			name      string
			where     query.Predicate
			mutations []query.Mutation
			check     func(error) bool
		}{
			{"no mutations", query.All(), nil, query.IsInvalidMutation},
			{"identity", query.All(), []query.Mutation{query.Set("id", 1)}, query.IsInvalidMutation},
			{"increment string", query.All(), []query.Mutation{query.Increment("age", 1), query.Increment("username", 1)}, query.IsInvalidMutation},
			{"unknown field", query.All(), []query.Mutation{query.Set("nickname", "x")}, query.IsInvalidMutation},
			{"bad predicate", query.Eq("nickname", "x"), []query.Mutation{query.Increment("age", 1)}, query.IsUnresolvableQuery},
		}
		for _, tc := range cases {
			if _, err := repo.BulkUpdate(ctx, tc.where, tc.mutations...); !tc.check(err) {
				t.Errorf("%s: unexpected error %v", tc.name, err)
			}
		}
		all, _ := repo.FindAll(ctx)
		if all[0].Age != 10 || all[1].Age != 20 {
			t.Errorf("records changed by rejected updates: %d, %d", all[0].Age, all[1].Age)
		}
	})
}
