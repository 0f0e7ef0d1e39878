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
	"database/sql"
	"testing"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/tomoncle/roster/database"
	"github.com/tomoncle/roster/entity"
	"github.com/tomoncle/roster/query"
	"github.com/tomoncle/roster/repository"
	"github.com/tomoncle/roster/session"
	"github.com/tomoncle/roster/types"
)

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	if err := database.NewMigrationManager(db, nil).RunMigrations(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewSQL(db)
}

func forEachStore(t *testing.T, fn func(t *testing.T, store *Store)) {
	stores := []struct {
		name string
		new  func(t *testing.T) *Store
	}{
		{"memory", func(t *testing.T) *Store { return NewMemory() }},
		{"sqlite", newSQLiteStore},
	}
	for _, s := range stores {
		t.Run(s.name, func(t *testing.T) {
			fn(t, s.new(t))
		})
	}
}

func save(t *testing.T, store *Store, members ...*entity.Member) {
	t.Helper()
	for _, m := range members {
		if err := store.Members.Save(context.Background(), m); err != nil {
			t.Fatalf("save %s: %v", m.Username, err)
		}
	}
}

func TestBasicCRUD(t *testing.T) {
	forEachStore(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		m1 := entity.NewMember("member1", 0, nil)
		m2 := entity.NewMember("member2", 0, nil)
		save(t, store, m1, m2)

		found1, err := store.Members.FindByID(ctx, m1.ID)
		if err != nil || found1 == nil || *found1 != *m1 {
			t.Fatalf("find member1: %+v, %v", found1, err)
		}
		found2, _ := store.Members.FindByID(ctx, m2.ID)
		if found2 == nil || *found2 != *m2 {
			t.Fatalf("find member2: %+v", found2)
		}

		all, _ := store.Members.FindAll(ctx)
		if len(all) != 2 {
			t.Errorf("find all = %d, want 2", len(all))
		}
		if n, _ := store.Members.Count(ctx); n != 2 {
			t.Errorf("count = %d, want 2", n)
		}

		for _, m := range []*entity.Member{m1, m2} {
			if err := store.Members.Delete(ctx, m.ID); err != nil {
				t.Fatalf("delete: %v", err)
			}
		}
		if all, _ := store.Members.FindAll(ctx); len(all) != 0 {
			t.Errorf("find all after delete = %d, want 0", len(all))
		}
	})
}

func TestFindByUsernameAndAgeGreaterThan(t *testing.T) {
	forEachStore(t, func(t *testing.T, store *Store) {
		m1 := entity.NewMember("AAA", 10, nil)
		m2 := entity.NewMember("AAA", 20, nil)
		save(t, store, m1, m2)
		m1.Username = "changed after save"

		result, err := store.Members.FindByUsernameAndAgeGreaterThan(context.Background(), "AAA", 15)
		if err != nil {
			t.Fatal(err)
		}
		if len(result) != 1 || result[0].Username != "AAA" || result[0].Age != 20 {
			t.Errorf("unexpected result: %+v", result)
		}
	})
}

func TestFindByUsernameAndFindUser(t *testing.T) {
	forEachStore(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		m1 := entity.NewMember("AAA", 10, nil)
		m2 := entity.NewMember("BBB", 20, nil)
		save(t, store, m1, m2)

		byName, err := store.Members.FindByUsername(ctx, "AAA")
		if err != nil || len(byName) != 1 || *byName[0] != *m1 {
			t.Errorf("find by username: %+v, %v", byName, err)
		}
		user, err := store.Members.FindUser(ctx, "AAA", 10)
		if err != nil || len(user) != 1 || *user[0] != *m1 {
			t.Errorf("find user: %+v, %v", user, err)
		}
		if none, _ := store.Members.FindUser(ctx, "AAA", 20); len(none) != 0 {
			t.Errorf("find user with wrong age: %+v", none)
		}
	})
}

func TestFindUsernameListAndNames(t *testing.T) {
	forEachStore(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		save(t, store, entity.NewMember("AAA", 10, nil), entity.NewMember("BBB", 20, nil), entity.NewMember("CCC", 30, nil))

		names, err := store.Members.FindUsernameList(ctx)
		if err != nil || len(names) != 3 || names[0] != "AAA" || names[2] != "CCC" {
			t.Errorf("username list: %v, %v", names, err)
		}
		byNames, err := store.Members.FindByNames(ctx, []string{"AAA", "BBB"})
		if err != nil || len(byNames) != 2 {
			t.Errorf("find by names: %+v, %v", byNames, err)
		}
	})
}

func TestFindMemberDto(t *testing.T) {
	forEachStore(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		teamA := entity.NewTeam("teamA")
		if err := store.Teams.Save(ctx, teamA); err != nil {
			t.Fatal(err)
		}
		withTeam := entity.NewMember("AAA", 10, teamA)
		save(t, store, withTeam, entity.NewMember("loner", 20, nil))

		dtos, err := store.Members.FindMemberDto(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(dtos) != 1 {
			t.Fatalf("dtos = %+v, want one", dtos)
		}
		want := entity.MemberDto{ID: withTeam.ID, Username: "AAA", TeamName: "teamA"}
		if *dtos[0] != want {
			t.Errorf("dto = %+v, want %+v", *dtos[0], want)
		}
	})
}

func TestReturnTypes(t *testing.T) {
	forEachStore(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		save(t, store, entity.NewMember("AAA", 10, nil), entity.NewMember("BBB", 20, nil))

		list, _ := store.Members.FindMemberListByUsername(ctx, "nobody")
		if list == nil || len(list) != 0 {
			t.Errorf("list result must be empty, not nil: %#v", list)
		}
		one, err := store.Members.FindMemberByUsername(ctx, "AAA")
		if err != nil || one == nil || one.Age != 10 {
			t.Errorf("single result: %+v, %v", one, err)
		}
		missing, err := store.Members.FindMemberByUsername(ctx, "nobody")
		if err != nil || missing != nil {
			t.Errorf("absent single result: %+v, %v", missing, err)
		}
		_, ok, err := store.Members.FindOptionalMemberByUsername(ctx, "nobody")
		if err != nil || ok {
			t.Errorf("optional absent: %v, %v", ok, err)
		}

		save(t, store, entity.NewMember("AAA", 30, nil))
		if _, err := store.Members.FindMemberByUsername(ctx, "AAA"); !repository.IsIncorrectResultSize(err) {
			t.Errorf("expected incorrect result size, got %v", err)
		}
	})
}

func TestPaging(t *testing.T) {
	forEachStore(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		for _, name := range []string{"member1", "member2", "member7", "member8", "member3", "member4", "member5"} {
			save(t, store, entity.NewMember(name, 10, nil))
		}
		req, _ := types.NewPageRequest(0, 3, types.Desc("username"))

		page, err := store.Members.FindByAge(ctx, 10, req)
		if err != nil {
			t.Fatal(err)
		}
		if len(page.Content()) != 3 || page.TotalElements() != 7 || page.Number() != 0 || page.TotalPages() != 3 {
			t.Errorf("page: %d items, %d total, number %d, %d pages", len(page.Content()), page.TotalElements(), page.Number(), page.TotalPages())
		}
		if !page.IsFirst() || !page.HasNext() {
			t.Errorf("first %v, next %v", page.IsFirst(), page.HasNext())
		}
		if page.Content()[0].Username != "member8" {
			t.Errorf("first element %s, want member8", page.Content()[0].Username)
		}

		sreq, _ := types.NewPageRequest(0, 4, types.Desc("username"))
		slice, err := store.Members.SliceByAge(ctx, 10, sreq)
		if err != nil {
			t.Fatal(err)
		}
		if slice.NumberOfElements() != 4 || slice.Number() != 0 || !slice.IsFirst() || !slice.HasNext() {
			t.Errorf("slice: %d items, number %d, first %v, next %v", slice.NumberOfElements(), slice.Number(), slice.IsFirst(), slice.HasNext())
		}
	})
}

func TestBulkAgePlus(t *testing.T) {
	forEachStore(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		save(t, store,
			entity.NewMember("member1", 10, nil),
			entity.NewMember("member2", 19, nil),
			entity.NewMember("member3", 20, nil),
			entity.NewMember("member4", 22, nil),
			entity.NewMember("member5", 40, nil),
		)

		sess := session.New[entity.Member](store.Members)
		cached, _ := sess.Query(ctx, query.Where(query.Eq("username", "member5")))

		n, err := sess.BulkUpdate(ctx, query.Gte("age", 20), query.Increment("age", 1))
		if err != nil {
			t.Fatal(err)
		}
		if n != 3 {
			t.Errorf("affected = %d, want 3", n)
		}
		stale, _ := sess.Query(ctx, query.Where(query.Eq("username", "member5")))
		if stale[0] != cached[0] || stale[0].Age != 40 {
			t.Errorf("session age = %d, want stale 40", stale[0].Age)
		}

		sess.Clear()
		fresh, _ := sess.Query(ctx, query.Where(query.Eq("username", "member5")))
		if fresh[0].Age != 41 {
			t.Errorf("age after clear = %d, want 41", fresh[0].Age)
		}

		n, err = store.Members.BulkAgePlus(ctx, 100)
		if err != nil || n != 0 {
			t.Errorf("bulk with no match: %d, %v", n, err)
		}
	})
}

func TestTeamDeleteLeavesMembers(t *testing.T) {
	forEachStore(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		team := entity.NewTeam("teamA")
		if err := store.Teams.Save(ctx, team); err != nil {
			t.Fatal(err)
		}
		m := entity.NewMember("AAA", 10, team)
		save(t, store, m)

		if err := store.Teams.Delete(ctx, team.ID); err != nil {
			t.Fatal(err)
		}
		kept, _ := store.Members.FindByID(ctx, m.ID)
		if kept == nil || kept.TeamID != team.ID {
			t.Fatalf("member after team delete: %+v", kept)
		}
		if dtos, _ := store.Members.FindMemberDto(ctx); len(dtos) != 0 {
			t.Errorf("dangling member joined: %+v", dtos)
		}

		n, err := store.Members.DetachTeam(ctx, team.ID)
		if err != nil || n != 1 {
			t.Fatalf("detach: %d, %v", n, err)
		}
		kept, _ = store.Members.FindByID(ctx, m.ID)
		if kept.TeamID != 0 {
			t.Errorf("team id = %d after detach", kept.TeamID)
		}
		if found, _ := store.Teams.FindByName(ctx, "teamA"); found != nil {
			t.Errorf("deleted team found: %+v", found)
		}
	})
}

func TestDerivedQueries(t *testing.T) {
	forEachStore(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		save(t, store,
			entity.NewMember("AAA", 10, nil),
			entity.NewMember("BBB", 20, nil),
			entity.NewMember("CCC", 30, nil),
		)

		top, err := store.Members.FindBy(ctx, "findTop2ByAgeGreaterThanEqualOrderByAgeDesc", 10)
		if err != nil || len(top) != 2 || top[0].Username != "CCC" {
			t.Errorf("top2: %+v, %v", top, err)
		}
		n, err := store.Members.CountBy(ctx, "countByAgeLessThan", 30)
		if err != nil || n != 2 {
			t.Errorf("count: %d, %v", n, err)
		}
		ok, err := store.Members.ExistsBy(ctx, "existsByUsername", "BBB")
		if err != nil || !ok {
			t.Errorf("exists: %v, %v", ok, err)
		}
		in, err := store.Members.FindBy(ctx, "findByUsernameIn", []string{"AAA", "CCC"})
		if err != nil || len(in) != 2 {
			t.Errorf("in: %+v, %v", in, err)
		}

		if _, err := store.Members.FindBy(ctx, "countByAge", 10); !query.IsUnresolvableQuery(err) {
			t.Errorf("subject mismatch: %v", err)
		}
		if _, err := store.Members.FindBy(ctx, "findByNickname", "x"); !query.IsUnresolvableQuery(err) {
			t.Errorf("unknown property: %v", err)
		}
		if _, err := store.Members.FindBy(ctx, "findByUsernameOrAge", "AAA", 10); !query.IsUnresolvableQuery(err) {
			t.Errorf("or: %v", err)
		}

		res, err := store.Members.Invoke(ctx, "findByAgeIn", []string{"10,30"})
		if err != nil || res.Subject != query.SubjectFind || len(res.Records) != 2 {
			t.Errorf("invoke: %+v, %v", res, err)
		}
		res, err = store.Members.Invoke(ctx, "countByAgeGreaterThan", []string{"15"})
		if err != nil || res.Count != 2 {
			t.Errorf("invoke count: %+v, %v", res, err)
		}

		teams, err := store.Teams.FindBy(ctx, "findByName", "none")
		if err != nil || len(teams) != 0 {
			t.Errorf("team derived query: %+v, %v", teams, err)
		}
	})
}

func TestService(t *testing.T) {
	ctx := context.Background()
	svc := NewService(entity.MemberSchema)
	if _, err := svc.All(ctx); err != ErrDatabaseNotInitialized {
		t.Fatalf("expected ErrDatabaseNotInitialized, got %v", err)
	}

	cfg := database.DefaultConfig()
	cfg.ConnectionConfig.DBName = ":memory:"
	cfg.ConnectionConfig.HealthCheckInterval = 0
	if _, err := database.InitDB(ctx, cfg); err != nil {
		t.Fatalf("init database: %v", err)
	}
	defer func() { _ = database.CloseDB() }()

	m := entity.NewMember("svc", 33, nil)
	if err := svc.Save(ctx, m); err != nil {
		t.Fatal(err)
	}
	got, err := svc.Get(ctx, m.ID)
	if err != nil || got == nil || got.Username != "svc" {
		t.Fatalf("get: %+v, %v", got, err)
	}
	req, _ := types.NewPageRequest(0, 10)
	page, err := svc.Page(ctx, query.Everything(), req)
	if err != nil || page.TotalElements() != 1 {
		t.Errorf("page: %v, %v", page, err)
	}
	if n, err := svc.BulkUpdate(ctx, query.Eq("username", "svc"), query.Increment("age", 1)); err != nil || n != 1 {
		t.Errorf("bulk: %d, %v", n, err)
	}
	sess, err := svc.Session()
	if err != nil {
		t.Fatal(err)
	}
	if cached, _ := sess.Find(ctx, m.ID); cached == nil || cached.Age != 34 {
		t.Errorf("session find: %+v", cached)
	}
	if err := svc.Delete(ctx, m.ID); err != nil {
		t.Fatal(err)
	}
}
