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

	"github.com/uptrace/bun"

	"github.com/tomoncle/roster/entity"
	"github.com/tomoncle/roster/query"
	"github.com/tomoncle/roster/repository"
	"github.com/tomoncle/roster/types"
)

// MemberRepository is the member store plus the member queries the
// application needs. The generic operations come from the embedded
// repository, method-name queries from the embedded Derived.
type MemberRepository struct {
	repository.Repository[entity.Member]
	*Derived[entity.Member]

	teams repository.Repository[entity.Team]
	db    bun.IDB
}

func newMemberRepository(repo repository.Repository[entity.Member], teams repository.Repository[entity.Team], db bun.IDB) *MemberRepository {
	return &MemberRepository{
		Repository: repo,
		Derived:    NewDerived(repo),
		teams:      teams,
		db:         db,
	}
}

func (r *MemberRepository) FindByUsernameAndAgeGreaterThan(ctx context.Context, username string, age int) ([]*entity.Member, error) {
	return r.FindBy(ctx, "findByUsernameAndAgeGreaterThan", username, age)
}

func (r *MemberRepository) FindByUsername(ctx context.Context, username string) ([]*entity.Member, error) {
	return r.Find(ctx, query.Where(query.Eq("username", username)))
}

// FindUser matches username and age exactly.
func (r *MemberRepository) FindUser(ctx context.Context, username string, age int) ([]*entity.Member, error) {
	return r.Find(ctx, query.Where(query.Eq("username", username)).And(query.Eq("age", age)))
}

// FindUsernameList returns every username in natural order.
func (r *MemberRepository) FindUsernameList(ctx context.Context) ([]string, error) {
	members, err := r.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return query.PluckStrings(r.Schema(), members, "username")
}

func (r *MemberRepository) FindByNames(ctx context.Context, names []string) ([]*entity.Member, error) {
	return r.Find(ctx, query.Where(query.In("username", names)))
}

func (r *MemberRepository) FindMemberListByUsername(ctx context.Context, username string) ([]*entity.Member, error) {
	return r.FindByUsername(ctx, username)
}

// FindMemberByUsername returns nil, nil when nobody has username and an
// IncorrectResultSizeError when several members do.
func (r *MemberRepository) FindMemberByUsername(ctx context.Context, username string) (*entity.Member, error) {
	return r.FindOne(ctx, query.Where(query.Eq("username", username)))
}

func (r *MemberRepository) FindOptionalMemberByUsername(ctx context.Context, username string) (*entity.Member, bool, error) {
	m, err := r.FindMemberByUsername(ctx, username)
	if err != nil {
		return nil, false, err
	}
	return m, m != nil, nil
}

func (r *MemberRepository) FindByAge(ctx context.Context, age int, req *types.PageRequest) (*types.Page[entity.Member], error) {
	return r.FindPage(ctx, query.Where(query.Eq("age", age)), req)
}

func (r *MemberRepository) SliceByAge(ctx context.Context, age int, req *types.PageRequest) (*types.Slice[entity.Member], error) {
	return r.FindSlice(ctx, query.Where(query.Eq("age", age)), req)
}

// BulkAgePlus adds one to the age of every member aged age or older and
// returns how many members were updated.
func (r *MemberRepository) BulkAgePlus(ctx context.Context, age int) (int64, error) {
	return r.BulkUpdate(ctx, query.Gte("age", age), query.Increment("age", 1))
}

// DetachTeam moves every member of teamID out of any team.
func (r *MemberRepository) DetachTeam(ctx context.Context, teamID int64) (int64, error) {
	if teamID == 0 {
		return 0, nil
	}
	return r.BulkUpdate(ctx, query.Eq("teamId", teamID), query.Set("teamId", 0))
}

// FindMemberDto joins members with their team. Members without a team, or
// whose team no longer exists, are left out.
func (r *MemberRepository) FindMemberDto(ctx context.Context) ([]*entity.MemberDto, error) {
	if r.db != nil {
		dtos := make([]*entity.MemberDto, 0)
		err := r.db.NewSelect().
			TableExpr("? AS m", bun.Ident(entity.MemberSchema.Table())).
			Join("JOIN ? AS t ON t.id = m.team_id", bun.Ident(entity.TeamSchema.Table())).
			ColumnExpr("m.id, m.username, t.name AS team_name").
			OrderExpr("m.id ASC").
			Scan(ctx, &dtos)
		return dtos, err
	}

	teams, err := r.teams.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(teams))
	for _, t := range teams {
		names[t.ID] = t.Name
	}
	members, err := r.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	dtos := make([]*entity.MemberDto, 0, len(members))
	for _, m := range members {
		name, ok := names[m.TeamID]
		if !ok {
			continue
		}
		dtos = append(dtos, &entity.MemberDto{ID: m.ID, Username: m.Username, TeamName: name})
	}
	return dtos, nil
}
