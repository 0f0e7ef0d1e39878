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

package entity

import (
	"github.com/uptrace/bun"

	"github.com/tomoncle/roster/query"
)

// Member is a person optionally belonging to a Team. TeamID 0 means no team.
type Member struct {
	bun.BaseModel `bun:"table:member,alias:m"`

	ID       int64  `bun:"id,pk,autoincrement" json:"id" yaml:"id"`
	Username string `bun:"username,notnull" json:"username" yaml:"username"`
	Age      int    `bun:"age,notnull" json:"age" yaml:"age"`
	TeamID   int64  `bun:"team_id,notnull,default:0" json:"team_id,omitempty" yaml:"team_id,omitempty"`
}

// NewMember returns an unsaved member.
func NewMember(username string, age int, team *Team) *Member {
	m := &Member{Username: username, Age: age}
	if team != nil {
		m.TeamID = team.ID
	}
	return m
}

// ChangeTeam moves the member to team, or out of any team when team is nil.
func (m *Member) ChangeTeam(team *Team) {
	if team == nil {
		m.TeamID = 0
		return
	}
	m.TeamID = team.ID
}

// Team groups members. Members reference a team; a team does not own them.
type Team struct {
	bun.BaseModel `bun:"table:team,alias:t"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id" yaml:"id"`
	Name string `bun:"name,notnull" json:"name" yaml:"name"`
}

func NewTeam(name string) *Team { return &Team{Name: name} }

// MemberDto is the member-with-team-name projection.
type MemberDto struct {
	ID       int64  `bun:"id" json:"id" yaml:"id"`
	Username string `bun:"username" json:"username" yaml:"username"`
	TeamName string `bun:"team_name" json:"team_name" yaml:"team_name"`
}

// MemberSchema is the query field table of Member.
var MemberSchema = query.NewSchema[Member]("member", "id",
	func(m *Member) int64 { return m.ID },
	func(m *Member, id int64) { m.ID = id },
	query.StringField[Member]("username", "username",
		func(m *Member) string { return m.Username },
		func(m *Member, v string) { m.Username = v }),
	query.IntField[Member]("age", "age",
		func(m *Member) int64 { return int64(m.Age) },
		func(m *Member, v int64) { m.Age = int(v) }),
	query.IntField[Member]("teamId", "team_id",
		func(m *Member) int64 { return m.TeamID },
		func(m *Member, v int64) { m.TeamID = v }),
)

// TeamSchema is the query field table of Team.
var TeamSchema = query.NewSchema[Team]("team", "id",
	func(t *Team) int64 { return t.ID },
	func(t *Team, id int64) { t.ID = id },
	query.StringField[Team]("name", "name",
		func(t *Team) string { return t.Name },
		func(t *Team, v string) { t.Name = v }),
)
