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
	"github.com/uptrace/bun/dialect"

	"github.com/tomoncle/roster/database"
	"github.com/tomoncle/roster/entity"
	"github.com/tomoncle/roster/repository"
)

// MemberIndexesVersion is the migration adding the member lookup indexes.
const MemberIndexesVersion = "001"

func init() {
	database.RegisterModel(database.NewModelAdapter((*entity.Team)(nil), 10))
	database.RegisterModel(database.NewModelAdapter((*entity.Member)(nil), 20))
	database.RegisterMigration(database.MigrationItem{
		Version:     MemberIndexesVersion,
		Name:        "member_indexes",
		Description: "index member username and team_id",
		Up:          createMemberIndexes,
		Down:        dropMemberIndexes,
	})
}

var memberIndexes = []struct {
	name   string
	column string
}{
	{"idx_member_username", "username"},
	{"idx_member_team_id", "team_id"},
}

func createMemberIndexes(ctx context.Context, db bun.IDB) error {
	for _, idx := range memberIndexes {
		_, err := db.NewCreateIndex().
			Model((*entity.Member)(nil)).
			Index(idx.name).
			Column(idx.column).
			Exec(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

func dropMemberIndexes(ctx context.Context, db bun.IDB) error {
	for _, idx := range memberIndexes {
		var err error
		if db.Dialect().Name() == dialect.MySQL {
			_, err = db.NewRaw("DROP INDEX ? ON ?", bun.Ident(idx.name), bun.Ident(entity.MemberSchema.Table())).Exec(ctx)
		} else {
			_, err = db.NewDropIndex().Index(idx.name).IfExists().Exec(ctx)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Store holds the member and team repositories of one backend.
type Store struct {
	Members *MemberRepository
	Teams   *TeamRepository
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Store {
	teams := repository.NewMemoryRepository(entity.TeamSchema)
	members := repository.NewMemoryRepository(entity.MemberSchema)
	return &Store{
		Members: newMemberRepository(members, teams, nil),
		Teams:   newTeamRepository(teams),
	}
}

// NewSQL returns a store over db. The tables must exist; run the database
// migrations first.
func NewSQL(db bun.IDB) *Store {
	teams := repository.NewBunRepository(db, entity.TeamSchema)
	members := repository.NewBunRepository(db, entity.MemberSchema)
	return &Store{
		Members: newMemberRepository(members, teams, db),
		Teams:   newTeamRepository(teams),
	}
}
