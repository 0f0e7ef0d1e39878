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

	"github.com/tomoncle/roster/entity"
	"github.com/tomoncle/roster/query"
	"github.com/tomoncle/roster/repository"
)

// TeamRepository is the team store. Deleting a team leaves its members'
// TeamID in place; use MemberRepository.DetachTeam to clear it.
type TeamRepository struct {
	repository.Repository[entity.Team]
	*Derived[entity.Team]
}

func newTeamRepository(repo repository.Repository[entity.Team]) *TeamRepository {
	return &TeamRepository{Repository: repo, Derived: NewDerived(repo)}
}

func (r *TeamRepository) FindByName(ctx context.Context, name string) (*entity.Team, error) {
	return r.FindOne(ctx, query.Where(query.Eq("name", name)))
}
