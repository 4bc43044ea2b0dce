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
	"fmt"
	"strings"

	"github.com/tomoncle/datajpa/query"
	"github.com/tomoncle/datajpa/types"
	"github.com/uptrace/bun"
)

const (
	TeamTable = "team"
	// MembersRelation is the name of the Team to Member back reference.
	MembersRelation = "Members"
)

// Team is referenced by its members. Members is a logical back reference; it
// is only populated when loaded or written through relation.Resolver.
type Team struct {
	bun.BaseModel `bun:"table:team,alias:t"`

	ID      int64     `bun:"team_id,pk,autoincrement" json:"id"`
	Name    string    `bun:"name,notnull" json:"name"`
	Members []*Member `bun:"rel:has-many,join:team_id=team_id" json:"-"`
	BaseEntity
}

var TeamSchema = query.NewSchema(TeamTable, "team_id",
	[]string{"name", "created_at", "updated_at"},
	MembersRelation,
)

func NewTeam(name string) *Team {
	return &Team{Name: name}
}

func (t *Team) GetID() int64 { return t.ID }

func (t *Team) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return types.NewFieldError(types.ErrConstraintViolation, "validate", TeamTable, "name")
	}
	return nil
}

func (t *Team) String() string {
	return fmt.Sprintf("Team(id=%d, name=%s)", t.ID, t.Name)
}
