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
	MemberTable = "member"
	// TeamRelation is the name of the Member to Team join.
	TeamRelation = "Team"
)

// Member belongs to at most one Team. Team and TeamID are written together by
// relation.Resolver; the exported fields exist for the Bun mapping.
type Member struct {
	bun.BaseModel `bun:"table:member,alias:m"`

	ID     int64  `bun:"member_id,pk,autoincrement" json:"id"`
	Name   string `bun:"name,notnull" json:"name"`
	Age    int    `bun:"age,notnull" json:"age"`
	TeamID *int64 `bun:"team_id" json:"team_id,omitempty"`
	Team   *Team  `bun:"rel:belongs-to,join:team_id=team_id" json:"team,omitempty"`
	BaseEntity
}

// MemberSchema lists the columns and relations member queries may reference.
var MemberSchema = query.NewSchema(MemberTable, "member_id",
	[]string{"name", "age", "team_id", "created_at", "updated_at"},
	TeamRelation,
)

// NewMember builds an unsaved member. Use relation.Resolver to attach a team.
func NewMember(name string, age int) *Member {
	return &Member{Name: name, Age: age}
}

func (m *Member) GetID() int64 { return m.ID }

func (m *Member) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return types.NewFieldError(types.ErrConstraintViolation, "validate", MemberTable, "name")
	}
	if m.Age < 0 {
		return types.NewFieldError(types.ErrConstraintViolation, "validate", MemberTable, "age")
	}
	return nil
}

func (m *Member) String() string {
	return fmt.Sprintf("Member(id=%d, name=%s, age=%d)", m.ID, m.Name, m.Age)
}
