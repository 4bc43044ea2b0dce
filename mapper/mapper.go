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

// Package mapper turns records into MemberDto projections. The functions
// are pure and never touch the store.
package mapper

import (
	"strings"

	"github.com/tomoncle/datajpa/entity"
	"github.com/tomoncle/datajpa/types"
)

func invalid(field string) error {
	return types.NewFieldError(types.ErrInvalidProjection, "project", "member_dto", field)
}

func project(id int64, name, teamName string) (*entity.MemberDto, error) {
	if id == 0 {
		return nil, invalid("id")
	}
	if strings.TrimSpace(name) == "" {
		return nil, invalid("name")
	}
	return &entity.MemberDto{ID: id, Name: name, TeamName: teamName}, nil
}

// ToMemberDto projects m. The team name is filled when the team is loaded.
func ToMemberDto(m *entity.Member) (*entity.MemberDto, error) {
	if m == nil {
		return nil, invalid("member")
	}
	teamName := ""
	if m.Team != nil {
		teamName = m.Team.Name
	}
	return project(m.ID, m.Name, teamName)
}

// ToMemberDtoWithTeam projects m joined with t. A nil team leaves the team
// name empty.
func ToMemberDtoWithTeam(m *entity.Member, t *entity.Team) (*entity.MemberDto, error) {
	if m == nil {
		return nil, invalid("member")
	}
	teamName := ""
	if t != nil {
		teamName = t.Name
	}
	return project(m.ID, m.Name, teamName)
}

func ToMemberDtos(members []*entity.Member) ([]*entity.MemberDto, error) {
	out := make([]*entity.MemberDto, 0, len(members))
	for _, m := range members {
		dto, err := ToMemberDto(m)
		if err != nil {
			return nil, err
		}
		out = append(out, dto)
	}
	return out, nil
}

// FromMemberTeamRow projects one row of the member/team join.
func FromMemberTeamRow(row *entity.MemberTeamRow) (*entity.MemberDto, error) {
	if row == nil {
		return nil, invalid("row")
	}
	return project(row.ID, row.Name, row.TeamName)
}
