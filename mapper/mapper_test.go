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

package mapper

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datajpa/entity"
	"github.com/tomoncle/datajpa/types"
)

func TestToMemberDtoKeepsProjectedFields(t *testing.T) {
	team := &entity.Team{ID: 7, Name: "teamA"}
	m := &entity.Member{ID: 3, Name: "member1", Age: 10, Team: team}

	dto, err := ToMemberDto(m)
	require.NoError(t, err)
	require.Equal(t, m.ID, dto.ID)
	require.Equal(t, m.Name, dto.Name)
	require.Equal(t, team.Name, dto.TeamName)
}

func TestToMemberDtoWithoutTeam(t *testing.T) {
	dto, err := ToMemberDto(&entity.Member{ID: 1, Name: "solo"})
	require.NoError(t, err)
	require.Empty(t, dto.TeamName)

	dto, err = ToMemberDtoWithTeam(&entity.Member{ID: 1, Name: "solo"}, &entity.Team{ID: 2, Name: "teamB"})
	require.NoError(t, err)
	require.Equal(t, "teamB", dto.TeamName)
}

func TestMalformedInput(t *testing.T) {
	cases := []struct {
		name string
		run  func() error
	}{
		{"nil member", func() error { _, err := ToMemberDto(nil); return err }},
		{"zero id", func() error { _, err := ToMemberDto(&entity.Member{Name: "a"}); return err }},
		{"blank name", func() error { _, err := ToMemberDtoWithTeam(&entity.Member{ID: 1, Name: "  "}, nil); return err }},
		{"nil row", func() error { _, err := FromMemberTeamRow(nil); return err }},
		{"row without id", func() error { _, err := FromMemberTeamRow(&entity.MemberTeamRow{Name: "a"}); return err }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, tc.run(), types.ErrInvalidProjection)
		})
	}
}

func TestToMemberDtosStopsAtFirstError(t *testing.T) {
	dtos, err := ToMemberDtos([]*entity.Member{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}})
	require.NoError(t, err)
	require.Len(t, dtos, 2)

	_, err = ToMemberDtos([]*entity.Member{{ID: 1, Name: "a"}, nil})
	require.True(t, types.IsInvalidProjection(err))
}

func TestMapPaginationToDtos(t *testing.T) {
	page := types.NewDefaultPagination[entity.Member](2, 2)
	page.Total = 3
	page.Items = []*entity.Member{{ID: 3, Name: "c"}}

	out, err := types.MapPagination(page, ToMemberDto)
	require.NoError(t, err)
	require.Equal(t, 2, out.Page)
	require.Equal(t, 3, out.Total)
	require.Equal(t, "c", out.Items[0].Name)
	require.True(t, out.IsLast())
}
