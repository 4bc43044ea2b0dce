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

package relation

import (
	"github.com/tomoncle/datajpa/entity"
	"github.com/tomoncle/datajpa/scope"
)

// Attach points child at parent and adds child to parent.Members, removing
// it from a previous parent. Every write of Member.Team goes through Attach
// or Detach so that a set team always lists the member.
func Attach(child *entity.Member, parent *entity.Team) {
	if child == nil || parent == nil {
		return
	}
	if old := child.Team; old != nil && old != parent {
		removeMember(old, child)
	}
	child.Team = parent
	if parent.ID != 0 {
		id := parent.ID
		child.TeamID = &id
	} else {
		// assigned from the team when the member is written
		child.TeamID = nil
	}
	if !containsMember(parent, child) {
		parent.Members = append(parent.Members, child)
	}
}

// Detach clears the team of child on both sides.
func Detach(child *entity.Member) {
	if child == nil {
		return
	}
	if child.Team != nil {
		removeMember(child.Team, child)
	}
	child.Team = nil
	child.TeamID = nil
}

// LinkJoined attaches members scanned with their team joined. Members of one
// team end up sharing a single team instance: the one tracked by sc when
// there is one, otherwise the first joined copy, which sc then tracks. A nil
// sc links within members only.
func LinkJoined(sc *scope.Scope, members []*entity.Member) {
	teams := make(map[int64]*entity.Team)
	for _, m := range members {
		if m == nil || m.Team == nil || m.Team.ID == 0 {
			continue
		}
		team, ok := teams[m.Team.ID]
		if !ok {
			team = m.Team
			if v, hit := sc.Get(entity.TeamTable, team.ID); hit {
				if cached, isTeam := v.(*entity.Team); isTeam {
					team = cached
				}
			} else {
				_ = sc.Put(entity.TeamTable, team.ID, team)
			}
			teams[team.ID] = team
		}
		Attach(m, team)
	}
}

func containsMember(t *entity.Team, m *entity.Member) bool {
	for _, x := range t.Members {
		if x == m {
			return true
		}
	}
	return false
}

func removeMember(t *entity.Team, m *entity.Member) {
	kept := t.Members[:0]
	for _, x := range t.Members {
		if x != m {
			kept = append(kept, x)
		}
	}
	t.Members = kept
}
