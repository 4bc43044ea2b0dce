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

// MemberDto is the external shape of a member. It is built per query result
// and never persisted.
type MemberDto struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	TeamName string `json:"team_name,omitempty"`
}

// MemberTeamRow is the store-level result of joining member with team.
type MemberTeamRow struct {
	ID       int64  `bun:"member_id"`
	Name     string `bun:"name"`
	TeamName string `bun:"team_name"`
}
