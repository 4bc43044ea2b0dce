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
	"context"

	"github.com/tomoncle/datajpa/entity"
	"github.com/tomoncle/datajpa/query"
	"github.com/tomoncle/datajpa/scope"
	"github.com/tomoncle/datajpa/types"
)

type TeamFinder interface {
	FindByID(ctx context.Context, id int64) (*entity.Team, bool, error)
}

type MemberFinder interface {
	Find(ctx context.Context, d query.Descriptor) ([]*entity.Member, error)
}

// Resolver keeps Member.Team, Member.TeamID and Team.Members consistent and
// resolves member references to their team.
type Resolver struct {
	teams   TeamFinder
	members MemberFinder
}

func NewResolver(teams TeamFinder, members MemberFinder) *Resolver {
	return &Resolver{teams: teams, members: members}
}

// SetReference points child at parent and adds child to parent.Members.
// Setting the current parent again changes nothing; a previous parent loses
// child from its members. A nil parent clears the reference.
func (r *Resolver) SetReference(child *entity.Member, parent *entity.Team) error {
	if child == nil {
		return types.Errorf(types.ErrInvalidQuery, "nil member reference")
	}
	if parent == nil {
		r.ClearReference(child)
		return nil
	}
	Attach(child, parent)
	return nil
}

// ClearReference detaches child from its team on both sides.
func (r *Resolver) ClearReference(child *entity.Member) {
	Detach(child)
}

// Resolve returns the team reference of child. FetchEager loads it now,
// unless it was already joined. FetchLazy binds an unresolved reference to
// the request scope of ctx; loading it caches the team on child.
func (r *Resolver) Resolve(ctx context.Context, child *entity.Member, policy types.FetchPolicy) (*Ref[entity.Team], error) {
	if child == nil {
		return nil, types.Errorf(types.ErrInvalidQuery, "resolve of nil member")
	}
	if !policy.IsValid() {
		return nil, types.Errorf(types.ErrInvalidQuery, "unknown fetch policy %d", policy)
	}
	if child.Team != nil {
		return Resolved(child.Team.ID, child.Team), nil
	}
	if child.TeamID == nil {
		return Resolved[entity.Team](0, nil), nil
	}
	id := *child.TeamID

	if policy == types.FetchEager {
		team, err := r.loadTeam(ctx, child, id)
		if err != nil {
			return nil, err
		}
		return Resolved(id, team), nil
	}

	sc := scope.FromContext(ctx)
	if sc.Closed() {
		return nil, types.Errorf(types.ErrDetachedReference, "lazy reference without an open scope")
	}
	return Unresolved(id, sc, func(ctx context.Context, id int64) (*entity.Team, error) {
		return r.loadTeam(ctx, child, id)
	}), nil
}

func (r *Resolver) loadTeam(ctx context.Context, child *entity.Member, id int64) (*entity.Team, error) {
	team, ok, err := r.teams.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.NewError(types.ErrNotFound, "resolve", entity.TeamTable)
	}
	Attach(child, team)
	return team, nil
}

// LoadMembers materialises team.Members from the store and points every
// loaded member back at team.
func (r *Resolver) LoadMembers(ctx context.Context, team *entity.Team) ([]*entity.Member, error) {
	if team == nil || team.ID == 0 {
		return []*entity.Member{}, nil
	}
	d, err := query.New(entity.MemberSchema, query.Where(query.Eq("team_id", team.ID)))
	if err != nil {
		return nil, err
	}
	members, err := r.members.Find(ctx, d)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		Attach(m, team)
	}
	return members, nil
}
