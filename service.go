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

package datajpa

import (
	"context"

	"github.com/tomoncle/datajpa/database"
	"github.com/tomoncle/datajpa/entity"
	"github.com/tomoncle/datajpa/mapper"
	"github.com/tomoncle/datajpa/query"
	"github.com/tomoncle/datajpa/relation"
	"github.com/tomoncle/datajpa/repository"
	"github.com/tomoncle/datajpa/types"
	"github.com/uptrace/bun"
)

// MemberFilter narrows member listings. Zero values do not filter.
type MemberFilter struct {
	Name   string
	Age    *int
	MinAge *int
	TeamID *int64
}

func (f MemberFilter) predicate() query.Node {
	var nodes query.And
	if f.Name != "" {
		nodes = append(nodes, query.Eq("name", f.Name))
	}
	if f.Age != nil {
		nodes = append(nodes, query.Eq("age", *f.Age))
	}
	if f.MinAge != nil {
		nodes = append(nodes, query.Ge("age", *f.MinAge))
	}
	if f.TeamID != nil {
		nodes = append(nodes, query.Eq("team_id", *f.TeamID))
	}
	if len(nodes) == 0 {
		return nil
	}
	return nodes
}

// Service is the unit of work facade over the member and team stores.
// Multi step operations run in one transaction.
type Service struct {
	tx       database.Transactor
	members  *repository.MemberRepository
	teams    repository.Repository[entity.Team]
	resolver *relation.Resolver
}

// NewService wires the repositories and the resolver over db.
func NewService(db *bun.DB, opts ...repository.MemberOption) *Service {
	members := repository.NewMemberRepository(db, opts...)
	teams := repository.NewTeamRepository(db)
	return &Service{
		tx:       database.NewTxManager(db),
		members:  members,
		teams:    teams,
		resolver: relation.NewResolver(teams, members),
	}
}

func (s *Service) Members() *repository.MemberRepository { return s.members }

func (s *Service) Teams() repository.Repository[entity.Team] { return s.teams }

func (s *Service) Resolver() *relation.Resolver { return s.resolver }

// WithinTx runs fn in one transaction shared by every repository call made
// with the context it receives.
func (s *Service) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.tx.WithinTx(ctx, fn)
}

// CreateTeam stores a new team.
func (s *Service) CreateTeam(ctx context.Context, name string) (*entity.Team, error) {
	team := entity.NewTeam(name)
	if err := s.teams.Insert(ctx, team); err != nil {
		return nil, err
	}
	return team, nil
}

// RegisterMember stores a new member, attached to the team when teamID is
// set. A missing team fails with types.ErrNotFound and nothing is written.
func (s *Service) RegisterMember(ctx context.Context, name string, age int, teamID *int64) (*entity.Member, error) {
	member := entity.NewMember(name, age)
	err := s.WithinTx(ctx, func(ctx context.Context) error {
		if teamID != nil {
			team, err := s.teams.GetOne(ctx, *teamID)
			if err != nil {
				return err
			}
			if err := s.resolver.SetReference(member, team); err != nil {
				return err
			}
		}
		return s.members.Insert(ctx, member)
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// JoinTeam moves a member to another team.
func (s *Service) JoinTeam(ctx context.Context, memberID, teamID int64) (*entity.Member, error) {
	var member *entity.Member
	err := s.WithinTx(ctx, func(ctx context.Context) error {
		m, err := s.members.GetOne(ctx, memberID)
		if err != nil {
			return err
		}
		team, err := s.teams.GetOne(ctx, teamID)
		if err != nil {
			return err
		}
		if err := s.resolver.SetReference(m, team); err != nil {
			return err
		}
		member = m
		return s.members.Update(ctx, m)
	})
	return member, err
}

// LeaveTeam clears the team of a member.
func (s *Service) LeaveTeam(ctx context.Context, memberID int64) (*entity.Member, error) {
	var member *entity.Member
	err := s.WithinTx(ctx, func(ctx context.Context) error {
		m, err := s.members.GetOne(ctx, memberID)
		if err != nil {
			return err
		}
		if _, err := s.resolver.Resolve(ctx, m, types.FetchEager); err != nil {
			return err
		}
		s.resolver.ClearReference(m)
		member = m
		return s.members.Update(ctx, m)
	})
	return member, err
}

// GetMember projects one member with its team name.
func (s *Service) GetMember(ctx context.Context, id int64) (*entity.MemberDto, error) {
	m, err := s.members.GetOne(ctx, id)
	if err != nil {
		return nil, err
	}
	ref, err := s.resolver.Resolve(ctx, m, types.FetchEager)
	if err != nil {
		return nil, err
	}
	team, _ := ref.Get()
	return mapper.ToMemberDtoWithTeam(m, team)
}

// PageMembers pages member projections. The team is joined for the team
// name.
func (s *Service) PageMembers(ctx context.Context, filter MemberFilter, page *types.PageRequest, sorts ...query.Sort) (*types.Pagination[entity.MemberDto], error) {
	d, err := query.New(entity.MemberSchema,
		query.Where(filter.predicate()),
		query.OrderBy(sorts...),
		query.Page(page),
		query.Fetch(entity.TeamRelation),
		query.ReadOnly(),
	)
	if err != nil {
		return nil, err
	}
	p, err := s.members.Page(ctx, d)
	if err != nil {
		return nil, err
	}
	return types.MapPagination(p, mapper.ToMemberDto)
}

// MemberDtos lists the members that belong to a team.
func (s *Service) MemberDtos(ctx context.Context) ([]*entity.MemberDto, error) {
	return s.members.FindMemberDto(ctx)
}

// AgeUp adds a year to every member at least age years old.
func (s *Service) AgeUp(ctx context.Context, age int) (int64, error) {
	return s.members.BulkAgePlus(ctx, age)
}
