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

package repository

import (
	"context"
	"slices"

	"github.com/tomoncle/datajpa/database"
	"github.com/tomoncle/datajpa/entity"
	"github.com/tomoncle/datajpa/mapper"
	"github.com/tomoncle/datajpa/query"
	"github.com/tomoncle/datajpa/relation"
	"github.com/tomoncle/datajpa/scope"
	"github.com/tomoncle/datajpa/types"
	"github.com/uptrace/bun"
)

// MemberCustom is the extension point for hand written member queries.
type MemberCustom interface {
	FindMemberCustom(ctx context.Context) ([]*entity.Member, error)
}

// MemberRepository is the member record store with its named finders.
type MemberRepository struct {
	Repository[entity.Member]
	custom MemberCustom
}

type MemberOption func(*MemberRepository)

// WithMemberCustom plugs in the implementation behind FindMemberCustom.
func WithMemberCustom(c MemberCustom) MemberOption {
	return func(r *MemberRepository) { r.custom = c }
}

func NewMemberRepository(db *bun.DB, opts ...MemberOption) *MemberRepository {
	r := &MemberRepository{Repository: NewRepository[entity.Member](db, entity.MemberSchema, WithAfterFind[entity.Member](linkTeams))}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// linkTeams keeps both sides of joined member/team rows in step. A member
// the scope already tracked without its team gets the joined one, unless
// its team id was changed since it was read. Read-only results share team
// instances among themselves only.
func linkTeams(ctx context.Context, d query.Descriptor, members, scanned []*entity.Member) {
	if !slices.Contains(d.Relations(), entity.TeamRelation) {
		return
	}
	for i, m := range members {
		row := scanned[i]
		if m == row || m.Team != nil || row.Team == nil {
			continue
		}
		if m.TeamID != nil && *m.TeamID == row.Team.ID {
			relation.Attach(m, row.Team)
		}
	}
	sc := scope.FromContext(ctx)
	if d.IsReadOnly() {
		sc = nil
	}
	relation.LinkJoined(sc, members)
}

func (r *MemberRepository) find(ctx context.Context, opts ...query.Option) ([]*entity.Member, error) {
	d, err := query.New(entity.MemberSchema, opts...)
	if err != nil {
		return nil, err
	}
	return r.Find(ctx, d)
}

// single expects at most one match. Two rows are enough to detect a
// non unique result.
func (r *MemberRepository) single(ctx context.Context, op string, opts ...query.Option) (*entity.Member, bool, error) {
	members, err := r.find(ctx, append(opts, query.Window(0, 2))...)
	if err != nil {
		return nil, false, err
	}
	switch len(members) {
	case 0:
		return nil, false, nil
	case 1:
		return members[0], true, nil
	default:
		return nil, false, types.NewError(types.ErrNonUniqueResult, op, entity.MemberTable)
	}
}

func (r *MemberRepository) FindByNameAndAgeGreaterThan(ctx context.Context, name string, age int) ([]*entity.Member, error) {
	return r.find(ctx, query.Where(query.AllOf(query.Eq("name", name), query.Gt("age", age))))
}

// FindTop3 returns the first three members by id.
func (r *MemberRepository) FindTop3(ctx context.Context) ([]*entity.Member, error) {
	return r.find(ctx, query.Window(0, 3))
}

func (r *MemberRepository) FindByName(ctx context.Context, name string) ([]*entity.Member, error) {
	return r.find(ctx, query.Where(query.Eq("name", name)))
}

func (r *MemberRepository) FindUser(ctx context.Context, name string, age int) ([]*entity.Member, error) {
	return r.find(ctx, query.Where(query.AllOf(query.Eq("name", name), query.Eq("age", age))))
}

// FindNameList returns every member name ordered by member id.
func (r *MemberRepository) FindNameList(ctx context.Context) ([]string, error) {
	names := make([]string, 0)
	err := r.NewSelect(ctx).
		Model((*entity.Member)(nil)).
		Column("name").
		OrderExpr("?TableAlias.? ASC", bun.Ident(entity.MemberSchema.PrimaryKey())).
		Scan(ctx, &names)
	if err != nil {
		return nil, database.Classify(err, "find names", entity.MemberTable)
	}
	return names, nil
}

// FindMemberDto projects the members that have a team, inner joined.
func (r *MemberRepository) FindMemberDto(ctx context.Context) ([]*entity.MemberDto, error) {
	rows := make([]entity.MemberTeamRow, 0)
	err := r.NewSelect(ctx).
		TableExpr("? AS m", bun.Ident(entity.MemberTable)).
		Join("JOIN ? AS t ON t.team_id = m.team_id", bun.Ident(entity.TeamTable)).
		ColumnExpr("m.member_id, m.name, t.name AS team_name").
		OrderExpr("m.member_id ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, database.Classify(err, "find dto", entity.MemberTable)
	}

	out := make([]*entity.MemberDto, 0, len(rows))
	for i := range rows {
		dto, err := mapper.FromMemberTeamRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, dto)
	}
	return out, nil
}

func (r *MemberRepository) FindByNames(ctx context.Context, names []string) ([]*entity.Member, error) {
	return r.find(ctx, query.Where(query.Condition{Field: "name", Op: query.OpIn, Value: names}))
}

func (r *MemberRepository) FindListByName(ctx context.Context, name string) ([]*entity.Member, error) {
	return r.FindByName(ctx, name)
}

// FindMemberByName fails with types.ErrNotFound when no member has the name
// and with types.ErrNonUniqueResult when several do.
func (r *MemberRepository) FindMemberByName(ctx context.Context, name string) (*entity.Member, error) {
	m, ok, err := r.single(ctx, "find by name", query.Where(query.Eq("name", name)))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.NewError(types.ErrNotFound, "find by name", entity.MemberTable)
	}
	return m, nil
}

func (r *MemberRepository) FindOptionalByName(ctx context.Context, name string) (*entity.Member, bool, error) {
	return r.single(ctx, "find by name", query.Where(query.Eq("name", name)))
}

// FindByAge pages the members of one age. Results are read only snapshots
// and the team is joined.
func (r *MemberRepository) FindByAge(ctx context.Context, age int, page *types.PageRequest, sorts ...query.Sort) (*types.Pagination[entity.Member], error) {
	d, err := query.New(entity.MemberSchema,
		query.Where(query.Eq("age", age)),
		query.OrderBy(sorts...),
		query.Page(page),
		query.Fetch(entity.TeamRelation),
		query.ReadOnly(),
	)
	if err != nil {
		return nil, err
	}
	return r.Page(ctx, d)
}

// BulkAgePlus adds one year to every member at least age years old.
func (r *MemberRepository) BulkAgePlus(ctx context.Context, age int) (int64, error) {
	return r.BulkUpdate(ctx, query.Ge("age", age), Increment("age", 1))
}

// FindMemberWithTeam loads every member with its team in one query.
func (r *MemberRepository) FindMemberWithTeam(ctx context.Context) ([]*entity.Member, error) {
	return r.find(ctx, query.Fetch(entity.TeamRelation))
}

// FindAllWithTeam is FindAll with the team relation joined.
func (r *MemberRepository) FindAllWithTeam(ctx context.Context) ([]*entity.Member, error) {
	return r.FindMemberWithTeam(ctx)
}

func (r *MemberRepository) FindMemberEntityGraph(ctx context.Context) ([]*entity.Member, error) {
	return r.FindMemberWithTeam(ctx)
}

func (r *MemberRepository) FindEntityGraphByName(ctx context.Context, name string) ([]*entity.Member, error) {
	return r.find(ctx, query.Where(query.Eq("name", name)), query.Fetch(entity.TeamRelation))
}

// FindReadByName returns a snapshot that the request scope does not track,
// so later changes to it are never picked up from the scope.
func (r *MemberRepository) FindReadByName(ctx context.Context, name string) (*entity.Member, error) {
	m, ok, err := r.single(ctx, "find read by name", query.Where(query.Eq("name", name)), query.ReadOnly())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.NewError(types.ErrNotFound, "find read by name", entity.MemberTable)
	}
	return m, nil
}

// FindLockByName selects with FOR UPDATE where the dialect supports it.
func (r *MemberRepository) FindLockByName(ctx context.Context, name string) ([]*entity.Member, error) {
	return r.find(ctx, query.Where(query.Eq("name", name)), query.Lock(types.LockPessimisticWrite))
}

func (r *MemberRepository) FindMemberCustom(ctx context.Context) ([]*entity.Member, error) {
	if r.custom == nil {
		return nil, types.NewError(types.ErrNotImplemented, "find member custom", entity.MemberTable)
	}
	return r.custom.FindMemberCustom(ctx)
}
