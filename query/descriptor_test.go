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

package query

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datajpa/types"
	"github.com/uptrace/bun"
)

var testSchema = NewSchema("member", "member_id", []string{"name", "age", "team_id"}, "Team")

func TestNewRejectsUnknownField(t *testing.T) {
	_, err := New(testSchema, Where(Eq("nickname", "x")))
	require.ErrorIs(t, err, types.ErrInvalidQuery)
	require.Contains(t, err.Error(), "nickname")

	_, err = New(testSchema, OrderBy(Desc("height")))
	require.ErrorIs(t, err, types.ErrInvalidQuery)

	_, err = New(testSchema, Fetch("Company"))
	require.ErrorIs(t, err, types.ErrInvalidQuery)
}

func TestNewRejectsBadWindow(t *testing.T) {
	_, err := New(testSchema, Window(-1, 10))
	require.ErrorIs(t, err, types.ErrInvalidQuery)

	_, err = New(testSchema, Window(0, MaxLimit+1))
	require.ErrorIs(t, err, types.ErrInvalidQuery)

	d, err := New(testSchema, Window(0, MaxLimit))
	require.NoError(t, err)
	require.Equal(t, MaxLimit, d.Limit())
}

func TestNewRejectsMalformedCondition(t *testing.T) {
	cases := []Condition{
		{Field: "name", Op: OpEq},
		{Field: "name", Op: OpIn, Value: "AAA"},
		{Field: "age", Op: OpBetween, Value: []any{1, 2}},
		{Field: "name", Op: OpLike, Value: 3},
		{Field: "name", Op: "sounds_like", Value: "x"},
	}
	for _, c := range cases {
		_, err := New(testSchema, Where(c))
		require.ErrorIs(t, err, types.ErrInvalidQuery, "condition %+v", c)
	}
}

func TestNewRejectsLockOnReadOnly(t *testing.T) {
	_, err := New(testSchema, ReadOnly(), Lock(types.LockPessimisticWrite))
	require.ErrorIs(t, err, types.ErrInvalidQuery)
}

func TestSortTieBreak(t *testing.T) {
	d := MustNew(testSchema, OrderBy(Desc("name")))
	require.Equal(t, []Sort{Desc("name"), Asc("member_id")}, d.Sorts())

	d = MustNew(testSchema, OrderBy(Desc("member_id")))
	require.Equal(t, []Sort{Desc("member_id")}, d.Sorts())

	d = MustNew(testSchema)
	require.Equal(t, []Sort{Asc("member_id")}, d.Sorts())
}

func TestPageOption(t *testing.T) {
	d := MustNew(testSchema, Page(types.NewPageRequest(3, 20)))
	require.Equal(t, 40, d.Offset())
	require.Equal(t, 20, d.Limit())
}

func TestWhereOptionsAreJoined(t *testing.T) {
	d := MustNew(testSchema, Where(Eq("name", "AAA")), Where(Gt("age", 15)))
	expr, args := Filter(d.Predicate(), false)
	require.Equal(t, "(? = ? AND ? > ?)", expr)
	require.Equal(t, []any{bun.Ident("name"), "AAA", bun.Ident("age"), 15}, args)
}

func TestFilterCompile(t *testing.T) {
	expr, args := Filter(AnyOf(In("name", "AAA", "BBB"), IsNull("team_id")), true)
	require.Equal(t, "(?TableAlias.? IN (?) OR ?TableAlias.? IS NULL)", expr)
	require.Len(t, args, 3)
	require.Equal(t, bun.Ident("name"), args[0])
	require.Equal(t, bun.Ident("team_id"), args[2])

	expr, args = Filter(In("name"), false)
	require.Equal(t, "1 = 0", expr)
	require.Empty(t, args)

	expr, _ = Filter(NotIn("name"), false)
	require.Equal(t, "1 = 1", expr)

	expr, args = Filter(Prefix("name", "mem"), false)
	require.Equal(t, "? LIKE ? ESCAPE '!'", expr)
	require.Equal(t, "mem%", args[1])

	_, args = Filter(Contains("name", "50%_a!"), false)
	require.Equal(t, "%50!%!_a!!%", args[1])

	_, args = Filter(Like("name", "m_m%"), false)
	require.Equal(t, "m_m%", args[1])

	expr, args = Filter(Between("age", 10, 20), false)
	require.Equal(t, "? BETWEEN ? AND ?", expr)
	require.Equal(t, []any{bun.Ident("age"), 10, 20}, args)

	expr, _ = Filter(And{}, false)
	require.Equal(t, "1 = 1", expr)
	expr, _ = Filter(Or{}, false)
	require.Equal(t, "1 = 0", expr)
}

func TestInAcceptsTypedSlices(t *testing.T) {
	c := Condition{Field: "name", Op: OpIn, Value: []string{"AAA", "BBB"}}
	_, err := New(testSchema, Where(c))
	require.NoError(t, err)
	_, args := Filter(c, false)
	require.Len(t, args, 2)
}
