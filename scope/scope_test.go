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

package scope

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datajpa/types"
)

func TestScopeIdentityMap(t *testing.T) {
	s := New()
	rec := &struct{ Name string }{"memberA"}
	require.NoError(t, s.Put("member", int64(1), rec))
	require.NoError(t, s.Put("team", int64(1), "teamA"))

	got, ok := s.Get("member", 1)
	require.True(t, ok)
	require.Same(t, rec, got)

	s.EvictTable("member")
	_, ok = s.Get("member", int64(1))
	require.False(t, ok)
	_, ok = s.Get("team", int64(1))
	require.True(t, ok)

	s.Evict("team", int64(1))
	require.Equal(t, 0, s.Len())
}

func TestScopeClose(t *testing.T) {
	s := New()
	require.NoError(t, s.Put("member", 1, "m"))
	s.Close()

	require.True(t, s.Closed())
	_, ok := s.Get("member", 1)
	require.False(t, ok)
	require.ErrorIs(t, s.Put("member", 2, "m"), types.ErrDetachedReference)
}

func TestScopeContext(t *testing.T) {
	ctx := context.Background()
	require.Nil(t, FromContext(ctx))
	require.True(t, FromContext(ctx).Closed())

	s := New()
	require.Same(t, s, FromContext(WithScope(ctx, s)))
}

func TestScopeEvictAndClear(t *testing.T) {
	s := New()
	require.NoError(t, s.Put("member", int64(1), "a"))
	require.NoError(t, s.Put("member", int64(2), "b"))
	s.Evict("member", int64(1))
	require.Equal(t, 1, s.Len())

	s.Clear()
	require.Zero(t, s.Len())
	require.False(t, s.Closed())
	require.NoError(t, s.Put("member", int64(3), "c"))
}
