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

package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPageRequestDefaults(t *testing.T) {
	p := NewPageRequest(0, 0)
	require.Equal(t, 1, p.GetPage())
	require.Equal(t, DefaultPageSize, p.GetPageSize())
	require.Zero(t, p.GetOffset())

	require.Equal(t, 6, NewPageRequest(3, 3).GetOffset())
}

func TestPagination(t *testing.T) {
	p := NewWindowPagination[int](3, 3)
	p.Total = 7
	require.Equal(t, 2, p.Page)
	require.Equal(t, 3, p.TotalPages())
	require.False(t, p.IsFirst())
	require.False(t, p.IsLast())
	require.True(t, p.HasNext())
	require.True(t, p.HasPrevious())

	unbounded := NewWindowPagination[int](0, 0)
	unbounded.Total = 4
	require.Equal(t, 1, unbounded.TotalPages())
	require.True(t, unbounded.IsLast())
}

func TestMapPagination(t *testing.T) {
	one, two := 1, 2
	p := &Pagination[int]{Page: 1, PageSize: 2, Total: 5, Items: []*int{&one, &two}}

	out, err := MapPagination(p, func(v *int) (*string, error) {
		s := fmt.Sprint(*v * 10)
		return &s, nil
	})
	require.NoError(t, err)
	require.Equal(t, 5, out.Total)
	require.Equal(t, "20", *out.Items[1])

	_, err = MapPagination(p, func(v *int) (*string, error) { return nil, ErrInvalidProjection })
	require.True(t, IsInvalidProjection(err))
}

func TestErrorWrapping(t *testing.T) {
	err := NewFieldError(ErrConstraintViolation, "insert", "member", "name")
	require.Equal(t, "insert member (field name): constraint violation", err.Error())
	require.True(t, IsConstraintViolation(err))
	require.False(t, IsNotFound(err))

	wrapped := fmt.Errorf("seed: %w", NewError(ErrNotFound, "get", "team"))
	require.True(t, IsNotFound(wrapped))
	var typed *Error
	require.True(t, errors.As(wrapped, &typed))
	require.Equal(t, "team", typed.Entity)

	require.True(t, IsDetachedReference(Errorf(ErrDetachedReference, "ref %d", 3)))
	require.Equal(t, "invalid query", (&Error{Err: ErrInvalidQuery}).Error())
}

func TestEnums(t *testing.T) {
	require.Equal(t, "lazy", FetchLazy.String())
	require.Equal(t, IllegalValue, FetchPolicy(5).Number())
	require.False(t, LockMode(9).IsValid())
	require.Equal(t, "pessimistic_write", LockPessimisticWrite.Name())
}
