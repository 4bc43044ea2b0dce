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

	"github.com/tomoncle/datajpa/scope"
	"github.com/tomoncle/datajpa/types"
)

// Loader fetches the referenced record by id.
type Loader[T any] func(ctx context.Context, id int64) (*T, error)

// Ref is a reference that is either resolved, holding the record, or
// unresolved, holding the id and a loader bound to a request scope.
// A Ref is used by one goroutine.
type Ref[T any] struct {
	id       int64
	value    *T
	resolved bool
	scope    *scope.Scope
	load     Loader[T]
}

// Resolved returns a loaded reference. A nil value with id 0 is the empty
// reference.
func Resolved[T any](id int64, value *T) *Ref[T] {
	return &Ref[T]{id: id, value: value, resolved: true}
}

// Unresolved returns a reference loaded on first Load while sc is open.
func Unresolved[T any](id int64, sc *scope.Scope, load Loader[T]) *Ref[T] {
	return &Ref[T]{id: id, scope: sc, load: load}
}

func (r *Ref[T]) ID() int64 { return r.id }

func (r *Ref[T]) IsResolved() bool { return r.resolved }

// IsNil reports whether the reference points at no record.
func (r *Ref[T]) IsNil() bool { return r.id == 0 && r.value == nil }

// Get returns the record of a resolved reference without loading.
func (r *Ref[T]) Get() (*T, bool) {
	if !r.resolved {
		return nil, false
	}
	return r.value, true
}

// Load resolves the reference once. An unresolved reference whose scope has
// closed fails with types.ErrDetachedReference; a resolved one keeps working.
func (r *Ref[T]) Load(ctx context.Context) (*T, error) {
	if r.resolved {
		return r.value, nil
	}
	if r.scope.Closed() {
		return nil, types.Errorf(types.ErrDetachedReference, "reference %d loaded after its scope closed", r.id)
	}
	v, err := r.load(scope.WithScope(ctx, r.scope), r.id)
	if err != nil {
		return nil, err
	}
	r.value, r.resolved = v, true
	return v, nil
}
