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

// Package scope provides the request scope: an identity map of the records
// loaded during one unit of work. Lazy references are bound to a scope and
// become detached once it is closed.
package scope

import (
	"context"
	"fmt"
	"sync"

	"github.com/tomoncle/datajpa/types"
)

type ctxKey struct{}

type key struct {
	table string
	id    string
}

// Scope caches records by table and identifier for a single request.
// A scope belongs to the goroutine serving that request.
type Scope struct {
	mu      sync.Mutex
	records map[key]any
	closed  bool
}

// New returns an open, empty scope.
func New() *Scope {
	return &Scope{records: make(map[key]any)}
}

// WithScope returns a context carrying s.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the scope carried by ctx, or nil.
func FromContext(ctx context.Context) *Scope {
	s, _ := ctx.Value(ctxKey{}).(*Scope)
	return s
}

func newKey(table string, id any) key {
	return key{table: table, id: fmt.Sprint(id)}
}

// Get returns the cached record. A closed or nil scope never hits.
func (s *Scope) Get(table string, id any) (any, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false
	}
	v, ok := s.records[newKey(table, id)]
	return v, ok
}

// Put caches a record. It fails with types.ErrDetachedReference once the
// scope is closed.
func (s *Scope) Put(table string, id any, record any) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.Errorf(types.ErrDetachedReference, "scope closed")
	}
	s.records[newKey(table, id)] = record
	return nil
}

func (s *Scope) Evict(table string, id any) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, newKey(table, id))
}

// EvictTable drops every cached record of a table.
func (s *Scope) EvictTable(table string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.records {
		if k.table == table {
			delete(s.records, k)
		}
	}
}

func (s *Scope) Clear() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[key]any)
}

// Len returns the number of cached records.
func (s *Scope) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Close ends the scope and releases its records.
func (s *Scope) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.records = nil
}

// Closed reports whether the scope has ended. A nil scope counts as closed.
func (s *Scope) Closed() bool {
	if s == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
