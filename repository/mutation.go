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
	"fmt"

	"github.com/tomoncle/datajpa/query"
	"github.com/uptrace/bun"
)

type assignment struct {
	field     string
	value     any
	increment bool
}

// Mutation is the SET clause of a bulk update. Set and Increment compose:
//
//	repository.Increment("age", 1).Set("team_id", nil)
type Mutation struct {
	assignments []assignment
}

// Set assigns value to field.
func Set(field string, value any) Mutation {
	return Mutation{}.Set(field, value)
}

// Increment adds delta to the current value of field.
func Increment(field string, delta any) Mutation {
	return Mutation{}.Increment(field, delta)
}

func (m Mutation) Set(field string, value any) Mutation {
	return m.with(assignment{field: field, value: value})
}

func (m Mutation) Increment(field string, delta any) Mutation {
	return m.with(assignment{field: field, value: delta, increment: true})
}

func (m Mutation) with(a assignment) Mutation {
	out := make([]assignment, len(m.assignments), len(m.assignments)+1)
	copy(out, m.assignments)
	return Mutation{assignments: append(out, a)}
}

func (m Mutation) validate(s query.Schema) error {
	if len(m.assignments) == 0 {
		return fmt.Errorf("empty mutation")
	}
	seen := make(map[string]struct{}, len(m.assignments))
	for _, a := range m.assignments {
		if !s.HasField(a.field) {
			return fmt.Errorf("unknown field %q on %s", a.field, s.Table())
		}
		if a.field == s.PrimaryKey() {
			return fmt.Errorf("primary key %q is immutable", a.field)
		}
		if _, dup := seen[a.field]; dup {
			return fmt.Errorf("field %q assigned twice", a.field)
		}
		seen[a.field] = struct{}{}
		if a.increment && a.value == nil {
			return fmt.Errorf("increment of %q needs a delta", a.field)
		}
	}
	return nil
}

func (m Mutation) apply(q *bun.UpdateQuery) *bun.UpdateQuery {
	for _, a := range m.assignments {
		if a.increment {
			q = q.Set("? = ? + ?", bun.Ident(a.field), bun.Ident(a.field), a.value)
		} else {
			q = q.Set("? = ?", bun.Ident(a.field), a.value)
		}
	}
	return q
}
