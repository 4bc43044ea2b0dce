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

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// BaseEntity carries audit timestamps shared by every record.
type BaseEntity struct {
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

func (e *BaseEntity) stamp(query bun.Query) {
	now := time.Now()
	switch query.(type) {
	case *bun.InsertQuery:
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		e.UpdatedAt = now
	case *bun.UpdateQuery:
		e.UpdatedAt = now
	}
}

// Validator is implemented by records that check their required fields
// before they are written.
type Validator interface {
	Validate() error
}

var _ bun.BeforeAppendModelHook = (*Member)(nil)
var _ bun.BeforeAppendModelHook = (*Team)(nil)
var _ bun.AfterScanRowHook = (*Member)(nil)

func (m *Member) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if m == nil {
		return nil
	}
	m.stamp(query)
	if m.Team != nil && m.Team.ID != 0 {
		id := m.Team.ID
		m.TeamID = &id
	}
	return nil
}

func (t *Team) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if t == nil {
		return nil
	}
	t.stamp(query)
	return nil
}

// AfterScanRow drops the empty team a LEFT JOIN leaves behind for members
// without one.
func (m *Member) AfterScanRow(ctx context.Context) error {
	if m.Team != nil && m.Team.ID == 0 {
		m.Team = nil
	}
	return nil
}
