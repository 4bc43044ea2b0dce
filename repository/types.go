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

	"github.com/tomoncle/datajpa/query"
	"github.com/tomoncle/datajpa/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// Record is implemented by the pointer type of every stored model.
type Record interface {
	GetID() int64
}

// CrudRepository defines the record store operations for one model type.
type CrudRepository[T any] interface {
	// Insert validates and stores records, assigning their identifiers.
	Insert(ctx context.Context, records ...*T) error

	// FindByID reports false without an error when no record has the id.
	FindByID(ctx context.Context, id int64) (*T, bool, error)

	// GetOne is FindByID that fails with types.ErrNotFound.
	GetOne(ctx context.Context, id int64) (*T, error)

	FindAll(ctx context.Context) ([]*T, error)

	Find(ctx context.Context, d query.Descriptor) ([]*T, error)

	Count(ctx context.Context, predicates ...query.Node) (int, error)

	Update(ctx context.Context, record *T) error

	Upsert(ctx context.Context, fields []string, conflictKeys []string, records ...*T) error

	Delete(ctx context.Context, record *T) error

	DeleteByID(ctx context.Context, id int64) error

	// BulkUpdate applies mutation to every record matching predicate in one
	// statement and returns the number of affected rows.
	BulkUpdate(ctx context.Context, predicate query.Node, mutation Mutation) (int64, error)
}

// PageQueryRepository defines pagination over descriptors.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, d query.Descriptor) (*types.Pagination[T], error)
}

// Repository combines CRUD and pagination and exposes the Bun handles
// needed by model specific repositories.
type Repository[T any] interface {
	CrudRepository[T]
	PageQueryRepository[T]
	Schema() query.Schema
	Dialect() schema.Dialect
	DB() *bun.DB
	// NewSelect starts a select bound to the transaction in ctx.
	NewSelect(ctx context.Context) *bun.SelectQuery
}
