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
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/tomoncle/datajpa/database"
	"github.com/tomoncle/datajpa/entity"
	"github.com/tomoncle/datajpa/query"
	"github.com/tomoncle/datajpa/scope"
	"github.com/tomoncle/datajpa/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"
)

type baseRepositoryImpl[T any] struct {
	db        *bun.DB
	schema    query.Schema
	tx        database.Transactor
	afterFind AfterFind[T]
}

// AfterFind post-processes the records returned by Find and Page. records
// are the instances handed to the caller, the ones tracked by the request
// scope when it already knew them; scanned are the rows as read, in the same
// order, and carry the joined relations.
type AfterFind[T any] func(ctx context.Context, d query.Descriptor, records, scanned []*T)

// Option configures a generic repository.
type Option[T any] func(r *baseRepositoryImpl[T])

func WithAfterFind[T any](fn AfterFind[T]) Option[T] {
	return func(r *baseRepositoryImpl[T]) { r.afterFind = fn }
}

// NewRepository returns a generic repository for the model T described by s.
// *T must implement Record.
func NewRepository[T any](db *bun.DB, s query.Schema, opts ...Option[T]) Repository[T] {
	if _, ok := any((*T)(nil)).(Record); !ok {
		panic(fmt.Sprintf("repository: %T does not implement Record", (*T)(nil)))
	}
	r := &baseRepositoryImpl[T]{db: db, schema: s, tx: database.NewTxManager(db)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *baseRepositoryImpl[T]) Schema() query.Schema { return r.schema }

func (r *baseRepositoryImpl[T]) Dialect() schema.Dialect { return r.db.Dialect() }

func (r *baseRepositoryImpl[T]) DB() *bun.DB { return r.db }

func (r *baseRepositoryImpl[T]) NewSelect(ctx context.Context) *bun.SelectQuery {
	return r.db.NewSelect().Conn(r.conn(ctx))
}

func (r *baseRepositoryImpl[T]) conn(ctx context.Context) bun.IConn {
	return database.Conn(ctx, r.db)
}

func (r *baseRepositoryImpl[T]) table() string { return r.schema.Table() }

func (r *baseRepositoryImpl[T]) idOf(record *T) int64 {
	return any(record).(Record).GetID()
}

// track makes record the scope's instance for its id. When the scope already
// tracks the id, that instance is returned untouched and record is dropped,
// so unsaved changes and resolved references of the tracked one survive a
// re-read.
func (r *baseRepositoryImpl[T]) track(ctx context.Context, record *T) *T {
	sc := scope.FromContext(ctx)
	if sc.Closed() {
		return record
	}
	id := r.idOf(record)
	if v, ok := sc.Get(r.table(), id); ok {
		if cached, ok := v.(*T); ok {
			return cached
		}
	}
	_ = sc.Put(r.table(), id, record)
	return record
}

func (r *baseRepositoryImpl[T]) checkDescriptor(d query.Descriptor) error {
	if d.Schema().Table() != r.table() {
		return types.Errorf(types.ErrInvalidQuery, "descriptor for %q used on %q", d.Schema().Table(), r.table())
	}
	return nil
}

func (r *baseRepositoryImpl[T]) Insert(ctx context.Context, records ...*T) error {
	for _, record := range records {
		if record == nil {
			return types.NewError(types.ErrConstraintViolation, "insert", r.table())
		}
		if v, ok := any(record).(entity.Validator); ok {
			if err := v.Validate(); err != nil {
				return err
			}
		}
	}

	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		conn := r.conn(ctx)
		for _, record := range records {
			if _, err := r.db.NewInsert().Model(record).Conn(conn).Exec(ctx); err != nil {
				return database.Classify(err, "insert", r.table())
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, record := range records {
		r.track(ctx, record)
	}
	return nil
}

func (r *baseRepositoryImpl[T]) FindByID(ctx context.Context, id int64) (*T, bool, error) {
	if v, ok := scope.FromContext(ctx).Get(r.table(), id); ok {
		if record, ok := v.(*T); ok {
			return record, true, nil
		}
	}

	record := new(T)
	err := r.db.NewSelect().
		Model(record).
		Conn(r.conn(ctx)).
		Where("?TableAlias.? = ?", bun.Ident(r.schema.PrimaryKey()), id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, database.Classify(err, "find", r.table())
	}
	return r.track(ctx, record), true, nil
}

func (r *baseRepositoryImpl[T]) GetOne(ctx context.Context, id int64) (*T, error) {
	record, ok, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.NewError(types.ErrNotFound, "get", r.table())
	}
	return record, nil
}

func (r *baseRepositoryImpl[T]) FindAll(ctx context.Context) ([]*T, error) {
	d, err := query.New(r.schema)
	if err != nil {
		return nil, err
	}
	return r.Find(ctx, d)
}

func (r *baseRepositoryImpl[T]) Find(ctx context.Context, d query.Descriptor) ([]*T, error) {
	if err := r.checkDescriptor(d); err != nil {
		return nil, err
	}

	items := make([]*T, 0)
	run := func(ctx context.Context) error {
		q := r.db.NewSelect().Model(&items).Conn(r.conn(ctx))
		return d.Apply(q, r.db.Dialect()).Scan(ctx)
	}

	var err error
	if d.LockMode() != types.LockNone && !database.InTx(ctx) {
		// a row lock only lives as long as its transaction
		err = r.tx.WithinTx(ctx, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return nil, database.Classify(err, "find", r.table())
	}

	records := items
	if !d.IsReadOnly() {
		records = make([]*T, len(items))
		for i, item := range items {
			records[i] = r.track(ctx, item)
		}
	}
	if r.afterFind != nil {
		r.afterFind(ctx, d, records, items)
	}
	return records, nil
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context, predicates ...query.Node) (int, error) {
	q := r.db.NewSelect().Model((*T)(nil)).Conn(r.conn(ctx))
	for _, p := range predicates {
		if p == nil {
			continue
		}
		if err := query.Validate(r.schema, p); err != nil {
			return 0, err
		}
		expr, args := query.Filter(p, true)
		q = q.Where(expr, args...)
	}
	n, err := q.Count(ctx)
	if err != nil {
		return 0, database.Classify(err, "count", r.table())
	}
	return n, nil
}

func (r *baseRepositoryImpl[T]) Page(ctx context.Context, d query.Descriptor) (*types.Pagination[T], error) {
	if err := r.checkDescriptor(d); err != nil {
		return nil, err
	}

	pagination := types.NewWindowPagination[T](d.Offset(), d.Limit())
	q := r.db.NewSelect().Model((*T)(nil)).Conn(r.conn(ctx))
	total, err := d.ApplyFilter(q).Count(ctx)
	if err != nil {
		return nil, database.Classify(err, "count", r.table())
	}
	pagination.Total = total
	if total == 0 || d.Offset() >= total {
		return pagination, nil
	}

	items, err := r.Find(ctx, d)
	if err != nil {
		return nil, err
	}
	pagination.Items = items
	return pagination, nil
}

func (r *baseRepositoryImpl[T]) Update(ctx context.Context, record *T) error {
	if record == nil || r.idOf(record) == 0 {
		return types.NewError(types.ErrNotFound, "update", r.table())
	}
	if v, ok := any(record).(entity.Validator); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}

	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		conn := r.conn(ctx)
		res, err := r.db.NewUpdate().Model(record).WherePK().Conn(conn).Exec(ctx)
		if err != nil {
			return database.Classify(err, "update", r.table())
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}
		// MySQL reports zero affected rows for unchanged values
		exists, err := r.db.NewSelect().
			Model((*T)(nil)).
			Conn(conn).
			Where("?TableAlias.? = ?", bun.Ident(r.schema.PrimaryKey()), r.idOf(record)).
			Exists(ctx)
		if err != nil {
			return database.Classify(err, "update", r.table())
		}
		if !exists {
			return types.NewError(types.ErrNotFound, "update", r.table())
		}
		return nil
	})
	if err != nil {
		return err
	}
	// the written instance becomes the tracked one
	_ = scope.FromContext(ctx).Put(r.table(), r.idOf(record), record)
	return nil
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, record *T) error {
	if record == nil {
		return types.NewError(types.ErrNotFound, "delete", r.table())
	}
	return r.DeleteByID(ctx, r.idOf(record))
}

func (r *baseRepositoryImpl[T]) DeleteByID(ctx context.Context, id int64) error {
	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		res, err := r.db.NewDelete().
			Model((*T)(nil)).
			Conn(r.conn(ctx)).
			Where("? = ?", bun.Ident(r.schema.PrimaryKey()), id).
			Exec(ctx)
		if err != nil {
			return database.Classify(err, "delete", r.table())
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return types.NewError(types.ErrNotFound, "delete", r.table())
		}
		return nil
	})
	scope.FromContext(ctx).Evict(r.table(), id)
	return err
}

func (r *baseRepositoryImpl[T]) BulkUpdate(ctx context.Context, predicate query.Node, mutation Mutation) (int64, error) {
	if err := query.Validate(r.schema, predicate); err != nil {
		return 0, err
	}
	if err := mutation.validate(r.schema); err != nil {
		return 0, types.Errorf(types.ErrInvalidQuery, "%v", err)
	}

	var affected int64
	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		q := mutation.apply(r.db.NewUpdate().Model((*T)(nil)).Conn(r.conn(ctx)))
		if predicate == nil {
			q = q.Where("1 = 1")
		} else {
			expr, args := query.Filter(predicate, false)
			q = q.Where(expr, args...)
		}
		res, err := q.Exec(ctx)
		if err != nil {
			return database.Classify(err, "bulk update", r.table())
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	// cached copies no longer match the store
	scope.FromContext(ctx).EvictTable(r.table())
	return affected, nil
}

// Upsert inserts records and updates fields of the ones that collide on
// conflictKeys, the primary key by default.
func (r *baseRepositoryImpl[T]) Upsert(ctx context.Context, fields []string, conflictKeys []string, records ...*T) error {
	if len(fields) == 0 {
		return types.Errorf(types.ErrInvalidQuery, "upsert fields cannot be empty")
	}
	if len(conflictKeys) == 0 {
		conflictKeys = []string{r.schema.PrimaryKey()}
	}
	for _, f := range append(append([]string{}, fields...), conflictKeys...) {
		if !r.schema.HasField(f) {
			return types.NewFieldError(types.ErrInvalidQuery, "upsert", r.table(), f)
		}
	}
	if len(records) == 0 {
		return nil
	}

	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		q := r.db.NewInsert().Model(&records).Conn(r.conn(ctx))
		var err error
		switch {
		case r.db.HasFeature(feature.InsertOnConflict):
			err = r.upsertOnConflict(ctx, q, fields, conflictKeys)
		case r.db.HasFeature(feature.InsertOnDuplicateKey):
			err = r.upsertOnDuplicateKey(ctx, q, fields)
		default:
			err = r.upsertFallback(ctx, records)
		}
		return database.Classify(err, "upsert", r.table())
	})
	if err != nil {
		return err
	}
	scope.FromContext(ctx).EvictTable(r.table())
	return nil
}

func (r *baseRepositoryImpl[T]) upsertOnDuplicateKey(ctx context.Context, q *bun.InsertQuery, fields []string) error {
	assignments := make([]string, 0, len(fields))
	for _, field := range fields {
		assignments = append(assignments, fmt.Sprintf("%s = VALUES(%s)", field, field))
	}
	_, err := q.On("DUPLICATE KEY UPDATE " + strings.Join(assignments, ", ")).Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsertOnConflict(ctx context.Context, q *bun.InsertQuery, fields []string, conflictKeys []string) error {
	assignments := make([]string, 0, len(fields))
	for _, field := range fields {
		assignments = append(assignments, fmt.Sprintf("%s = EXCLUDED.%s", field, field))
	}
	_, err := q.
		On("CONFLICT (" + strings.Join(conflictKeys, ", ") + ") DO UPDATE").
		Set(strings.Join(assignments, ", ")).
		Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsertFallback(ctx context.Context, records []*T) error {
	conn := r.conn(ctx)
	for _, record := range records {
		_, err := r.db.NewInsert().Model(record).Conn(conn).Exec(ctx)
		if err == nil {
			continue
		}
		if _, updateErr := r.db.NewUpdate().Model(record).WherePK().Conn(conn).Exec(ctx); updateErr != nil {
			return fmt.Errorf("upsert failed: insert error: %v, update error: %w", err, updateErr)
		}
	}
	return nil
}
