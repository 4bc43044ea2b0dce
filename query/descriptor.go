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
	"fmt"

	"github.com/tomoncle/datajpa/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/schema"
)

// MaxLimit bounds the size of a single result window.
const MaxLimit = 1000

var errInvalid = types.ErrInvalidQuery

// Sort defines ordering on a field.
type Sort struct {
	Field string
	Desc  bool
}

func Asc(field string) Sort { return Sort{Field: field} }

func Desc(field string) Sort { return Sort{Field: field, Desc: true} }

// Descriptor is an immutable, validated query over one record type.
type Descriptor struct {
	schema   Schema
	where    Node
	sorts    []Sort
	offset   int
	limit    int
	fetch    []string
	lock     types.LockMode
	readOnly bool
}

// Option configures a Descriptor under construction.
type Option func(d *Descriptor) error

// Where sets the predicate tree. Several Where options are joined with AND.
func Where(n Node) Option {
	return func(d *Descriptor) error {
		if n == nil {
			return nil
		}
		if d.where == nil {
			d.where = n
			return nil
		}
		d.where = And{d.where, n}
		return nil
	}
}

// OrderBy appends sort keys.
func OrderBy(sorts ...Sort) Option {
	return func(d *Descriptor) error {
		d.sorts = append(d.sorts, sorts...)
		return nil
	}
}

// Window sets a raw offset/limit window. A zero limit means no window.
func Window(offset, limit int) Option {
	return func(d *Descriptor) error {
		d.offset = offset
		d.limit = limit
		return nil
	}
}

// Page sets the window from a 1-based page request.
func Page(p *types.PageRequest) Option {
	return func(d *Descriptor) error {
		if p == nil {
			return fmt.Errorf("nil page request")
		}
		d.offset = p.GetOffset()
		d.limit = p.GetPageSize()
		return nil
	}
}

// Fetch joins the named relations into the result.
func Fetch(relations ...string) Option {
	return func(d *Descriptor) error {
		d.fetch = append(d.fetch, relations...)
		return nil
	}
}

// Lock requests a row lock for the selected records.
func Lock(mode types.LockMode) Option {
	return func(d *Descriptor) error {
		d.lock = mode
		return nil
	}
}

// ReadOnly marks results as snapshots that are not tracked by the request
// scope.
func ReadOnly() Option {
	return func(d *Descriptor) error {
		d.readOnly = true
		return nil
	}
}

// New builds a descriptor and validates every referenced field and relation
// against the schema. Failures wrap types.ErrInvalidQuery.
func New(s Schema, opts ...Option) (Descriptor, error) {
	d := Descriptor{schema: s}
	for _, opt := range opts {
		if err := opt(&d); err != nil {
			return Descriptor{}, fmt.Errorf("%w: %v", errInvalid, err)
		}
	}
	if err := d.validate(); err != nil {
		return Descriptor{}, fmt.Errorf("%w: %v", errInvalid, err)
	}
	d.sorts = withTieBreak(d.sorts, s.PrimaryKey())
	return d, nil
}

// MustNew is New for descriptors fixed at compile time.
func MustNew(s Schema, opts ...Option) Descriptor {
	d, err := New(s, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Descriptor) validate() error {
	if d.where != nil {
		if err := d.where.validate(d.schema); err != nil {
			return err
		}
	}
	for _, s := range d.sorts {
		if !d.schema.HasField(s.Field) {
			return fmt.Errorf("unknown sort field %q on %s, fields: %v", s.Field, d.schema.Table(), d.schema.Fields())
		}
	}
	if d.offset < 0 {
		return fmt.Errorf("negative offset %d", d.offset)
	}
	if d.limit < 0 || d.limit > MaxLimit {
		return fmt.Errorf("limit %d outside [0, %d]", d.limit, MaxLimit)
	}
	for _, r := range d.fetch {
		if !d.schema.HasRelation(r) {
			return fmt.Errorf("unknown relation %q on %s", r, d.schema.Table())
		}
	}
	if !d.lock.IsValid() {
		return fmt.Errorf("unknown lock mode %d", d.lock)
	}
	if d.lock != types.LockNone && d.readOnly {
		return fmt.Errorf("read-only query cannot take a row lock")
	}
	return nil
}

func withTieBreak(sorts []Sort, pk string) []Sort {
	for _, s := range sorts {
		if s.Field == pk {
			return sorts
		}
	}
	out := make([]Sort, 0, len(sorts)+1)
	out = append(out, sorts...)
	return append(out, Asc(pk))
}

func (d Descriptor) Schema() Schema { return d.schema }

func (d Descriptor) Predicate() Node { return d.where }

func (d Descriptor) Sorts() []Sort {
	out := make([]Sort, len(d.sorts))
	copy(out, d.sorts)
	return out
}

func (d Descriptor) Offset() int { return d.offset }

func (d Descriptor) Limit() int { return d.limit }

func (d Descriptor) Relations() []string {
	out := make([]string, len(d.fetch))
	copy(out, d.fetch)
	return out
}

func (d Descriptor) LockMode() types.LockMode { return d.lock }

func (d Descriptor) IsReadOnly() bool { return d.readOnly }

// ApplyFilter adds the predicate to a select query.
func (d Descriptor) ApplyFilter(q *bun.SelectQuery) *bun.SelectQuery {
	if d.where == nil {
		return q
	}
	expr, args := d.where.compile(true)
	return q.Where(expr, args...)
}

// Apply adds relations, predicate, ordering, window and lock to a select
// query. Row locks are skipped on dialects without SELECT ... FOR UPDATE.
func (d Descriptor) Apply(q *bun.SelectQuery, dia schema.Dialect) *bun.SelectQuery {
	for _, r := range d.fetch {
		q = q.Relation(r)
	}
	q = d.ApplyFilter(q)
	for _, s := range d.sorts {
		if s.Desc {
			q = q.OrderExpr("?TableAlias.? DESC", bun.Ident(s.Field))
		} else {
			q = q.OrderExpr("?TableAlias.? ASC", bun.Ident(s.Field))
		}
	}
	if d.limit > 0 {
		q = q.Limit(d.limit)
	}
	if d.offset > 0 {
		q = q.Offset(d.offset)
	}
	if d.lock == types.LockPessimisticWrite && SupportsRowLock(dia) {
		q = q.For("UPDATE")
	}
	return q
}

// SupportsRowLock reports whether the dialect understands FOR UPDATE.
func SupportsRowLock(dia schema.Dialect) bool {
	return dia != nil && dia.Name() != dialect.SQLite
}
