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

package database

import (
	"context"
	"database/sql"

	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2"
	trmcontext "github.com/avito-tech/go-transaction-manager/trm/v2/context"
	trmmanager "github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/uptrace/bun"
)

var ctxGetter = trmsql.DefaultCtxGetter

// Transactor runs fn in a transaction carried by the returned context.
// A transaction already present in ctx is joined.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TxManager is the go-transaction-manager backed Transactor.
type TxManager struct {
	tm trm.Manager
}

var _ Transactor = (*TxManager)(nil)

func NewTxManager(db *bun.DB) *TxManager {
	mgr := trmmanager.Must(
		trmsql.NewDefaultFactory(db.DB),
		trmmanager.WithCtxManager(trmcontext.DefaultManager),
	)
	return &TxManager{tm: mgr}
}

func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.tm.Do(ctx, fn)
}

// Conn returns the transaction stored in ctx, or db itself outside of one.
// Every repository statement goes through it so it joins the caller's unit
// of work.
func Conn(ctx context.Context, db *bun.DB) bun.IConn {
	tr := ctxGetter.DefaultTrOrDB(ctx, db.DB)
	if raw, ok := tr.(*sql.DB); ok && raw == db.DB {
		return db
	}
	return tr
}

// InTx reports whether ctx carries a transaction.
func InTx(ctx context.Context) bool {
	return trmcontext.DefaultManager.Default(ctx) != nil
}
