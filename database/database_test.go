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
	"bytes"
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datajpa/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type testLabel struct {
	bun.BaseModel `bun:"table:test_label,alias:tl"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull,unique"`
}

func openMemory(t *testing.T) (AbstractDatabaseManager, *bun.DB) {
	t.Helper()
	mgr := NewDatabaseManager(nil)
	require.NoError(t, mgr.Connect(context.Background()))
	t.Cleanup(func() { _ = mgr.Disconnect() })

	mm := NewMigrationManager(mgr.GetDB(), nil)
	mm.SetModels((*testLabel)(nil))
	require.NoError(t, mm.RunMigrations(context.Background()))
	return mgr, mgr.GetDB()
}

func TestMemoryDatabasesAreIsolated(t *testing.T) {
	ctx := context.Background()
	_, a := openMemory(t)
	_, b := openMemory(t)

	_, err := a.NewInsert().Model(&testLabel{Name: "a"}).Exec(ctx)
	require.NoError(t, err)

	n, err := b.NewSelect().Model((*testLabel)(nil)).Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestMigrationsRunOnce(t *testing.T) {
	ctx := context.Background()
	_, db := openMemory(t)

	mm := NewMigrationManager(db, nil)
	mm.SetModels((*testLabel)(nil))
	require.NoError(t, mm.RunMigrations(ctx))

	versions, err := mm.AppliedVersions(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"001"}, versions)
}

func TestHealthCheck(t *testing.T) {
	mgr, _ := openMemory(t)
	status := mgr.HealthCheck(context.Background())
	require.True(t, status.Healthy)
	require.True(t, status.Connected)
	require.Equal(t, 1, status.MaxOpenConns)

	require.NoError(t, mgr.Disconnect())
	require.False(t, mgr.HealthCheck(context.Background()).Healthy)
	require.Error(t, mgr.Ping(context.Background()))
}

func TestClassifyDriverErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", sql.ErrNoRows, types.ErrNotFound},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, types.ErrConstraintViolation},
		{"mysql fk", &mysql.MySQLError{Number: 1452}, types.ErrConstraintViolation},
		{"pq not null", &pq.Error{Code: "23502"}, types.ErrConstraintViolation},
		{"pgx unique", &pgconn.PgError{Code: "23505"}, types.ErrConstraintViolation},
		{"sqlite unique", errors.New("constraint failed: UNIQUE constraint failed: team.name (2067)"), types.ErrConstraintViolation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Classify(tc.err, "insert", "team")
			require.ErrorIs(t, err, tc.want)
		})
	}

	plain := Classify(errors.New("connection reset"), "select", "member")
	require.False(t, types.IsConstraintViolation(plain))
	require.False(t, types.IsNotFound(plain))
	require.NoError(t, Classify(nil, "select", "member"))
}

func TestIsSqlErrorPostgresCodes(t *testing.T) {
	ok, kind := IsSqlError(&pgconn.PgError{Code: "42P01"})
	require.True(t, ok)
	require.Equal(t, NoTableErr, kind)

	ok, kind = IsSqlError(&pq.Error{Code: "99999"})
	require.True(t, ok)
	require.Equal(t, UnknownErr, kind)

	ok, _ = IsSqlError(errors.New("boom"))
	require.False(t, ok)
}

func TestClassifySQLiteUniqueViolation(t *testing.T) {
	ctx := context.Background()
	_, db := openMemory(t)

	_, err := db.NewInsert().Model(&testLabel{Name: "dup"}).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&testLabel{Name: "dup"}).Exec(ctx)
	require.Error(t, err)
	require.True(t, types.IsConstraintViolation(Classify(err, "insert", "test_label")))
}

func TestWithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	_, db := openMemory(t)
	tm := NewTxManager(db)
	boom := errors.New("boom")

	err := tm.WithinTx(ctx, func(ctx context.Context) error {
		require.True(t, InTx(ctx))
		_, err := db.NewInsert().Model(&testLabel{Name: "gone"}).Conn(Conn(ctx, db)).Exec(ctx)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err := db.NewSelect().Model((*testLabel)(nil)).Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestWithinTxCommitsNested(t *testing.T) {
	ctx := context.Background()
	_, db := openMemory(t)
	tm := NewTxManager(db)

	err := tm.WithinTx(ctx, func(ctx context.Context) error {
		_, err := db.NewInsert().Model(&testLabel{Name: "outer"}).Conn(Conn(ctx, db)).Exec(ctx)
		if err != nil {
			return err
		}
		return tm.WithinTx(ctx, func(ctx context.Context) error {
			_, err := db.NewInsert().Model(&testLabel{Name: "inner"}).Conn(Conn(ctx, db)).Exec(ctx)
			return err
		})
	})
	require.NoError(t, err)

	n, err := db.NewSelect().Model((*testLabel)(nil)).Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestConnOutsideTxIsDB(t *testing.T) {
	_, db := openMemory(t)
	require.False(t, InTx(context.Background()))
	require.Same(t, db, Conn(context.Background(), db))
}

func TestMetricsHookCountsQueries(t *testing.T) {
	ctx := context.Background()
	_, db := openMemory(t)
	reg := prometheus.NewRegistry()
	hook := NewMetricsHook(reg)
	db.AddQueryHook(hook)

	_, err := db.NewSelect().Model((*testLabel)(nil)).Count(ctx)
	require.NoError(t, err)
	require.Equal(t, float64(1), testutil.ToFloat64(hook.queries.WithLabelValues("select", "ok")))

	// a second hook on the same registry shares the collectors
	require.Same(t, hook.queries, NewMetricsHook(reg).queries)
}

func TestQueryHookWritesFailures(t *testing.T) {
	ctx := context.Background()
	_, db := openMemory(t)
	var buf bytes.Buffer
	db.AddQueryHook(NewQueryHook(WithQueryHookWriter(&buf), WithQueryHookEnv("DATAJPA_TEST_SQL_LOG")))

	_, err := db.NewSelect().Model((*testLabel)(nil)).Count(ctx)
	require.NoError(t, err)
	require.Empty(t, buf.String())

	_, _ = db.NewSelect().Table("no_such_table").Count(ctx)
	require.Contains(t, buf.String(), "no_such_table")
}

func TestFactoryEnvOverrides(t *testing.T) {
	t.Setenv("DB_TYPE", "sqlite")
	t.Setenv("DB_NAME", ":memory:")
	t.Setenv("DB_ENABLE_METRICS", "false")

	cfg := &ConnectionConfig{Type: "mysql", DBName: "prod", EnableMetrics: true}
	mgr, err := NewDatabaseFactory().CreateFromConfig(cfg)
	require.NoError(t, err)
	require.NotNil(t, mgr)
	require.Equal(t, "sqlite", cfg.Type)
	require.True(t, cfg.IsMemory())
	require.False(t, cfg.EnableMetrics)
}

func TestFactoryRejectsUnsupportedType(t *testing.T) {
	_, err := NewDatabaseFactory().CreateFromConfig(&ConnectionConfig{Type: "oracle"})
	require.Error(t, err)

	_, err = NewDatabaseFactory().CreateFromConfig(&ConnectionConfig{Type: "postgres", Driver: "odbc"})
	require.Error(t, err)
}

func TestModelRegistryDeduplicatesByType(t *testing.T) {
	r := newModelRegistry()
	r.register((*testLabel)(nil), 5)
	r.register((*Migration)(nil), 1)
	r.register((*testLabel)(nil), 0)

	models := r.sorted()
	require.Len(t, models, 2)
	require.Equal(t, 0, models[0].Priority)
	require.IsType(t, (*testLabel)(nil), models[0].Instance)
}

func TestDSN(t *testing.T) {
	driver, dsn, err := DSN(&ConnectionConfig{
		Type: "postgres", Driver: "pgx", Host: "db", Port: 5432,
		Username: "app", Password: "p@ss", DBName: "members", ConnectTimeout: 10 * time.Second,
	})
	require.NoError(t, err)
	require.Equal(t, "pgx", driver)
	require.Equal(t, "postgres://app:p%40ss@db:5432/members?connect_timeout=10&sslmode=disable", dsn)

	driver, dsn, err = DSN(&ConnectionConfig{Type: "mysql", Host: "db", Port: 3306, Username: "root", Password: "pw", DBName: "app"})
	require.NoError(t, err)
	require.Equal(t, "mysql", driver)
	require.Contains(t, dsn, "root:pw@tcp(db:3306)/app?charset=utf8mb4")

	driver, dsn, err = DSN(&ConnectionConfig{Type: "sqlite3", DBName: "local"})
	require.NoError(t, err)
	require.Equal(t, sqliteshim.ShimName, driver)
	require.Equal(t, "local.db", dsn)

	_, _, err = DSN(&ConnectionConfig{Type: "oracle"})
	require.Error(t, err)
}

func TestReconnectKeepsManagerUsable(t *testing.T) {
	mgr := NewDatabaseManager(nil)
	ctx := context.Background()
	require.NoError(t, mgr.Connect(ctx))
	t.Cleanup(func() { _ = mgr.Disconnect() })

	db := mgr.GetDB()
	require.NoError(t, mgr.Reconnect(ctx))
	require.NoError(t, mgr.Ping(ctx))
	require.Same(t, db, mgr.GetDB())
	require.Equal(t, 1, mgr.GetStats().MaxOpenConns)
}

func TestReconnectKeepsHandleAndPool(t *testing.T) {
	ctx := context.Background()
	config := DefaultConnectionConfig()
	config.DBName = filepath.Join(t.TempDir(), "reconnect")
	mgr := NewDatabaseManager(config)
	require.NoError(t, mgr.Connect(ctx))
	t.Cleanup(func() { _ = mgr.Disconnect() })

	db := mgr.GetDB()
	mm := NewMigrationManager(db, nil)
	mm.SetModels((*testLabel)(nil))
	require.NoError(t, mm.RunMigrations(ctx))
	_, err := db.NewInsert().Model(&testLabel{Name: "before"}).Exec(ctx)
	require.NoError(t, err)

	pool := mgr.GetSQLDB()
	require.NoError(t, mgr.Reconnect(ctx))
	require.Same(t, db, mgr.GetDB())
	require.Same(t, pool, mgr.GetSQLDB())
	require.Equal(t, config.MaxOpenConns, mgr.GetStats().MaxOpenConns)

	_, err = db.NewInsert().Model(&testLabel{Name: "after"}).Exec(ctx)
	require.NoError(t, err)
	n, err := db.NewSelect().Model((*testLabel)(nil)).Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestReconnectWhileQuerying(t *testing.T) {
	ctx := context.Background()
	config := DefaultConnectionConfig()
	config.DBName = filepath.Join(t.TempDir(), "busy")
	mgr := NewDatabaseManager(config)
	require.NoError(t, mgr.Connect(ctx))
	t.Cleanup(func() { _ = mgr.Disconnect() })
	db := mgr.GetDB()
	tx := NewTxManager(db)

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				err := tx.WithinTx(ctx, func(ctx context.Context) error {
					var one int
					return db.NewSelect().ColumnExpr("1").Conn(Conn(ctx, db)).Scan(ctx, &one)
				})
				if err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, mgr.Reconnect(ctx))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}
