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
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/extra/bundebug"
)

var errNotConnected = errors.New("database not connected")

type defaultDatabaseManager struct {
	config *ConnectionConfig
	logger Logger

	mu        sync.RWMutex
	db        *bun.DB
	sqlDB     *sql.DB
	lastError error
	health    *HealthStatus

	// stopWatch ends the health watcher started by Connect
	stopWatch context.CancelFunc
}

// NewDatabaseManager returns an AbstractDatabaseManager backed by Bun.
// A nil config selects an in-memory SQLite database.
func NewDatabaseManager(config *ConnectionConfig) AbstractDatabaseManager {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	return &defaultDatabaseManager{config: config, health: &HealthStatus{}}
}

func (dm *defaultDatabaseManager) Connect(ctx context.Context) error {
	if err := dm.open(ctx); err != nil {
		return err
	}

	dm.mu.Lock()
	if dm.stopWatch == nil && dm.config.HealthCheckInterval > 0 {
		watchCtx, cancel := context.WithCancel(context.Background())
		dm.stopWatch = cancel
		go dm.watch(watchCtx)
	}
	dm.mu.Unlock()

	dm.log(func(l Logger) { l.Info("Database connected", "type", dm.config.Type, "host", dm.config.Host) })
	return nil
}

// open connects unless already connected.
func (dm *defaultDatabaseManager) open(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.db != nil {
		return nil
	}

	if dm.config.ConnectTimeout <= 0 {
		dm.config.ConnectTimeout = 30 * time.Second
	}
	sqlDB, db, err := openBun(dm.config)
	if err != nil {
		dm.lastError = err
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	dm.configurePool(sqlDB)
	dm.addHooks(db)

	pingCtx, cancel := context.WithTimeout(ctx, dm.config.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		dm.lastError = err
		return fmt.Errorf("database connection test failed: %w", err)
	}

	dm.sqlDB, dm.db, dm.lastError = sqlDB, db, nil
	return nil
}

func (dm *defaultDatabaseManager) addHooks(db *bun.DB) {
	c := dm.config
	if c.EnableQueryLog {
		if c.QueryLogStyle == "color" {
			db.AddQueryHook(NewQueryHook(WithQueryHookVerbose(true)))
		} else {
			db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true), bundebug.FromEnv("BUNDEBUG")))
		}
	}
	if c.SlowQueryTime > 0 {
		db.AddQueryHook(&slowQueryHook{threshold: c.SlowQueryTime, logger: dm.logger})
	}
	if c.EnableMetrics {
		db.AddQueryHook(NewMetricsHook(prometheus.DefaultRegisterer))
	}
}

func (dm *defaultDatabaseManager) configurePool(sqlDB *sql.DB) {
	if dm.config.IsMemory() {
		// the memory database lives as long as its only connection
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		sqlDB.SetConnMaxIdleTime(0)
		return
	}
	sqlDB.SetMaxOpenConns(dm.config.MaxOpenConns)
	sqlDB.SetMaxIdleConns(dm.config.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(dm.config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(dm.config.ConnMaxIdleTime)
}

// Disconnect stops the health watcher and closes the pool.
func (dm *defaultDatabaseManager) Disconnect() error {
	dm.mu.Lock()
	if dm.stopWatch != nil {
		dm.stopWatch()
		dm.stopWatch = nil
	}
	dm.mu.Unlock()

	err := dm.closePool()
	if err != nil {
		dm.log(func(l Logger) { l.Error("Failed to close database connection", "error", err) })
	}
	return err
}

func (dm *defaultDatabaseManager) closePool() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.db == nil {
		return nil
	}
	err := dm.db.Close()
	dm.db, dm.sqlDB = nil, nil
	return err
}

// Reconnect drops the idle connections of the pool and checks that a fresh
// one can be dialed. The *bun.DB and *sql.DB returned by GetDB and GetSQLDB
// stay the same, so repositories built on them keep working and requests
// may run meanwhile. An in-memory database keeps its connection: its data
// lives only as long as that connection.
func (dm *defaultDatabaseManager) Reconnect(ctx context.Context) error {
	sqlDB := dm.GetSQLDB()
	if sqlDB == nil {
		return dm.open(ctx)
	}
	if dm.config.IsMemory() {
		dm.log(func(l Logger) { l.Warn("Skipping reconnect of an in-memory database") })
		return nil
	}

	sqlDB.SetMaxIdleConns(0)
	dm.configurePool(sqlDB)

	pingCtx, cancel := context.WithTimeout(ctx, dm.config.ConnectTimeout)
	defer cancel()
	err := sqlDB.PingContext(pingCtx)

	dm.mu.Lock()
	dm.lastError = err
	dm.mu.Unlock()
	if err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}
	return nil
}

func (dm *defaultDatabaseManager) Ping(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return errNotConnected
	}
	return db.PingContext(ctx)
}

func (dm *defaultDatabaseManager) GetDB() *bun.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.db
}

func (dm *defaultDatabaseManager) GetSQLDB() *sql.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.sqlDB
}

func (dm *defaultDatabaseManager) HealthCheck(ctx context.Context) *HealthStatus {
	start := time.Now()
	status := &HealthStatus{LastCheckTime: start}

	dm.mu.RLock()
	db, sqlDB := dm.db, dm.sqlDB
	dm.mu.RUnlock()

	if db == nil {
		status.LastError = "Database not initialized"
	} else {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := db.PingContext(pingCtx)
		cancel()
		status.ResponseTime = time.Since(start)
		status.Healthy = err == nil
		status.Connected = err == nil
		if err != nil {
			status.LastError = err.Error()
		}
		stats := sqlDB.Stats()
		status.ActiveConns = stats.InUse
		status.IdleConns = stats.Idle
		status.MaxOpenConns = stats.MaxOpenConnections
	}

	dm.mu.Lock()
	dm.health = status
	if !status.Healthy {
		dm.lastError = errors.New(status.LastError)
	}
	dm.mu.Unlock()
	return status
}

// watch checks the database every HealthCheckInterval and reconnects, up to
// MaxReconnectTries in a row, while it is unhealthy.
func (dm *defaultDatabaseManager) watch(ctx context.Context) {
	ticker := time.NewTicker(dm.config.HealthCheckInterval)
	defer ticker.Stop()

	tries := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		healthy := dm.HealthCheck(checkCtx).Healthy
		cancel()
		if healthy {
			tries = 0
			continue
		}
		if !dm.config.EnableReconnect || tries >= dm.config.MaxReconnectTries {
			continue
		}

		tries++
		dm.log(func(l Logger) { l.Info("Reconnecting to the database", "try", tries) })
		select {
		case <-ctx.Done():
			return
		case <-time.After(dm.config.ReconnectInterval):
		}
		reconnectCtx, cancel := context.WithTimeout(ctx, dm.config.ConnectTimeout)
		err := dm.Reconnect(reconnectCtx)
		cancel()
		if err != nil {
			dm.log(func(l Logger) { l.Error("Reconnect failed", "error", err, "try", tries) })
			continue
		}
		tries = 0
		dm.log(func(l Logger) { l.Info("Reconnect succeeded") })
	}
}

func (dm *defaultDatabaseManager) GetStats() *DBStats {
	sqlDB := dm.GetSQLDB()
	if sqlDB == nil {
		return &DBStats{}
	}
	s := sqlDB.Stats()
	return &DBStats{
		MaxOpenConns:      s.MaxOpenConnections,
		OpenConns:         s.OpenConnections,
		InUse:             s.InUse,
		Idle:              s.Idle,
		WaitCount:         s.WaitCount,
		WaitDuration:      s.WaitDuration,
		MaxIdleClosed:     s.MaxIdleClosed,
		MaxIdleTimeClosed: s.MaxIdleTimeClosed,
		MaxLifetimeClosed: s.MaxLifetimeClosed,
	}
}

func (dm *defaultDatabaseManager) RunMigrations(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return errNotConnected
	}
	return NewMigrationManager(db, dm.logger).RunMigrations(ctx)
}

func (dm *defaultDatabaseManager) SetLogger(logger Logger) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.logger = logger
}

func (dm *defaultDatabaseManager) log(fn func(Logger)) {
	dm.mu.RLock()
	l := dm.logger
	dm.mu.RUnlock()
	if l != nil {
		fn(l)
	}
}
