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
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/uptrace/bun"
)

// BaseDatabaseFactory builds one database manager from configuration and
// owns it afterwards.
type BaseDatabaseFactory struct {
	manager AbstractDatabaseManager
	logger  Logger
}

func NewDatabaseFactory() *BaseDatabaseFactory {
	return &BaseDatabaseFactory{logger: GetLogger()}
}

// envBindings lists the DB_* variables that override file configuration.
// Values that fail to parse are ignored.
var envBindings = map[string]func(c *ConnectionConfig, v string){
	"DB_TYPE":     func(c *ConnectionConfig, v string) { c.Type = v },
	"DB_DRIVER":   func(c *ConnectionConfig, v string) { c.Driver = v },
	"DB_HOST":     func(c *ConnectionConfig, v string) { c.Host = v },
	"DB_PORT":     func(c *ConnectionConfig, v string) { setInt(&c.Port, v) },
	"DB_USERNAME": func(c *ConnectionConfig, v string) { c.Username = v },
	"DB_PASSWORD": func(c *ConnectionConfig, v string) { c.Password = v },
	"DB_NAME":     func(c *ConnectionConfig, v string) { c.DBName = v },
	"DB_SSLMODE":  func(c *ConnectionConfig, v string) { c.SSLMode = v },
	"DB_CHARSET":  func(c *ConnectionConfig, v string) { c.Charset = v },

	"DB_MAX_IDLE_CONNS":    func(c *ConnectionConfig, v string) { setInt(&c.MaxIdleConns, v) },
	"DB_MAX_OPEN_CONNS":    func(c *ConnectionConfig, v string) { setInt(&c.MaxOpenConns, v) },
	"DB_CONN_MAX_LIFETIME": func(c *ConnectionConfig, v string) { setSeconds(&c.ConnMaxLifetime, v) },

	"DB_ENABLE_RECONNECT":   func(c *ConnectionConfig, v string) { c.EnableReconnect = v == "true" },
	"DB_RECONNECT_INTERVAL": func(c *ConnectionConfig, v string) { setSeconds(&c.ReconnectInterval, v) },

	"DB_ENABLE_QUERY_LOG": func(c *ConnectionConfig, v string) { c.EnableQueryLog = v == "true" },
	"DB_QUERY_LOG_STYLE":  func(c *ConnectionConfig, v string) { c.QueryLogStyle = v },
	"DB_SLOW_QUERY_MS": func(c *ConnectionConfig, v string) {
		if ms, err := strconv.Atoi(v); err == nil {
			c.SlowQueryTime = time.Duration(ms) * time.Millisecond
		}
	},
	"DB_ENABLE_METRICS": func(c *ConnectionConfig, v string) { c.EnableMetrics = v == "true" },
}

func setInt(dst *int, v string) {
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

func setSeconds(dst *time.Duration, v string) {
	if n, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(n) * time.Second
	}
}

func applyEnv(cfg *ConnectionConfig) {
	for key, apply := range envBindings {
		if v := os.Getenv(key); v != "" {
			apply(cfg, v)
		}
	}
}

// CreateFromConfig applies the DB_* overrides to cfg, checks the database
// type and driver, and returns a manager that is not yet connected.
func (f *BaseDatabaseFactory) CreateFromConfig(cfg *ConnectionConfig) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	applyEnv(cfg)

	if _, ok := lookupDialect(cfg.Type); !ok {
		return nil, fmt.Errorf("unsupported database type: %s, supported types: [mysql postgres sqlite]", cfg.Type)
	}
	switch cfg.Driver {
	case "", "pq", "pgx":
	default:
		if cfg.Type == "postgres" || cfg.Type == "postgresql" {
			return nil, fmt.Errorf("unsupported postgres driver: %s, supported drivers: [pq pgx]", cfg.Driver)
		}
	}

	f.manager = NewDatabaseManager(cfg)
	f.manager.SetLogger(f.logger)
	return f.manager, nil
}

// InitializeDatabase connects and, when migrate asks for it, creates the
// registered tables.
func (f *BaseDatabaseFactory) InitializeDatabase(ctx context.Context, migrate DataMigrateConfig) error {
	if f.manager == nil {
		return fmt.Errorf("database manager not created")
	}
	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if migrate.EnableMigrateOnStartup {
		mm := NewMigrationManager(f.manager.GetDB(), f.logger)
		mm.SetForeignKeys(migrate.EnableForeignKey)
		if err := mm.RunMigrations(ctx); err != nil {
			return fmt.Errorf("failed to run database migrations: %w", err)
		}
	}
	f.logger.Info("Database initialized", "migrated", migrate.EnableMigrateOnStartup)
	return nil
}

func (f *BaseDatabaseFactory) GetManager() AbstractDatabaseManager {
	return f.manager
}

// GetDB returns nil before CreateFromConfig.
func (f *BaseDatabaseFactory) GetDB() *bun.DB {
	if f.manager == nil {
		return nil
	}
	return f.manager.GetDB()
}

func (f *BaseDatabaseFactory) SetLogger(logger Logger) {
	f.logger = logger
	if f.manager != nil {
		f.manager.SetLogger(logger)
	}
}

func (f *BaseDatabaseFactory) Close() error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect()
}

func (f *BaseDatabaseFactory) GetHealthStatus(ctx context.Context) *HealthStatus {
	if f.manager == nil {
		return &HealthStatus{LastError: "Database manager not initialized", LastCheckTime: time.Now()}
	}
	return f.manager.HealthCheck(ctx)
}

func (f *BaseDatabaseFactory) GetStats() *DBStats {
	if f.manager == nil {
		return &DBStats{}
	}
	return f.manager.GetStats()
}
