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

	"github.com/uptrace/bun"
)

var (
	globalFactory *BaseDatabaseFactory
	DB            *bun.DB
)

// Open builds, connects and, when cfg asks for it, migrates a new manager.
// The caller owns the manager.
func Open(ctx context.Context, cfg *Config) (AbstractDatabaseManager, error) {
	f, err := openFactory(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return f.GetManager(), nil
}

// InitDB opens the process-wide database used by GetDB and CloseDB. An
// earlier global database is closed first.
func InitDB(ctx context.Context, cfg *Config) (*bun.DB, error) {
	f, err := openFactory(ctx, cfg)
	if err != nil {
		return nil, err
	}
	_ = CloseDB()
	globalFactory = f
	DB = f.GetDB()
	return DB, nil
}

func openFactory(ctx context.Context, cfg *Config) (*BaseDatabaseFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	f := NewDatabaseFactory()
	manager, err := f.CreateFromConfig(&cfg.ConnectionConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := f.InitializeDatabase(ctx, cfg.DataMigrateConfig); err != nil {
		_ = manager.Disconnect()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	manager.GetDB().RegisterModel(RegisteredModelInstances()...)
	return f, nil
}

// GetDB returns the global Bun database instance.
func GetDB() *bun.DB {
	if globalFactory != nil {
		return globalFactory.GetDB()
	}
	return DB
}

// GetDatabaseManager returns the global database manager.
func GetDatabaseManager() AbstractDatabaseManager {
	if globalFactory != nil {
		return globalFactory.GetManager()
	}
	return nil
}

// CloseDB closes the global database connection.
func CloseDB() error {
	if globalFactory == nil {
		return nil
	}
	err := globalFactory.Close()
	globalFactory = nil
	DB = nil
	return err
}

// GetHealthStatus returns the current global database health status.
func GetHealthStatus(ctx context.Context) *HealthStatus {
	if globalFactory != nil {
		return globalFactory.GetHealthStatus(ctx)
	}
	return &HealthStatus{
		Healthy:   false,
		Connected: false,
		LastError: "Database not initialized",
	}
}
