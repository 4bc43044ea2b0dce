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
	"sort"
	"sync"
	"time"

	"github.com/uptrace/bun"
)

// MigrationManager applies versioned schema steps once each, recording them
// in the migrations table.
type MigrationManager struct {
	db          *bun.DB
	logger      Logger
	foreignKeys bool
	models      []interface{}
}

// Migration represents an applied migration record stored in the database.
type Migration struct {
	bun.BaseModel `bun:"table:datajpa_migrations"`

	Version     string    `bun:"version,pk"`
	Name        string    `bun:"name"`
	AppliedAt   time.Time `bun:"applied_at"`
	Description string    `bun:"description"`
}

// MigrationFunc is a migration step executed within a transaction.
type MigrationFunc func(ctx context.Context, db bun.IDB) error

// MigrationItem describes a single migration version.
type MigrationItem struct {
	Version     string
	Name        string
	Description string
	Up          MigrationFunc
}

var (
	registeredMigrationsMu sync.Mutex
	registeredMigrations   []MigrationItem
)

// RegisterMigration adds a step that runs after the base tables exist.
// Versions sort as strings and must be unique.
func RegisterMigration(m MigrationItem) {
	registeredMigrationsMu.Lock()
	defer registeredMigrationsMu.Unlock()
	registeredMigrations = append(registeredMigrations, m)
}

// NewMigrationManager constructs a MigrationManager over the registered
// models. Foreign keys are emitted by default.
func NewMigrationManager(db *bun.DB, logger Logger) *MigrationManager {
	return &MigrationManager{
		db:          db,
		logger:      logger,
		foreignKeys: true,
	}
}

// SetForeignKeys toggles FOREIGN KEY clauses for belongs-to relations.
func (mm *MigrationManager) SetForeignKeys(on bool) {
	mm.foreignKeys = on
}

// SetModels replaces the registered models with an explicit list.
func (mm *MigrationManager) SetModels(models ...interface{}) {
	mm.models = models
}

// RunMigrations creates the migration tracking table if needed and executes
// every pending migration in ascending version order.
func (mm *MigrationManager) RunMigrations(ctx context.Context) error {
	if mm.db == nil {
		return fmt.Errorf("database not initialized")
	}

	if err := mm.createMigrationTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations, err := mm.getAllMigrations()
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if err := mm.runMigration(ctx, migration); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", migration.Version, err)
		}
	}

	if mm.logger != nil {
		mm.logger.Info("Database migrations completed!")
	}
	return nil
}

// AppliedVersions lists the recorded migration versions in order.
func (mm *MigrationManager) AppliedVersions(ctx context.Context) ([]string, error) {
	var versions []string
	err := mm.db.NewSelect().
		Model((*Migration)(nil)).
		Column("version").
		Order("version ASC").
		Scan(ctx, &versions)
	return versions, err
}

func (mm *MigrationManager) createMigrationTable(ctx context.Context) error {
	_, err := mm.db.NewCreateTable().
		Model((*Migration)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (mm *MigrationManager) getAllMigrations() ([]MigrationItem, error) {
	registeredMigrationsMu.Lock()
	all := append([]MigrationItem{{
		Version:     "001",
		Name:        "create_base_tables",
		Description: "Create tables of the registered models",
		Up:          mm.createBaseTables,
	}}, registeredMigrations...)
	registeredMigrationsMu.Unlock()

	sort.SliceStable(all, func(i, j int) bool { return all[i].Version < all[j].Version })
	for i := 1; i < len(all); i++ {
		if all[i].Version == all[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version %s", all[i].Version)
		}
	}
	return all, nil
}

func (mm *MigrationManager) runMigration(ctx context.Context, migration MigrationItem) error {
	exists, err := mm.db.NewSelect().
		Model((*Migration)(nil)).
		Where("version = ?", migration.Version).
		Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	return mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := migration.Up(ctx, tx); err != nil {
			return err
		}
		_, err := tx.NewInsert().
			Model(&Migration{
				Version:     migration.Version,
				Name:        migration.Name,
				AppliedAt:   time.Now(),
				Description: migration.Description,
			}).
			Exec(ctx)
		if err != nil {
			return err
		}
		if mm.logger != nil {
			mm.logger.Info("Migration executed successfully", "version", migration.Version, "name", migration.Name)
		}
		return nil
	})
}

func (mm *MigrationManager) createBaseTables(ctx context.Context, db bun.IDB) error {
	models := mm.models
	if len(models) == 0 {
		models = RegisteredModelInstances()
	}
	for _, model := range models {
		q := db.NewCreateTable().
			Model(model).
			IfNotExists()
		if mm.foreignKeys {
			q = q.WithForeignKeys()
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table %T: %w", model, err)
		}
	}
	return nil
}
