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

// BaseTablesVersion is the version of the built-in migration that creates
// every registered model's table.
const BaseTablesVersion = "000"

// Migration is an applied migration record.
type Migration struct {
	bun.BaseModel `bun:"table:roster_migrations"`

	Version     string    `bun:"version,pk" json:"version" yaml:"version"`
	Name        string    `bun:"name" json:"name" yaml:"name"`
	AppliedAt   time.Time `bun:"applied_at" json:"applied_at" yaml:"applied_at"`
	Description string    `bun:"description" json:"description" yaml:"description"`
}

// MigrationFunc is a migration step executed within a transaction.
type MigrationFunc func(ctx context.Context, db bun.IDB) error

// MigrationItem describes a single migration version with up/down functions.
type MigrationItem struct {
	Version     string
	Name        string
	Description string
	Up          MigrationFunc
	Down        MigrationFunc
}

var (
	migrationsMu sync.RWMutex
	migrations   = map[string]MigrationItem{}
)

// RegisterMigration adds a migration to the global set. Registering a
// version twice replaces the earlier item.
func RegisterMigration(item MigrationItem) {
	migrationsMu.Lock()
	defer migrationsMu.Unlock()
	migrations[item.Version] = item
}

// MigrationManager applies registered migrations in version order and
// records them in the roster_migrations table.
type MigrationManager struct {
	db      *bun.DB
	logger  Logger
	verbose bool
}

func NewMigrationManager(db *bun.DB, logger Logger) *MigrationManager {
	if logger == nil {
		logger = GetLogger()
	}
	return &MigrationManager{db: db, logger: logger}
}

// SetVerbose keeps the query log on while migrations run.
func (mm *MigrationManager) SetVerbose(verbose bool) { mm.verbose = verbose }

// RunMigrations creates the tracking table if needed and applies every
// pending migration in ascending version order.
func (mm *MigrationManager) RunMigrations(ctx context.Context) error {
	if mm.db == nil {
		return fmt.Errorf("database not initialized")
	}
	if !mm.verbose {
		SetQueryLogSilent(true)
		defer SetQueryLogSilent(false)
	}

	if err := mm.createMigrationTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	for _, migration := range mm.migrations() {
		if err := mm.runMigration(ctx, migration); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", migration.Version, err)
		}
	}
	mm.logger.Info("Database migrations completed")
	return nil
}

func (mm *MigrationManager) createMigrationTable(ctx context.Context) error {
	_, err := mm.db.NewCreateTable().
		Model((*Migration)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (mm *MigrationManager) migrations() []MigrationItem {
	items := []MigrationItem{{
		Version:     BaseTablesVersion,
		Name:        "create_base_tables",
		Description: "Create tables of registered models",
		Up:          createBaseTables,
		Down:        dropBaseTables,
	}}
	migrationsMu.RLock()
	for _, item := range migrations {
		if item.Version != BaseTablesVersion {
			items = append(items, item)
		}
	}
	migrationsMu.RUnlock()
	sort.Slice(items, func(i, j int) bool { return items[i].Version < items[j].Version })
	return items
}

func (mm *MigrationManager) find(version string) (MigrationItem, bool) {
	for _, item := range mm.migrations() {
		if item.Version == version {
			return item, true
		}
	}
	return MigrationItem{}, false
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

	err = mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
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
		return err
	})
	if err != nil {
		return err
	}
	mm.logger.Info("Migration executed successfully", "version", migration.Version, "name", migration.Name)
	return nil
}

// RollbackMigration reverts one applied migration using its Down step.
func (mm *MigrationManager) RollbackMigration(ctx context.Context, version string) error {
	migration, ok := mm.find(version)
	if !ok {
		return fmt.Errorf("unknown migration version %s", version)
	}
	if migration.Down == nil {
		return fmt.Errorf("migration %s cannot be rolled back", version)
	}
	err := mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*Migration)(nil)).
			Where("version = ?", version).
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("migration %s is not applied", version)
		}
		return migration.Down(ctx, tx)
	})
	if err != nil {
		return err
	}
	mm.logger.Info("Migration rolled back", "version", version, "name", migration.Name)
	return nil
}

// GetAppliedMigrations returns migration records ordered by version.
func (mm *MigrationManager) GetAppliedMigrations(ctx context.Context) ([]Migration, error) {
	var applied []Migration
	err := mm.db.NewSelect().
		Model(&applied).
		Order("version ASC").
		Scan(ctx)
	return applied, err
}

func createBaseTables(ctx context.Context, db bun.IDB) error {
	for _, model := range RegisteredModelInstances() {
		_, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create table %T: %w", model, err)
		}
	}
	return nil
}

func dropBaseTables(ctx context.Context, db bun.IDB) error {
	models := RegisteredModelInstances()
	for i := len(models) - 1; i >= 0; i-- {
		_, err := db.NewDropTable().
			Model(models[i]).
			IfExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to drop table %T: %w", models[i], err)
		}
	}
	return nil
}
