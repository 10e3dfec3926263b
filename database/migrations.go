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
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/uptrace/bun"
)

var (
	registeredMigrations   []MigrationItem
	registeredMigrationsMu sync.RWMutex
)

// MigrationManager applies versioned migrations, each in its own transaction.
type MigrationManager struct {
	db     *bun.DB
	logger Logger
	fks    *ForeignKeyManager
}

// Migration represents an applied migration record stored in the database.
type Migration struct {
	bun.BaseModel `bun:"table:schema_migrations,alias:sm"`

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

// RegisterMigration adds a migration that runs after the base tables exist.
func RegisterMigration(m MigrationItem) {
	registeredMigrationsMu.Lock()
	defer registeredMigrationsMu.Unlock()
	registeredMigrations = append(registeredMigrations, m)
}

// NewMigrationManager constructs a MigrationManager. A nil fks declares no
// foreign keys beyond the code-registered ones.
func NewMigrationManager(db *bun.DB, logger Logger, fks *ForeignKeyManager) *MigrationManager {
	if logger == nil {
		logger = GetLogger()
	}
	if fks == nil {
		fks = NewForeignKeyManager(logger, "")
	}
	return &MigrationManager{db: db, logger: logger, fks: fks}
}

// RunMigrations creates the tracking table if needed and applies every
// pending migration in ascending version order.
func (mm *MigrationManager) RunMigrations(ctx context.Context) error {
	if mm.db == nil {
		return fmt.Errorf("database not initialized")
	}
	if _, ok := os.LookupEnv("BUNDEBUG_MIGRATION"); !ok {
		EnableBunSqlSilent(true)
		defer EnableBunSqlSilent(false)
	}
	if errs := mm.fks.ValidateConstraints(); len(errs) > 0 {
		for _, err := range errs {
			mm.logger.Warn("Foreign key constraint validation failed", "error", err.Error())
		}
		return fmt.Errorf("foreign key constraint validation failed, %d errors in total", len(errs))
	}
	if _, err := mm.db.NewCreateTable().Model((*Migration)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := mm.appliedVersions(ctx)
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}
	pending := 0
	for _, item := range mm.migrationItems() {
		if applied[item.Version] {
			continue
		}
		if err := mm.apply(ctx, item); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", item.Version, err)
		}
		pending++
	}
	mm.logger.Info("Database migrations completed!", "applied", pending)
	return nil
}

// migrationItems returns the base table migration followed by the
// registered ones, sorted by version.
func (mm *MigrationManager) migrationItems() []MigrationItem {
	registeredMigrationsMu.RLock()
	items := slices.Clone(registeredMigrations)
	registeredMigrationsMu.RUnlock()

	items = append(items, MigrationItem{
		Version:     "001",
		Name:        "create_base_tables",
		Description: "Create tables for registered models",
		Up:          mm.createBaseTables,
	})
	slices.SortStableFunc(items, func(a, b MigrationItem) int {
		return strings.Compare(a.Version, b.Version)
	})
	return items
}

func (mm *MigrationManager) appliedVersions(ctx context.Context) (map[string]bool, error) {
	var versions []string
	if err := mm.db.NewSelect().Model((*Migration)(nil)).Column("version").Scan(ctx, &versions); err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(versions))
	for _, v := range versions {
		set[v] = true
	}
	return set, nil
}

// apply runs one migration and records it in the same transaction.
func (mm *MigrationManager) apply(ctx context.Context, item MigrationItem) error {
	err := mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := item.Up(ctx, tx); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(&Migration{
			Version:     item.Version,
			Name:        item.Name,
			AppliedAt:   time.Now().UTC(),
			Description: item.Description,
		}).Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}
	mm.logger.Info("Migration executed successfully", "version", item.Version, "name", item.Name)
	return nil
}

func (mm *MigrationManager) createBaseTables(ctx context.Context, db bun.IDB) error {
	for _, model := range RegisteredModelInstances() {
		q := db.NewCreateTable().Model(model).IfNotExists()
		q = mm.fks.ApplyTo(q, mm.tableName(model))
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table %T: %w", model, err)
		}
	}
	return nil
}

func (mm *MigrationManager) tableName(model interface{}) string {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return mm.db.Table(t).Name
}

// GetAppliedMigrations returns migration records ordered by version.
func (mm *MigrationManager) GetAppliedMigrations(ctx context.Context) ([]Migration, error) {
	var migrations []Migration
	err := mm.db.NewSelect().
		Model(&migrations).
		Order("version ASC").
		Scan(ctx)
	return migrations, err
}
