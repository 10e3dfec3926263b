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

// Package dbtest opens migrated in-memory sqlite databases for tests.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/bookshelf/database"
	_ "github.com/tomoncle/bookshelf/models"
	"github.com/tomoncle/bookshelf/utils"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// New returns a private, migrated database closed at test cleanup. The
// pool holds a single connection, so a unit of work in progress owns the
// whole database.
func New(t testing.TB) *bun.DB {
	t.Helper()
	db := Open(t)
	err := database.NewMigrationManager(db, nil, nil).RunMigrations(context.Background())
	require.NoError(t, err)
	return db
}

var quiet sync.Once

// Open returns an empty database with the models registered. Logs are
// discarded unless the tests run verbose.
func Open(t testing.TB) *bun.DB {
	t.Helper()
	quiet.Do(func() {
		if !testing.Verbose() {
			utils.ConfigureOutput(io.Discard)
		}
	})
	dsn := database.SQLiteDSN(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	sqlDB, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	db := bun.NewDB(sqlDB, sqlitedialect.New())
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)
	database.RegisterModels(db)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
