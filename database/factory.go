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
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/uptrace/bun"
)

// SupportedTypes lists the accepted ConnectionConfig.Type values. "postgres"
// uses lib/pq and "pgx" uses the pgx stdlib driver.
var SupportedTypes = []string{"mysql", "postgres", "pgx", "sqlite"}

var errNoManager = errors.New("database manager not created")

// BaseDatabaseFactory owns the single database manager of the process and
// serves as the pool source for units of work.
type BaseDatabaseFactory struct {
	manager AbstractDatabaseManager
	logger  Logger
}

// NewDatabaseFactory returns a factory using the global logger.
func NewDatabaseFactory() *BaseDatabaseFactory {
	return &BaseDatabaseFactory{logger: GetLogger()}
}

// CreateFromConfig applies the DB_* environment overrides to cfg and
// builds the manager. It does not connect.
func (f *BaseDatabaseFactory) CreateFromConfig(cfg *ConnectionConfig) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, errors.New("database configuration cannot be empty")
	}
	ApplyEnvOverrides(cfg)
	if !slices.Contains(SupportedTypes, cfg.Type) {
		return nil, fmt.Errorf("unsupported database type: %s, supported types: %v", cfg.Type, SupportedTypes)
	}
	f.manager = NewDatabaseManager(cfg)
	f.manager.SetLogger(f.logger)
	return f.manager, nil
}

type envOverride struct {
	key   string
	apply func(cfg *ConnectionConfig, v string) error
}

func envInt(set func(*ConnectionConfig, int)) func(*ConnectionConfig, string) error {
	return func(cfg *ConnectionConfig, v string) error {
		n, err := strconv.Atoi(v)
		if err == nil {
			set(cfg, n)
		}
		return err
	}
}

func envBool(set func(*ConnectionConfig, bool)) func(*ConnectionConfig, string) error {
	return func(cfg *ConnectionConfig, v string) error {
		b, err := strconv.ParseBool(v)
		if err == nil {
			set(cfg, b)
		}
		return err
	}
}

// envDuration accepts Go durations ("90s") and plain seconds ("90").
func envDuration(set func(*ConnectionConfig, time.Duration)) func(*ConnectionConfig, string) error {
	return func(cfg *ConnectionConfig, v string) error {
		if n, err := strconv.Atoi(v); err == nil {
			set(cfg, time.Duration(n)*time.Second)
			return nil
		}
		d, err := time.ParseDuration(v)
		if err == nil {
			set(cfg, d)
		}
		return err
	}
}

func envString(set func(*ConnectionConfig, string)) func(*ConnectionConfig, string) error {
	return func(cfg *ConnectionConfig, v string) error {
		set(cfg, v)
		return nil
	}
}

var envOverrides = []envOverride{
	{"DB_TYPE", envString(func(c *ConnectionConfig, v string) { c.Type = v })},
	{"DB_HOST", envString(func(c *ConnectionConfig, v string) { c.Host = v })},
	{"DB_PORT", envInt(func(c *ConnectionConfig, n int) { c.Port = n })},
	{"DB_USERNAME", envString(func(c *ConnectionConfig, v string) { c.Username = v })},
	{"DB_PASSWORD", envString(func(c *ConnectionConfig, v string) { c.Password = v })},
	{"DB_NAME", envString(func(c *ConnectionConfig, v string) { c.DBName = v })},
	{"DB_SSLMODE", envString(func(c *ConnectionConfig, v string) { c.SSLMode = v })},
	{"DB_MAX_IDLE_CONNS", envInt(func(c *ConnectionConfig, n int) { c.MaxIdleConns = n })},
	{"DB_MAX_OPEN_CONNS", envInt(func(c *ConnectionConfig, n int) { c.MaxOpenConns = n })},
	{"DB_CONN_MAX_LIFETIME", envDuration(func(c *ConnectionConfig, d time.Duration) { c.ConnMaxLifetime = d })},
	{"DB_ENABLE_RECONNECT", envBool(func(c *ConnectionConfig, b bool) { c.EnableReconnect = b })},
	{"DB_RECONNECT_INTERVAL", envDuration(func(c *ConnectionConfig, d time.Duration) { c.ReconnectInterval = d })},
	{"DB_ENABLE_QUERY_LOG", envBool(func(c *ConnectionConfig, b bool) { c.EnableQueryLog = b })},
	{"DB_SLOW_QUERY_TIME", envDuration(func(c *ConnectionConfig, d time.Duration) { c.SlowQueryTime = d })},
}

// ApplyEnvOverrides sets every field whose DB_* variable is present.
// Malformed values are logged and skipped.
func ApplyEnvOverrides(cfg *ConnectionConfig) {
	for _, o := range envOverrides {
		v, ok := os.LookupEnv(o.key)
		if !ok || v == "" {
			continue
		}
		if err := o.apply(cfg, v); err != nil {
			GetLogger().Warn("Ignoring malformed environment override", "key", o.key, "error", err.Error())
		}
	}
}

// InitializeDatabase connects and, when runMigrations is set, brings the
// schema up to date.
func (f *BaseDatabaseFactory) InitializeDatabase(ctx context.Context, runMigrations bool, fks *ForeignKeyManager) error {
	if f.manager == nil {
		return errNoManager
	}
	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if runMigrations {
		if err := f.manager.RunMigrations(ctx, fks); err != nil {
			return fmt.Errorf("failed to run database migrations: %w", err)
		}
	}
	f.logger.Info("Database initialization completed!")
	return nil
}

// AppliedMigrations lists the migrations recorded in the connected
// database, oldest first.
func (f *BaseDatabaseFactory) AppliedMigrations(ctx context.Context) ([]Migration, error) {
	db := f.GetDB()
	if db == nil {
		return nil, errNoManager
	}
	return NewMigrationManager(db, f.logger, nil).GetAppliedMigrations(ctx)
}

// GetDB returns nil until a manager is created and connected.
func (f *BaseDatabaseFactory) GetDB() *bun.DB {
	if f.manager == nil {
		return nil
	}
	return f.manager.GetDB()
}

func (f *BaseDatabaseFactory) Close() error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect()
}

// Shutdown closes the connection when the owning container shuts down.
func (f *BaseDatabaseFactory) Shutdown() error {
	return f.Close()
}

// GetHealthStatus reports an unhealthy status until a manager exists.
func (f *BaseDatabaseFactory) GetHealthStatus(ctx context.Context) *HealthStatus {
	if f.manager == nil {
		return &HealthStatus{LastError: errNoManager.Error(), LastCheckTime: time.Now()}
	}
	return f.manager.HealthCheck(ctx)
}

func (f *BaseDatabaseFactory) GetStats() *DBStats {
	if f.manager == nil {
		return &DBStats{}
	}
	return f.manager.GetStats()
}
