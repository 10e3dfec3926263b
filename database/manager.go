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
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/schema"
)

var errNotConnected = errors.New("database not connected")

// opener returns the driver name, DSN and bun dialect for a config.
type opener func(cfg *ConnectionConfig) (driver, dsn string, dialect schema.Dialect)

var openers = map[string]opener{
	"mysql": func(cfg *ConnectionConfig) (string, string, schema.Dialect) {
		return "mysql", MySQLDSN(cfg), mysqldialect.New()
	},
	"postgres": func(cfg *ConnectionConfig) (string, string, schema.Dialect) {
		return "postgres", PostgresDSN(cfg), pgdialect.New()
	},
	"pgx": func(cfg *ConnectionConfig) (string, string, schema.Dialect) {
		return "pgx", PostgresDSN(cfg), pgdialect.New()
	},
	"sqlite": func(cfg *ConnectionConfig) (string, string, schema.Dialect) {
		return sqliteshim.ShimName, SQLiteDSN(cfg.DBName), sqlitedialect.New()
	},
}

// MySQLDSN builds a go-sql-driver DSN storing times as UTC.
func MySQLDSN(cfg *ConnectionConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Timeout = cfg.ConnectTimeout
	mc.ReadTimeout = cfg.ReadTimeout
	mc.WriteTimeout = cfg.WriteTimeout
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// PostgresDSN builds a URL understood by both lib/pq and pgx.
func PostgresDSN(cfg *ConnectionConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	q := url.Values{}
	q.Set("sslmode", sslMode)
	if cfg.ConnectTimeout > 0 {
		q.Set("connect_timeout", fmt.Sprint(int(cfg.ConnectTimeout.Seconds())))
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:     "/" + cfg.DBName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// SQLiteDSN turns a database name into a sqlite URI with foreign keys
// enabled for both the modernc and the mattn driver. Names already in URI
// form are only extended.
func SQLiteDSN(name string) string {
	dsn := name
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
		if !strings.HasSuffix(dsn, ".db") && !strings.Contains(dsn, ":memory:") {
			dsn += ".db"
		}
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_foreign_keys=1"
}

// defaultDatabaseManager holds one bun pool and keeps it alive with a
// periodic health check that reconnects on failure.
type defaultDatabaseManager struct {
	config *ConnectionConfig
	logger Logger

	mu    sync.RWMutex
	db    *bun.DB
	sqlDB *sql.DB

	monitorOnce sync.Once
	stopOnce    sync.Once
	stop        chan struct{}
}

// NewDatabaseManager returns a manager for config. A nil config falls back
// to DefaultConnectionConfig.
func NewDatabaseManager(config *ConnectionConfig) AbstractDatabaseManager {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	return &defaultDatabaseManager{
		config: config,
		logger: GetLogger(),
		stop:   make(chan struct{}),
	}
}

func (dm *defaultDatabaseManager) Connect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.db != nil {
		return nil
	}

	db, err := dm.open(ctx)
	if err != nil {
		return err
	}
	dm.db, dm.sqlDB = db, db.DB

	if dm.config.HealthCheckInterval > 0 {
		dm.monitorOnce.Do(func() { go dm.monitor() })
	}
	dm.logger.Info("Database connected successfully", "type", dm.config.Type, "host", dm.config.Host, "dbname", dm.config.DBName)
	return nil
}

// open builds a pool, verifies it with a ping and registers the models.
func (dm *defaultDatabaseManager) open(ctx context.Context) (*bun.DB, error) {
	open, ok := openers[dm.config.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported database type: %s", dm.config.Type)
	}
	if dm.config.ConnectTimeout <= 0 {
		dm.config.ConnectTimeout = 30 * time.Second
	}
	driver, dsn, dialect := open(dm.config)
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}
	sqlDB.SetMaxIdleConns(dm.config.MaxIdleConns)
	sqlDB.SetMaxOpenConns(dm.config.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(dm.config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(dm.config.ConnMaxIdleTime)

	db := bun.NewDB(sqlDB, dialect)
	dm.addHooks(db)

	pingCtx, cancel := context.WithTimeout(ctx, dm.config.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database connection test failed: %w", err)
	}
	RegisterModels(db)
	return db, nil
}

func (dm *defaultDatabaseManager) addHooks(db *bun.DB) {
	if dm.config.EnableQueryLog {
		db.AddQueryHook(NewQueryHook(os.Stdout, false, dm.config.SlowQueryTime))
	}
	if _, ok := os.LookupEnv("BUNDEBUG"); ok {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.FromEnv("BUNDEBUG")))
	}
	if dm.config.SlowQueryTime > 0 {
		db.AddQueryHook(&slowQueryHook{slowTime: dm.config.SlowQueryTime, logger: dm.logger})
	}
}

// Disconnect closes the pool and stops the health monitor for good.
func (dm *defaultDatabaseManager) Disconnect() error {
	dm.stopOnce.Do(func() { close(dm.stop) })

	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.closeLocked()
}

func (dm *defaultDatabaseManager) closeLocked() error {
	if dm.db == nil {
		return nil
	}
	err := dm.db.Close()
	dm.db, dm.sqlDB = nil, nil
	if err != nil {
		dm.logger.Error("Failed to close database connection", "error", err)
		return err
	}
	dm.logger.Info("Database connection closed")
	return nil
}

// Reconnect replaces the pool. Units of work already holding a connection
// from the old pool fail on their next statement.
func (dm *defaultDatabaseManager) Reconnect(ctx context.Context) error {
	dm.logger.Info("Attempting to reconnect to the database")
	dm.mu.Lock()
	if err := dm.closeLocked(); err != nil {
		dm.logger.Warn("Error disconnecting existing connection", "error", err)
	}
	dm.mu.Unlock()
	return dm.Connect(ctx)
}

func (dm *defaultDatabaseManager) Ping(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return errNotConnected
	}
	return db.PingContext(ctx)
}

// GetDB returns the pool, or nil while disconnected.
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

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := dm.Ping(pingCtx)
	status.ResponseTime = time.Since(start)
	status.Connected = !errors.Is(err, errNotConnected)
	status.Healthy = err == nil
	if err != nil {
		status.LastError = err.Error()
	}

	if sqlDB := dm.GetSQLDB(); sqlDB != nil {
		stats := sqlDB.Stats()
		status.ActiveConns = stats.InUse
		status.IdleConns = stats.Idle
		status.MaxOpenConns = stats.MaxOpenConnections
	}
	return status
}

// monitor checks health every HealthCheckInterval and reconnects, at most
// MaxReconnectTries times in a row, while the check fails.
func (dm *defaultDatabaseManager) monitor() {
	ticker := time.NewTicker(dm.config.HealthCheckInterval)
	defer ticker.Stop()
	failures := 0
	for {
		select {
		case <-dm.stop:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		healthy := dm.HealthCheck(ctx).Healthy
		cancel()
		if healthy {
			failures = 0
			continue
		}
		if !dm.config.EnableReconnect {
			continue
		}
		if failures >= dm.config.MaxReconnectTries {
			dm.logger.Error("Max reconnect attempts reached, stopping", "tries", failures)
			continue
		}
		failures++
		select {
		case <-dm.stop:
			return
		case <-time.After(dm.config.ReconnectInterval):
		}
		ctx, cancel = context.WithTimeout(context.Background(), dm.config.ConnectTimeout)
		if err := dm.Reconnect(ctx); err != nil {
			dm.logger.Error("Reconnect failed", "error", err, "try", failures)
		} else {
			dm.logger.Info("Reconnect succeeded", "try", failures)
		}
		cancel()
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

func (dm *defaultDatabaseManager) RunMigrations(ctx context.Context, fks *ForeignKeyManager) error {
	db := dm.GetDB()
	if db == nil {
		return errNotConnected
	}
	return NewMigrationManager(db, dm.logger, fks).RunMigrations(ctx)
}

func (dm *defaultDatabaseManager) SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.logger = logger
}

type slowQueryHook struct {
	slowTime time.Duration
	logger   Logger
}

func (h *slowQueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *slowQueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if event.Err != nil {
		return
	}
	if d := time.Since(event.StartTime); d > h.slowTime {
		h.logger.Warn("Database slow query detected", "duration", d, "slow_threshold", h.slowTime, "query", event.Query)
	}
}
