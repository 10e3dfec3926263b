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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Database.ConnectionConfig.Type)
	assert.True(t, cfg.Database.DataMigrateConfig.EnableMigrateOnStartup)
	assert.Equal(t, 5*time.Second, cfg.UnitOfWork.AcquireTimeout)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookshelf.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
log:
  level: debug
  format: json
database:
  connection:
    type: postgres
    host: db
    port: 5432
  migrate:
    enable_migrate_on_startup: false
uow:
  acquire_timeout: 3s
`), 0o600))

	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "postgres", cfg.Database.ConnectionConfig.Type)
	assert.Equal(t, 5432, cfg.Database.ConnectionConfig.Port)
	assert.Equal(t, 100, cfg.Database.ConnectionConfig.MaxOpenConns)
	assert.False(t, cfg.Database.DataMigrateConfig.EnableMigrateOnStartup)
	assert.Equal(t, 3*time.Second, cfg.UnitOfWork.AcquireTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSAllowedOrigins)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BOOKSHELF_ADDR", "127.0.0.1:7000")
	t.Setenv("UOW_ACQUIRE_TIMEOUT", "250ms")
	t.Setenv("DB_MIGRATE_ON_STARTUP", "off")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Addr)
	assert.Equal(t, 250*time.Millisecond, cfg.UnitOfWork.AcquireTimeout)
	assert.False(t, cfg.Database.DataMigrateConfig.EnableMigrateOnStartup)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: ["), 0o600))
	_, err = Load(path)
	assert.Error(t, err)

	t.Setenv("CONSOLE_LOG_FORMAT", "xml")
	_, err = Load("")
	assert.ErrorContains(t, err, "unknown log format")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.UnitOfWork.AcquireTimeout = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Server.Addr = ""
	assert.Error(t, cfg.Validate())
}
