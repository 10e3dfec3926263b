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

// Package config loads the bookshelf configuration from defaults, an
// optional YAML file, a .env file and the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/tomoncle/bookshelf/database"
	"github.com/tomoncle/bookshelf/uow"
	"github.com/tomoncle/bookshelf/utils"
	"gopkg.in/yaml.v3"
)

type Server struct {
	Addr               string        `yaml:"addr"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
	ReadHeaderTimeout  time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

type UnitOfWork struct {
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
}

type Config struct {
	Server     Server          `yaml:"server"`
	Log        Log             `yaml:"log"`
	Database   database.Config `yaml:"database"`
	UnitOfWork UnitOfWork      `yaml:"uow"`
}

// Default returns the configuration used when nothing else is given.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:               ":8080",
			CORSAllowedOrigins: []string{"*"},
			ReadHeaderTimeout:  10 * time.Second,
			ShutdownTimeout:    15 * time.Second,
		},
		Log: Log{Level: "info", Format: "text"},
		Database: database.Config{
			ConnectionConfig: *database.DefaultConnectionConfig(),
			DataMigrateConfig: database.DataMigrateConfig{
				EnableMigrateOnStartup: true,
			},
		},
		UnitOfWork: UnitOfWork{AcquireTimeout: uow.DefaultAcquireTimeout},
	}
}

// Load builds the configuration. An empty path skips the YAML file; a
// missing .env file is ignored.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = utils.EnvDefaultString("BOOKSHELF_ADDR", c.Server.Addr)
	c.Log.Level = utils.EnvDefaultString("LOG_LEVEL", c.Log.Level)
	c.Log.Format = utils.EnvDefaultString("CONSOLE_LOG_FORMAT", c.Log.Format)
	c.UnitOfWork.AcquireTimeout = utils.EnvDefaultDuration("UOW_ACQUIRE_TIMEOUT", c.UnitOfWork.AcquireTimeout)
	c.Database.DataMigrateConfig.EnableMigrateOnStartup = utils.EnvDefaultBool("DB_MIGRATE_ON_STARTUP", c.Database.DataMigrateConfig.EnableMigrateOnStartup)
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		c.Server.CORSAllowedOrigins = splitList(origins)
	}
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server address must not be empty")
	}
	if c.UnitOfWork.AcquireTimeout <= 0 {
		return fmt.Errorf("uow acquire timeout must be positive, got %s", c.UnitOfWork.AcquireTimeout)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
