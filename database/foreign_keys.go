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
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/uptrace/bun"
	"gopkg.in/yaml.v3"
)

var (
	registeredForeignKeys   []ForeignKeyConstraint
	registeredForeignKeysMu sync.RWMutex
	validReferentialActions = []string{"CASCADE", "RESTRICT", "SET NULL", "NO ACTION"}
)

// ForeignKeyConstraint describes a foreign key relationship between tables.
// OnDelete and OnUpdate take one of CASCADE, RESTRICT, SET NULL or NO ACTION.
type ForeignKeyConstraint struct {
	Table           string `yaml:"table"`
	Column          string `yaml:"column"`
	ReferenceTable  string `yaml:"reference_table"`
	ReferenceColumn string `yaml:"reference_column"`
	OnDelete        string `yaml:"on_delete"`
	OnUpdate        string `yaml:"on_update"`
}

// Name returns the derived constraint name.
func (fk ForeignKeyConstraint) Name() string {
	return fmt.Sprintf("fk_%s_%s", fk.Table, fk.Column)
}

func (fk ForeignKeyConstraint) validate() []error {
	var errs []error
	if fk.Table == "" || fk.Column == "" {
		errs = append(errs, fmt.Errorf("table and column cannot be empty: %q.%q", fk.Table, fk.Column))
	}
	if fk.ReferenceTable == "" || fk.ReferenceColumn == "" {
		errs = append(errs, fmt.Errorf("reference cannot be empty: %s.%s", fk.Table, fk.Column))
	}
	for policy, action := range map[string]string{"delete": fk.OnDelete, "update": fk.OnUpdate} {
		if action != "" && !slices.Contains(validReferentialActions, strings.ToUpper(action)) {
			errs = append(errs, fmt.Errorf("invalid %s policy: %s, constraint: %s", policy, action, fk.Name()))
		}
	}
	return errs
}

// RegisterForeignKey adds a code-defined constraint, applied when its table is created.
func RegisterForeignKey(fk ForeignKeyConstraint) {
	registeredForeignKeysMu.Lock()
	defer registeredForeignKeysMu.Unlock()
	registeredForeignKeys = append(registeredForeignKeys, fk)
}

// LoadForeignKeyFile reads constraints from a YAML file with a top-level
// foreign_keys list.
func LoadForeignKeyFile(path string) ([]ForeignKeyConstraint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read foreign key file: %w", err)
	}
	var file struct {
		ForeignKeys []ForeignKeyConstraint `yaml:"foreign_keys"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse foreign key file: %w", err)
	}
	return file.ForeignKeys, nil
}

// ForeignKeyManager holds the constraints declared inline by CREATE TABLE.
type ForeignKeyManager struct {
	constraints []ForeignKeyConstraint
	logger      Logger
}

// NewForeignKeyManager uses the constraints from configPath when it is set
// and readable, otherwise the code-registered ones.
func NewForeignKeyManager(logger Logger, configPath string) *ForeignKeyManager {
	registeredForeignKeysMu.RLock()
	constraints := slices.Clone(registeredForeignKeys)
	registeredForeignKeysMu.RUnlock()

	if configPath != "" {
		if loaded, err := LoadForeignKeyFile(configPath); err != nil {
			if logger != nil {
				logger.Warn("Failed to load foreign key constraints from config, using code-defined defaults", "error", err.Error(), "config_path", configPath)
			}
		} else {
			constraints = loaded
		}
	}
	return &ForeignKeyManager{constraints: constraints, logger: logger}
}

// ApplyTo appends the table's constraints to a CREATE TABLE query.
func (fkm *ForeignKeyManager) ApplyTo(q *bun.CreateTableQuery, table string) *bun.CreateTableQuery {
	for _, fk := range fkm.ForTable(table) {
		clause := "(?) REFERENCES ? (?)"
		args := []any{bun.Ident(fk.Column), bun.Ident(fk.ReferenceTable), bun.Ident(fk.ReferenceColumn)}
		if fk.OnDelete != "" {
			clause += " ON DELETE ?"
			args = append(args, bun.Safe(strings.ToUpper(fk.OnDelete)))
		}
		if fk.OnUpdate != "" {
			clause += " ON UPDATE ?"
			args = append(args, bun.Safe(strings.ToUpper(fk.OnUpdate)))
		}
		q = q.ForeignKey(clause, args...)
		if fkm.logger != nil {
			fkm.logger.Debug("Foreign key declared", "constraint", fk.Name())
		}
	}
	return q
}

// ForTable returns the constraints declared on table.
func (fkm *ForeignKeyManager) ForTable(table string) []ForeignKeyConstraint {
	var out []ForeignKeyConstraint
	for _, fk := range fkm.constraints {
		if strings.EqualFold(fk.Table, table) {
			out = append(out, fk)
		}
	}
	return out
}

// ValidateConstraints reports every malformed constraint.
func (fkm *ForeignKeyManager) ValidateConstraints() []error {
	var errs []error
	for _, fk := range fkm.constraints {
		errs = append(errs, fk.validate()...)
	}
	return errs
}
