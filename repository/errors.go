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

package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tomoncle/bookshelf/database"
)

var (
	ErrNotFound             = errors.New("record not found")
	ErrAlreadyExists        = errors.New("record already exists")
	ErrReferentialViolation = errors.New("referenced record does not exist")
	ErrMultipleRows         = errors.New("condition matches more than one record")
	ErrUnknownField         = errors.New("unknown field")
	ErrInvalidValue         = errors.New("invalid field value")
)

// ConflictError reports a unique constraint violation.
type ConflictError struct {
	Table   string
	Columns []string
	Err     error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Table, ErrAlreadyExists, strings.Join(e.Columns, ", "))
}

// Field returns the most specific offending column. For composite keys
// such as (user_id, name) that is the last one.
func (e *ConflictError) Field() string {
	if len(e.Columns) == 0 {
		return ""
	}
	return e.Columns[len(e.Columns)-1]
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrAlreadyExists
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

func unknownField(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownField, name)
}

func invalidValue(name string, v any) error {
	return fmt.Errorf("%w: %q does not accept %T", ErrInvalidValue, name, v)
}

// translate turns driver errors into the package sentinels.
func translate(table string, err error) error {
	if err == nil {
		return nil
	}
	ok, kind := database.IsSqlError(err)
	if !ok {
		return err
	}
	switch kind {
	case database.NoRowsErr:
		return ErrNotFound
	case database.DuplicateKeyErr:
		return &ConflictError{Table: table, Columns: database.ConstraintColumns(err), Err: err}
	case database.ForeignKeyViolationErr:
		return fmt.Errorf("%s: %w: %v", table, ErrReferentialViolation, err)
	}
	return err
}
