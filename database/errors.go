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
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

type SQLError int

const (
	UnknownErr SQLError = iota
	NoRowsErr
	NoColumnErr
	NoTableErr
	ExistTableErr
	DuplicateKeyErr
	NotNullViolationErr
	ForeignKeyViolationErr
	CheckConstraintViolationErr
	DataTruncatedErr
	InvalidTypeCastErr
	ConnectionErr
)

func (e SQLError) String() string {
	switch e {
	case NoRowsErr:
		return "no_rows"
	case NoColumnErr:
		return "no_column"
	case NoTableErr:
		return "no_table"
	case ExistTableErr:
		return "table_exists"
	case DuplicateKeyErr:
		return "duplicate_key"
	case NotNullViolationErr:
		return "not_null_violation"
	case ForeignKeyViolationErr:
		return "foreign_key_violation"
	case CheckConstraintViolationErr:
		return "check_violation"
	case DataTruncatedErr:
		return "data_truncated"
	case InvalidTypeCastErr:
		return "invalid_type_cast"
	case ConnectionErr:
		return "connection"
	default:
		return "unknown"
	}
}

// IsSqlError reports whether err came from the store and classifies it.
// Driver error types are checked first, message text is the fallback for
// sqlite and wrapped errors.
func IsSqlError(err error) (is bool, sqlErr SQLError) {
	if err == nil {
		return false, UnknownErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		return true, NoRowsErr
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true, ConnectionErr
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return true, classifyMySQL(mysqlErr.Number)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return true, classifySQLState(string(pqErr.Code))
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return true, classifySQLState(pgErr.Code)
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true, ConnectionErr
	}
	return classifyMessage(strings.ToLower(err.Error()))
}

func classifyMySQL(number uint16) SQLError {
	switch number {
	case 1054:
		return NoColumnErr
	case 1146:
		return NoTableErr
	case 1050:
		return ExistTableErr
	case 1062:
		return DuplicateKeyErr
	case 1048:
		return NotNullViolationErr
	case 1216, 1217, 1451, 1452:
		return ForeignKeyViolationErr
	case 3819:
		return CheckConstraintViolationErr
	case 1265, 1406:
		return DataTruncatedErr
	case 1040, 1042, 1043, 1045, 2002, 2003, 2006, 2013:
		return ConnectionErr
	default:
		return UnknownErr
	}
}

func classifySQLState(code string) SQLError {
	switch {
	case code == "23505":
		return DuplicateKeyErr
	case code == "23502":
		return NotNullViolationErr
	case code == "23503":
		return ForeignKeyViolationErr
	case code == "23514":
		return CheckConstraintViolationErr
	case code == "22001":
		return DataTruncatedErr
	case code == "42703":
		return NoColumnErr
	case code == "42P01":
		return NoTableErr
	case code == "42P07":
		return ExistTableErr
	case code == "42804":
		return InvalidTypeCastErr
	case strings.HasPrefix(code, "08"), code == "57P01", code == "57P03":
		return ConnectionErr
	default:
		return UnknownErr
	}
}

func classifyMessage(s string) (bool, SQLError) {
	switch {
	case strings.Contains(s, "unique constraint failed"),
		strings.Contains(s, "duplicate key value"),
		strings.Contains(s, "duplicate entry"),
		strings.Contains(s, "sqlstate 23505"):
		return true, DuplicateKeyErr
	case strings.Contains(s, "foreign key constraint failed"),
		strings.Contains(s, "foreign key violation"),
		strings.Contains(s, "sqlstate 23503"):
		return true, ForeignKeyViolationErr
	case strings.Contains(s, "not null constraint failed"),
		strings.Contains(s, "not-null constraint"),
		strings.Contains(s, "sqlstate 23502"):
		return true, NotNullViolationErr
	case strings.Contains(s, "check constraint"),
		strings.Contains(s, "sqlstate 23514"):
		return true, CheckConstraintViolationErr
	case strings.Contains(s, "no such column"),
		strings.Contains(s, "undefined column"):
		return true, NoColumnErr
	case strings.Contains(s, "no such table"),
		strings.Contains(s, "undefined table"):
		return true, NoTableErr
	case strings.Contains(s, "already exists") && strings.Contains(s, "table"):
		return true, ExistTableErr
	case strings.Contains(s, "string data right truncation"),
		strings.Contains(s, "data truncated"):
		return true, DataTruncatedErr
	case strings.Contains(s, "datatype mismatch"):
		return true, InvalidTypeCastErr
	case strings.Contains(s, "database is closed"),
		strings.Contains(s, "connection refused"),
		strings.Contains(s, "unable to open database"),
		strings.Contains(s, "bad connection"),
		strings.Contains(s, "no such host"),
		strings.Contains(s, "i/o timeout"):
		return true, ConnectionErr
	}
	return false, UnknownErr
}

var (
	sqliteConstraintRe = regexp.MustCompile(`(?i)(?:unique|not null) constraint failed: ([^()]+)`)
	pgKeyDetailRe      = regexp.MustCompile(`Key \(([^)]+)\)=`)
	mysqlKeyRe         = regexp.MustCompile(`for key '([^']+)'`)
)

// ConstraintColumns extracts the column names named by a constraint
// violation. The result is empty when the driver does not report them.
func ConstraintColumns(err error) []string {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if cols := matchColumns(pgKeyDetailRe, pqErr.Detail); len(cols) > 0 {
			return cols
		}
		if pqErr.Column != "" {
			return []string{pqErr.Column}
		}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if cols := matchColumns(pgKeyDetailRe, pgErr.Detail); len(cols) > 0 {
			return cols
		}
		if pgErr.ColumnName != "" {
			return []string{pgErr.ColumnName}
		}
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return matchColumns(mysqlKeyRe, mysqlErr.Message)
	}
	return matchColumns(sqliteConstraintRe, err.Error())
}

func matchColumns(re *regexp.Regexp, s string) []string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return nil
	}
	var cols []string
	for _, part := range strings.Split(m[1], ",") {
		part = strings.TrimSpace(part)
		if i := strings.LastIndex(part, "."); i >= 0 {
			part = part[i+1:]
		}
		part = strings.Trim(part, "`\"")
		if part != "" {
			cols = append(cols, part)
		}
	}
	return cols
}
