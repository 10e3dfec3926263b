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
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/uptrace/bun"
)

var bunSqlSilentMode atomic.Bool

// EnableBunSqlSilent mutes the query hooks, e.g. while migrations run.
func EnableBunSqlSilent(b bool) {
	bunSqlSilentMode.Store(b)
}

var (
	selectColor = color.New(color.FgGreen)
	insertColor = color.New(color.FgBlue)
	updateColor = color.New(color.FgYellow)
	deleteColor = color.New(color.FgMagenta)
	otherColor  = color.New(color.FgRed)
	tagColor    = color.New(color.FgCyan)
	errColor    = color.New(color.BgRed, color.FgWhite)
	slowColor   = color.New(color.BgYellow, color.FgBlack)
)

// QueryHook prints executed statements. BOOKSHELF_SQL_LOG overrides the
// configured switch: "0" disables, "1" prints failures and writes, "2"
// prints everything.
type QueryHook struct {
	envName  string
	enabled  bool
	verbose  bool
	slowTime time.Duration
	writer   io.Writer
}

var _ bun.QueryHook = (*QueryHook)(nil)

// NewQueryHook returns a hook writing to w.
func NewQueryHook(w io.Writer, verbose bool, slowTime time.Duration) *QueryHook {
	if w == nil {
		w = os.Stdout
	}
	return &QueryHook{envName: "BOOKSHELF_SQL_LOG", enabled: true, verbose: verbose, slowTime: slowTime, writer: w}
}

func (h *QueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if bunSqlSilentMode.Load() {
		return
	}
	enabled, verbose := h.enabled, h.verbose
	if env, ok := os.LookupEnv(h.envName); ok {
		enabled = env != "" && env != "0"
		verbose = env == "2"
	}
	if !enabled {
		return
	}
	dur := time.Since(event.StartTime)
	slow := h.slowTime > 0 && dur > h.slowTime
	if !verbose && !slow && event.Operation() == "SELECT" {
		switch {
		case event.Err == nil, errors.Is(event.Err, sql.ErrNoRows):
			return
		}
	}
	query := operationColor(event.Operation()).Sprint(event.Query)
	if slow {
		query = slowColor.Sprint(event.Query)
	}
	line := fmt.Sprintf("%s %s %12s  %s",
		time.Now().Format("2006-01-02 15:04:05.000"),
		tagColor.Sprint("[BUN]"),
		dur.Round(time.Microsecond),
		query,
	)
	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		line += "\t" + errColor.Sprintf(" %T: %v ", event.Err, event.Err)
	}
	_, _ = fmt.Fprintln(h.writer, line)
}

func operationColor(operation string) *color.Color {
	switch operation {
	case "SELECT":
		return selectColor
	case "INSERT":
		return insertColor
	case "UPDATE":
		return updateColor
	case "DELETE":
		return deleteColor
	default:
		return otherColor
	}
}
