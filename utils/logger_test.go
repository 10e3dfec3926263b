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

package utils

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLogFormatterLiftsRequestFields(t *testing.T) {
	f := &JSONLogFormatter{LoggerName: "HTTP", TimestampFormat: timestampFormat}
	entry := &logrus.Entry{
		Time:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "request",
		Data: logrus.Fields{
			"req_method":    "GET",
			"req_uri":       "/api/v1/users",
			"client_ip":     "10.0.0.1",
			"status_code":   404,
			"latency_time":  "1ms",
			"request_id":    "abc",
			logrus.ErrorKey: errors.New("boom"),
		},
	}
	out, err := f.Format(entry)
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(out, &rec))
	assert.Equal(t, "2025-01-02 03:04:05.000", rec["time"])
	assert.Equal(t, "warning", rec["level"])
	assert.Equal(t, "HTTP", rec["model"])
	assert.Equal(t, "GET", rec["method"])
	assert.Equal(t, "/api/v1/users", rec["path"])
	assert.Equal(t, 404.0, rec["status_code"])
	assert.Equal(t, map[string]any{"request_id": "abc", "error": "boom"}, rec["fields"])
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLogLevel(" DEBUG "))
	assert.Equal(t, logrus.WarnLevel, ParseLogLevel("warning"))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel("verbose"))
}

func TestNewLoggerIsShared(t *testing.T) {
	a := NewLogger("TEST-SHARED")
	assert.Same(t, a, NewLogger("TEST-SHARED"))
	assert.True(t, SetLoggerLevel("TEST-SHARED", "error"))
	assert.Equal(t, logrus.ErrorLevel, a.GetLevel())
	assert.False(t, SetLoggerLevel("TEST-MISSING", "error"))
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("BOOKSHELF_TEST_BOOL", "yes")
	t.Setenv("BOOKSHELF_TEST_DURATION", "nonsense")
	assert.True(t, EnvDefaultBool("BOOKSHELF_TEST_BOOL", false))
	assert.Equal(t, time.Second, EnvDefaultDuration("BOOKSHELF_TEST_DURATION", time.Second))
	assert.Equal(t, "x", EnvDefaultString("BOOKSHELF_TEST_UNSET", "x"))
}
