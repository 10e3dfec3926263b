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

package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tomoncle/bookshelf/types"
)

func TestStampSetsBothTimestamps(t *testing.T) {
	var b Base
	now := time.Date(2025, 3, 1, 12, 0, 0, 123456789, time.FixedZone("CET", 3600))
	b.Stamp(now)

	want := time.Date(2025, 3, 1, 11, 0, 0, 123456000, time.UTC)
	assert.Equal(t, want, b.CreatedAt)
	assert.Equal(t, want, b.UpdatedAt)
}

func TestTouchIsStrictlyIncreasing(t *testing.T) {
	var b Base
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	b.Stamp(now)

	b.Touch(now)
	assert.True(t, b.UpdatedAt.After(now))

	prev := b.UpdatedAt
	b.Touch(now.Add(-time.Hour))
	assert.True(t, b.UpdatedAt.After(prev))

	later := now.Add(time.Minute)
	b.Touch(later)
	assert.Equal(t, later, b.UpdatedAt)
	assert.Equal(t, now, b.CreatedAt)
}

func TestEnums(t *testing.T) {
	assert.True(t, KindBook.IsValid())
	assert.False(t, Kind("video").IsValid())
	assert.Equal(t, types.IllegalValue, Status("lost").Number())
	assert.Equal(t, 2, PriorityHigh.Number())
	assert.Equal(t, []string{"planned", "reading", "done"}, types.EnumNames(Statuses...))
	assert.True(t, ItemSortTitle.IsValid())
	assert.False(t, UserSortField("password").IsValid())
}
