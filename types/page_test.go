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

package types

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageLimitBounds(t *testing.T) {
	tests := []struct {
		limit int
		want  int
	}{
		{0, DefaultLimit},
		{-5, DefaultLimit},
		{1, 1},
		{50, 50},
		{MaxLimit, MaxLimit},
		{MaxLimit + 1, MaxLimit},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.limit), func(t *testing.T) {
			assert.Equal(t, tt.want, NewPage(tt.limit, 0).GetLimit())
		})
	}
}

func TestPageSkipIsLimitTimesOffset(t *testing.T) {
	assert.Equal(t, 0, NewPage(10, 0).Skip())
	assert.Equal(t, 30, NewPage(10, 3).Skip())
	assert.Equal(t, 0, NewPage(10, -2).Skip())
	assert.Equal(t, 2*DefaultLimit, NewPage(0, 2).Skip())
	assert.Equal(t, math.MaxInt, NewPage(64, math.MaxInt/64+1).Skip())
	assert.Equal(t, math.MaxInt, NewPage(100, math.MaxInt/100+1).Skip())
	assert.Equal(t, (math.MaxInt/100)*100, NewPage(100, math.MaxInt/100).Skip())
}

func TestSortDirection(t *testing.T) {
	assert.Equal(t, "ASC", NewSort("title", false).Direction())
	assert.Equal(t, "DESC", NewSort("title", true).Direction())
}

func TestFiltersKeysSorted(t *testing.T) {
	f := Filters{"title": "a", "kind": nil, "created_from": 1}
	assert.Equal(t, []string{"created_from", "kind", "title"}, f.Keys())
}

func TestErrorKind(t *testing.T) {
	cause := errors.New("boom")
	err := NewError(KindNotFound, "user", "user not found").WithField("id").Wrap(cause)

	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, KindUnclassified, KindOf(cause))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "not_found: user not found (id)", err.Error())
	assert.Equal(t, "internal", KindUnclassified.String())
}

type color string

func (c color) IsValid() bool  { return c.Number() != IllegalValue }
func (c color) Number() int    { return EnumIndex([]color{"red", "blue"}, c) }
func (c color) String() string { return string(c) }

func TestEnumHelpers(t *testing.T) {
	assert.Equal(t, 1, color("blue").Number())
	assert.False(t, color("green").IsValid())
	assert.Equal(t, []string{"red", "blue"}, EnumNames(color("red"), color("blue")))
}
