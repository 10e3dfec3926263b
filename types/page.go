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
	"math"
	"sort"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Filters maps a field name to a match value or range bound. A nil value
// means the filter is not applied.
type Filters map[string]any

// Keys returns the filter names in a stable order.
func (f Filters) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Page describes limit/offset pagination where Offset is a page index:
// the number of skipped rows is Limit * Offset.
type Page struct {
	Limit  int
	Offset int
}

// NewPage constructs a Page.
func NewPage(limit int, offset int) Page {
	return Page{Limit: limit, Offset: offset}
}

func (p Page) GetLimit() int {
	switch {
	case p.Limit < 1:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	}
	return p.Limit
}

func (p Page) GetOffset() int {
	if p.Offset < 0 {
		return 0
	}
	return p.Offset
}

// Skip returns the number of rows to skip, saturating at math.MaxInt.
func (p Page) Skip() int {
	limit, offset := p.GetLimit(), p.GetOffset()
	if offset > math.MaxInt/limit {
		return math.MaxInt
	}
	return limit * offset
}

// Sort names the field to order by and its direction.
type Sort struct {
	Field string
	Desc  bool
}

// NewSort constructs a Sort.
func NewSort(field string, desc bool) Sort {
	return Sort{Field: field, Desc: desc}
}

func (s Sort) Direction() string {
	if s.Desc {
		return "DESC"
	}
	return "ASC"
}
