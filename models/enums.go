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

import "github.com/tomoncle/bookshelf/types"

// Kind of a shelved item.
type Kind string

const (
	KindBook    Kind = "book"
	KindArticle Kind = "article"
)

var Kinds = []Kind{KindBook, KindArticle}

func (k Kind) IsValid() bool  { return k.Number() != types.IllegalValue }
func (k Kind) Number() int    { return types.EnumIndex(Kinds, k) }
func (k Kind) String() string { return string(k) }

// Status is the reading progress of an item.
type Status string

const (
	StatusPlanned Status = "planned"
	StatusReading Status = "reading"
	StatusDone    Status = "done"
)

var Statuses = []Status{StatusPlanned, StatusReading, StatusDone}

func (s Status) IsValid() bool  { return s.Number() != types.IllegalValue }
func (s Status) Number() int    { return types.EnumIndex(Statuses, s) }
func (s Status) String() string { return string(s) }

// Priority of an item.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

var Priorities = []Priority{PriorityLow, PriorityNormal, PriorityHigh}

func (p Priority) IsValid() bool  { return p.Number() != types.IllegalValue }
func (p Priority) Number() int    { return types.EnumIndex(Priorities, p) }
func (p Priority) String() string { return string(p) }

var (
	_ types.BaseEnum = KindBook
	_ types.BaseEnum = StatusPlanned
	_ types.BaseEnum = PriorityNormal
)
