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
	"time"
)

// Entity is implemented by pointers to models managed by a Repository.
type Entity interface {
	GetID() int64
	// Stamp sets created_at and updated_at before insert.
	Stamp(now time.Time)
	// Touch moves updated_at strictly forward before an update.
	Touch(now time.Time)
	LastUpdated() time.Time
}

// Condition matches rows by equality on schema fields.
type Condition map[string]any

// ByID matches the row with the given primary key.
func ByID(id int64) Condition {
	return Condition{KeyColumn: id}
}

// KeyColumn is the primary key column shared by every model.
const KeyColumn = "id"

// UpdatedColumn is refreshed by every attribute update.
const UpdatedColumn = "updated_at"

const (
	rangeFromSuffix = "_from"
	rangeToSuffix   = "_to"
	rangeBaseSuffix = "_at"
)
