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

import "time"

// Base holds the primary key and audit timestamps shared by every table.
type Base struct {
	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// Now returns the current time at the precision stored by every dialect.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func (b *Base) GetID() int64 {
	return b.ID
}

// Stamp sets both timestamps on insert.
func (b *Base) Stamp(now time.Time) {
	now = now.UTC().Truncate(time.Microsecond)
	b.CreatedAt = now
	b.UpdatedAt = now
}

// Touch moves UpdatedAt forward, strictly past its previous value even when
// the clock has not advanced.
func (b *Base) Touch(now time.Time) {
	now = now.UTC().Truncate(time.Microsecond)
	if !now.After(b.UpdatedAt) {
		now = b.UpdatedAt.Add(time.Microsecond)
	}
	b.UpdatedAt = now
}

func (b *Base) LastUpdated() time.Time {
	return b.UpdatedAt
}
