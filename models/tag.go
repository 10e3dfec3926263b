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
	"time"

	"github.com/tomoncle/bookshelf/repository"
	"github.com/tomoncle/bookshelf/types"
	"github.com/uptrace/bun"
)

type Tag struct {
	bun.BaseModel `bun:"table:tags,alias:t"`
	Base

	UserID int64  `bun:"user_id,notnull,unique:tags_user_id_name" json:"user_id"`
	Name   string `bun:"name,notnull,type:varchar(50),unique:tags_user_id_name" json:"name"`
}

// TagSortField enumerates the columns tags can be sorted by.
type TagSortField string

const (
	TagSortCreatedAt TagSortField = "created_at"
	TagSortUpdatedAt TagSortField = "updated_at"
	TagSortName      TagSortField = "name"
)

var TagSortFields = []TagSortField{TagSortCreatedAt, TagSortUpdatedAt, TagSortName}

func (f TagSortField) IsValid() bool  { return f.Number() != types.IllegalValue }
func (f TagSortField) Number() int    { return types.EnumIndex(TagSortFields, f) }
func (f TagSortField) String() string { return string(f) }

var TagSchema = repository.NewSchema[Tag](
	repository.Key[Tag]("id", func(t *Tag) *int64 { return &t.ID }),
	repository.Column[Tag]("user_id", func(t *Tag) *int64 { return &t.UserID }),
	repository.Column[Tag]("name", func(t *Tag) *string { return &t.Name }),
	repository.Timestamp[Tag]("created_at", func(t *Tag) *time.Time { return &t.CreatedAt }),
	repository.Timestamp[Tag]("updated_at", func(t *Tag) *time.Time { return &t.UpdatedAt }),
)
