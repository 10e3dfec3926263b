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

type Item struct {
	bun.BaseModel `bun:"table:items,alias:i"`
	Base

	UserID   int64    `bun:"user_id,notnull" json:"user_id"`
	Title    string   `bun:"title,notnull,type:varchar(100)" json:"title"`
	Kind     Kind     `bun:"kind,notnull,type:varchar(16),default:'article'" json:"kind"`
	Status   Status   `bun:"status,notnull,type:varchar(16),default:'planned'" json:"status"`
	Priority Priority `bun:"priority,notnull,type:varchar(16),default:'normal'" json:"priority"`
	Notes    string   `bun:"notes,type:text" json:"notes"`

	Tags []*Tag `bun:"m2m:item_tags,join:Item=Tag" json:"tags"`
}

// ItemTag joins items and tags.
type ItemTag struct {
	bun.BaseModel `bun:"table:item_tags,alias:it"`

	ItemID int64 `bun:"item_id,pk"`
	Item   *Item `bun:"rel:belongs-to,join:item_id=id"`
	TagID  int64 `bun:"tag_id,pk"`
	Tag    *Tag  `bun:"rel:belongs-to,join:tag_id=id"`
}

// NewItemTag builds the join row for item and tag.
func NewItemTag(itemID, tagID int64) *ItemTag {
	return &ItemTag{ItemID: itemID, TagID: tagID}
}

// ItemSortField enumerates the columns items can be sorted by.
type ItemSortField string

const (
	ItemSortCreatedAt ItemSortField = "created_at"
	ItemSortUpdatedAt ItemSortField = "updated_at"
	ItemSortStatus    ItemSortField = "status"
	ItemSortTitle     ItemSortField = "title"
	ItemSortPriority  ItemSortField = "priority"
)

var ItemSortFields = []ItemSortField{ItemSortCreatedAt, ItemSortUpdatedAt, ItemSortStatus, ItemSortTitle, ItemSortPriority}

func (f ItemSortField) IsValid() bool  { return f.Number() != types.IllegalValue }
func (f ItemSortField) Number() int    { return types.EnumIndex(ItemSortFields, f) }
func (f ItemSortField) String() string { return string(f) }

var ItemSchema = repository.NewSchema[Item](
	repository.Key[Item]("id", func(i *Item) *int64 { return &i.ID }),
	repository.Column[Item]("user_id", func(i *Item) *int64 { return &i.UserID }),
	repository.Column[Item]("title", func(i *Item) *string { return &i.Title }),
	repository.Column[Item]("kind", func(i *Item) *Kind { return &i.Kind }),
	repository.Column[Item]("status", func(i *Item) *Status { return &i.Status }),
	repository.Column[Item]("priority", func(i *Item) *Priority { return &i.Priority }),
	repository.Column[Item]("notes", func(i *Item) *string { return &i.Notes }),
	repository.Timestamp[Item]("created_at", func(i *Item) *time.Time { return &i.CreatedAt }),
	repository.Timestamp[Item]("updated_at", func(i *Item) *time.Time { return &i.UpdatedAt }),
).WithRelation("Tags", func(q *bun.SelectQuery) *bun.SelectQuery {
	return q.OrderExpr("?TableAlias.name ASC")
})
