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
	"context"
	"errors"

	"github.com/tomoncle/bookshelf/database"
	"github.com/uptrace/bun"
)

func init() {
	// Priority is the CREATE TABLE order; bun registration runs in reverse.
	database.RegisterModel((*User)(nil), 1)
	database.RegisterModel((*Tag)(nil), 2)
	database.RegisterModel((*Item)(nil), 3)
	database.RegisterModel((*ItemTag)(nil), 4)

	for _, fk := range []database.ForeignKeyConstraint{
		{Table: "items", Column: "user_id", ReferenceTable: "users", ReferenceColumn: "id", OnDelete: "CASCADE"},
		{Table: "tags", Column: "user_id", ReferenceTable: "users", ReferenceColumn: "id", OnDelete: "CASCADE"},
		{Table: "item_tags", Column: "item_id", ReferenceTable: "items", ReferenceColumn: "id", OnDelete: "CASCADE"},
		{Table: "item_tags", Column: "tag_id", ReferenceTable: "tags", ReferenceColumn: "id", OnDelete: "CASCADE"},
	} {
		database.RegisterForeignKey(fk)
	}

	database.RegisterMigration(database.MigrationItem{
		Version:     "002",
		Name:        "create_owner_indexes",
		Description: "Index items and tags by owner",
		Up:          createOwnerIndexes,
	})
}

func createOwnerIndexes(ctx context.Context, db bun.IDB) error {
	if _, err := db.NewCreateIndex().Model((*Item)(nil)).Index("items_user_id_idx").Column("user_id").Exec(ctx); err != nil {
		return err
	}
	_, err := db.NewCreateIndex().Model((*ItemTag)(nil)).Index("item_tags_tag_id_idx").Column("tag_id").Exec(ctx)
	return err
}

// ValidateSchemas checks every field schema against the registered tables.
func ValidateSchemas(db *bun.DB) error {
	return errors.Join(
		UserSchema.Validate(db),
		ItemSchema.Validate(db),
		TagSchema.Validate(db),
	)
}
