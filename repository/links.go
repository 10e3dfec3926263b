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
	"context"
	"reflect"

	"github.com/uptrace/bun"
)

// LinkRepository maintains a two-column join table such as item_tags.
type LinkRepository[J any] struct {
	db    bun.IDB
	table string
	left  string
	right string
	build func(left, right int64) *J
}

// NewLinkRepository binds a join model J whose columns left and right
// reference the two linked tables. build returns the row to insert.
func NewLinkRepository[J any](db bun.IDB, left, right string, build func(left, right int64) *J) *LinkRepository[J] {
	return &LinkRepository[J]{
		db:    db,
		table: db.Dialect().Tables().Get(reflect.TypeFor[J]()).Name,
		left:  left,
		right: right,
		build: build,
	}
}

// Link joins left and right. Linking twice is a no-op.
func (r *LinkRepository[J]) Link(ctx context.Context, left, right int64) error {
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := r.where(tx.NewSelect().Model((*J)(nil)), left, right).Exists(ctx)
		if err != nil || exists {
			return err
		}
		_, err = tx.NewInsert().Model(r.build(left, right)).Exec(ctx)
		return err
	})
	return translate(r.table, err)
}

// Unlink removes the link or fails with ErrNotFound.
func (r *LinkRepository[J]) Unlink(ctx context.Context, left, right int64) error {
	var affected int64
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*J)(nil)).
			Where("? = ?", bun.Ident(r.left), left).
			Where("? = ?", bun.Ident(r.right), right).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return translate(r.table, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *LinkRepository[J]) where(q *bun.SelectQuery, left, right int64) *bun.SelectQuery {
	return q.Where("?TableAlias.? = ?", bun.Ident(r.left), left).
		Where("?TableAlias.? = ?", bun.Ident(r.right), right)
}
