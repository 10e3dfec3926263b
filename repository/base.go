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
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/tomoncle/bookshelf/types"
	"github.com/uptrace/bun"
)

// Repository runs generic CRUD on one model through the bun.IDB it was
// built with. It never commits; every write runs in a savepoint so a
// failed statement leaves the enclosing transaction usable.
type Repository[T any, PT interface {
	*T
	Entity
}] struct {
	db     bun.IDB
	schema *Schema[T]
	table  string
	now    func() time.Time
}

// NewRepository returns a repository for T bound to db, typically a
// unit-of-work transaction.
func NewRepository[T any, PT interface {
	*T
	Entity
}](db bun.IDB, schema *Schema[T]) *Repository[T, PT] {
	return &Repository[T, PT]{
		db:     db,
		schema: schema,
		table:  db.Dialect().Tables().Get(reflect.TypeFor[T]()).Name,
		now:    time.Now,
	}
}

// Table returns the table name.
func (r *Repository[T, PT]) Table() string { return r.table }

// Schema returns the field schema.
func (r *Repository[T, PT]) Schema() *Schema[T] { return r.schema }

// Create inserts entity and returns the stored row.
func (r *Repository[T, PT]) Create(ctx context.Context, entity PT) (PT, error) {
	entity.Stamp(r.now())
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(entity).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, translate(r.table, err)
	}
	return r.GetByID(ctx, entity.GetID())
}

// FilterAndSort lists the rows matching filters. A filter on a text field
// is a case-insensitive substring match, <name>_from and <name>_to bound
// <name>_at, and nil values are ignored. Unknown sort fields fall back to
// the primary key, which also breaks ties.
func (r *Repository[T, PT]) FilterAndSort(ctx context.Context, filters types.Filters, page types.Page, sort types.Sort) ([]PT, error) {
	rows := make([]PT, 0)
	q := r.schema.applyRelations(r.db.NewSelect().Model(&rows))
	q, err := r.applyFilters(q, filters)
	if err != nil {
		return nil, err
	}
	if f, ok := r.schema.Lookup(sort.Field); ok && f.name != KeyColumn {
		q = q.OrderExpr("?TableAlias.? "+sort.Direction(), bun.Ident(f.name))
		q = q.OrderExpr("?TableAlias.? ASC", bun.Ident(KeyColumn))
	} else if ok {
		q = q.OrderExpr("?TableAlias.? "+sort.Direction(), bun.Ident(KeyColumn))
	} else {
		q = q.OrderExpr("?TableAlias.? ASC", bun.Ident(KeyColumn))
	}
	if err := q.Limit(page.GetLimit()).Offset(page.Skip()).Scan(ctx); err != nil {
		return nil, translate(r.table, err)
	}
	return rows, nil
}

func (r *Repository[T, PT]) applyFilters(q *bun.SelectQuery, filters types.Filters) (*bun.SelectQuery, error) {
	for _, key := range filters.Keys() {
		if f, ok := r.schema.Lookup(key); ok {
			val, present, err := f.norm(filters[key])
			if err != nil {
				return nil, err
			}
			if !present {
				continue
			}
			if f.kind == textField {
				q = q.Where("LOWER(?TableAlias.?) LIKE ? ESCAPE '!'", bun.Ident(f.name), "%"+escapeLike(strings.ToLower(val.(string)))+"%")
			} else {
				q = q.Where("?TableAlias.? = ?", bun.Ident(f.name), val)
			}
			continue
		}

		var base, op string
		switch {
		case strings.HasSuffix(key, rangeFromSuffix):
			base, op = strings.TrimSuffix(key, rangeFromSuffix), ">="
		case strings.HasSuffix(key, rangeToSuffix):
			base, op = strings.TrimSuffix(key, rangeToSuffix), "<="
		default:
			return nil, unknownField(key)
		}
		f, ok := r.schema.Lookup(base + rangeBaseSuffix)
		if !ok || f.kind != timeField {
			return nil, unknownField(key)
		}
		val, present, err := f.norm(filters[key])
		if err != nil {
			return nil, err
		}
		if present {
			q = q.Where("?TableAlias.? "+op+" ?", bun.Ident(f.name), val)
		}
	}
	return q, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

func (r *Repository[T, PT]) applyCondition(q *bun.SelectQuery, cond Condition) (*bun.SelectQuery, error) {
	for _, key := range types.Filters(cond).Keys() {
		f, ok := r.schema.Lookup(key)
		if !ok {
			return nil, unknownField(key)
		}
		val, present, err := f.norm(cond[key])
		if err != nil {
			return nil, err
		}
		if present {
			q = q.Where("?TableAlias.? = ?", bun.Ident(f.name), val)
		}
	}
	return q, nil
}

// GetOrCreate returns the row equal to entity, inserting it when absent. An
// entity with an id is looked up by id, otherwise by every attribute. A
// unique conflict on insert is answered by one more lookup.
func (r *Repository[T, PT]) GetOrCreate(ctx context.Context, entity PT) (PT, error) {
	cond := r.identity(entity)
	found, err := r.first(ctx, cond)
	if err != nil || found != nil {
		return found, err
	}
	created, err := r.Create(ctx, entity)
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		if found, lookupErr := r.first(ctx, cond); lookupErr == nil && found != nil {
			return found, nil
		}
	}
	return created, err
}

// GetOrCreateMany applies GetOrCreate to each entity in order.
func (r *Repository[T, PT]) GetOrCreateMany(ctx context.Context, entities []PT) ([]PT, error) {
	out := make([]PT, 0, len(entities))
	for _, entity := range entities {
		got, err := r.GetOrCreate(ctx, entity)
		if err != nil {
			return nil, err
		}
		out = append(out, got)
	}
	return out, nil
}

func (r *Repository[T, PT]) identity(entity PT) Condition {
	if id := entity.GetID(); id != 0 {
		return ByID(id)
	}
	cond := Condition{}
	for _, f := range r.schema.Attributes() {
		cond[f.name] = f.get(entity)
	}
	return cond
}

func (r *Repository[T, PT]) first(ctx context.Context, cond Condition) (PT, error) {
	var rows []PT
	q, err := r.applyCondition(r.schema.applyRelations(r.db.NewSelect().Model(&rows)), cond)
	if err != nil {
		return nil, err
	}
	if err := q.OrderExpr("?TableAlias.? ASC", bun.Ident(KeyColumn)).Limit(1).Scan(ctx); err != nil {
		return nil, translate(r.table, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// GetByUniqueFieldOrCreate inserts entity unless a row already holds its
// value of field, in which case it fails with a *ConflictError and writes
// nothing.
func (r *Repository[T, PT]) GetByUniqueFieldOrCreate(ctx context.Context, field string, entity PT) (PT, error) {
	f, ok := r.schema.Lookup(field)
	if !ok {
		return nil, unknownField(field)
	}
	exists, err := r.db.NewSelect().
		Model(PT(new(T))).
		Where("?TableAlias.? = ?", bun.Ident(f.name), f.get(entity)).
		Exists(ctx)
	if err != nil {
		return nil, translate(r.table, err)
	}
	if exists {
		return nil, &ConflictError{Table: r.table, Columns: []string{f.name}, Err: ErrAlreadyExists}
	}
	return r.Create(ctx, entity)
}

// GetByID returns ErrNotFound when no row has the id.
func (r *Repository[T, PT]) GetByID(ctx context.Context, id int64) (PT, error) {
	entity := PT(new(T))
	err := r.schema.applyRelations(r.db.NewSelect().Model(entity)).
		Where("?TableAlias.? = ?", bun.Ident(KeyColumn), id).
		Scan(ctx)
	if err != nil {
		return nil, translate(r.table, err)
	}
	return entity, nil
}

// GetByIDs returns the rows present among ids, ordered by id.
func (r *Repository[T, PT]) GetByIDs(ctx context.Context, ids []int64) ([]PT, error) {
	rows := make([]PT, 0, len(ids))
	if len(ids) == 0 {
		return rows, nil
	}
	err := r.schema.applyRelations(r.db.NewSelect().Model(&rows)).
		Where("?TableAlias.? IN (?)", bun.Ident(KeyColumn), bun.In(ids)).
		OrderExpr("?TableAlias.? ASC", bun.Ident(KeyColumn)).
		Scan(ctx)
	if err != nil {
		return nil, translate(r.table, err)
	}
	return rows, nil
}

// FindOne returns nil, nil when nothing matches and ErrMultipleRows when
// more than one row does.
func (r *Repository[T, PT]) FindOne(ctx context.Context, cond Condition) (PT, error) {
	rows, err := r.matching(ctx, cond, true)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return rows[0], nil
	}
	return nil, ErrMultipleRows
}

// All returns every row ordered by id.
func (r *Repository[T, PT]) All(ctx context.Context) ([]PT, error) {
	rows := make([]PT, 0)
	err := r.schema.applyRelations(r.db.NewSelect().Model(&rows)).
		OrderExpr("?TableAlias.? ASC", bun.Ident(KeyColumn)).
		Scan(ctx)
	if err != nil {
		return nil, translate(r.table, err)
	}
	return rows, nil
}

func (r *Repository[T, PT]) matching(ctx context.Context, cond Condition, withRelations bool) ([]PT, error) {
	rows := make([]PT, 0, 2)
	q := r.db.NewSelect().Model(&rows)
	if withRelations {
		q = r.schema.applyRelations(q)
	}
	q, err := r.applyCondition(q, cond)
	if err != nil {
		return nil, err
	}
	if err := q.OrderExpr("?TableAlias.? ASC", bun.Ident(KeyColumn)).Limit(2).Scan(ctx); err != nil {
		return nil, translate(r.table, err)
	}
	return rows, nil
}

func (r *Repository[T, PT]) exactlyOne(ctx context.Context, cond Condition) (PT, error) {
	rows, err := r.matching(ctx, cond, false)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return rows[0], nil
	}
	return nil, ErrMultipleRows
}

// UpdateAttributes assigns values to the named attributes of the single
// row matching cond, refreshes updated_at and returns the stored row.
func (r *Repository[T, PT]) UpdateAttributes(ctx context.Context, names []string, values []any, cond Condition) (PT, error) {
	if len(names) != len(values) {
		return nil, fmt.Errorf("%w: %d names for %d values", ErrInvalidValue, len(names), len(values))
	}
	target, err := r.exactlyOne(ctx, cond)
	if err != nil {
		return nil, err
	}
	columns := make([]string, 0, len(names)+1)
	for i, name := range names {
		f, ok := r.schema.Lookup(name)
		if !ok || !f.attribute {
			return nil, unknownField(name)
		}
		if err := f.set(target, values[i]); err != nil {
			return nil, err
		}
		columns = append(columns, f.name)
	}
	target.Touch(r.now())
	columns = append(columns, UpdatedColumn)

	err = r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().Model(target).Column(columns...).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return nil, translate(r.table, err)
	}
	return r.GetByID(ctx, target.GetID())
}

// Delete removes the single row matching cond. ErrNotFound leaves the
// store untouched.
func (r *Repository[T, PT]) Delete(ctx context.Context, cond Condition) error {
	target, err := r.exactlyOne(ctx, cond)
	if err != nil {
		return err
	}
	err = r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().Model(target).WherePK().Exec(ctx)
		return err
	})
	return translate(r.table, err)
}
