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

// Package service sequences repository calls for users, items and tags
// inside one unit of work each and maps failures to domain errors.
package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tomoncle/bookshelf/repository"
	"github.com/tomoncle/bookshelf/types"
	"github.com/tomoncle/bookshelf/uow"
	"github.com/tomoncle/bookshelf/utils"
)

// TimeRange bounds created_at and updated_at. Nil bounds are ignored.
type TimeRange struct {
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	UpdatedFrom *time.Time
	UpdatedTo   *time.Time
}

func (r TimeRange) apply(f types.Filters) types.Filters {
	f["created_from"] = r.CreatedFrom
	f["created_to"] = r.CreatedTo
	f["updated_from"] = r.UpdatedFrom
	f["updated_to"] = r.UpdatedTo
	return f
}

// entityService holds what every entity service shares: the unit of work
// factory, the repository selector and the list/get/delete operations.
type entityService[T any, PT interface {
	*T
	repository.Entity
}] struct {
	entity      string
	defaultSort string
	uow         *uow.Factory
	repo        func(*uow.UnitOfWork) *repository.Repository[T, PT]
	validator   *Validator
	log         *logrus.Logger
}

func newEntityService[T any, PT interface {
	*T
	repository.Entity
}](entity, defaultSort string, factory *uow.Factory, validator *Validator, repo func(*uow.UnitOfWork) *repository.Repository[T, PT]) entityService[T, PT] {
	if validator == nil {
		validator = NewValidator()
	}
	return entityService[T, PT]{
		entity:      entity,
		defaultSort: defaultSort,
		uow:         factory,
		repo:        repo,
		validator:   validator,
		log:         utils.NewLogger("SERVICE"),
	}
}

// do runs fn in one unit of work and maps its failure.
func (s *entityService[T, PT]) do(ctx context.Context, fn func(ctx context.Context, u *uow.UnitOfWork) error) error {
	if err := s.uow.Do(ctx, fn); err != nil {
		return mapError(s.log, s.entity, err)
	}
	return nil
}

func (s *entityService[T, PT]) list(ctx context.Context, filters types.Filters, page types.Page, sort types.Sort) ([]PT, error) {
	if sort.Field == "" {
		sort.Field = s.defaultSort
	}
	var rows []PT
	err := s.do(ctx, func(ctx context.Context, u *uow.UnitOfWork) error {
		var err error
		rows, err = s.repo(u).FilterAndSort(ctx, filters, page, sort)
		return err
	})
	return rows, err
}

// Get returns the entity with id.
func (s *entityService[T, PT]) Get(ctx context.Context, id int64) (PT, error) {
	var row PT
	err := s.do(ctx, func(ctx context.Context, u *uow.UnitOfWork) error {
		var err error
		row, err = s.repo(u).GetByID(ctx, id)
		return err
	})
	return row, err
}

// Delete removes the entity with id.
func (s *entityService[T, PT]) Delete(ctx context.Context, id int64) error {
	return s.do(ctx, func(ctx context.Context, u *uow.UnitOfWork) error {
		return s.repo(u).Delete(ctx, repository.ByID(id))
	})
}

// update assigns the collected attributes to the row with id.
func (s *entityService[T, PT]) update(ctx context.Context, u *uow.UnitOfWork, id int64, names []string, values []any) (PT, error) {
	if len(names) == 0 {
		return nil, emptyUpdate(s.entity)
	}
	return s.repo(u).UpdateAttributes(ctx, names, values, repository.ByID(id))
}

type changes struct {
	names  []string
	values []any
}

func (c *changes) add(name string, value any, set bool) {
	if set {
		c.names = append(c.names, name)
		c.values = append(c.values, value)
	}
}
