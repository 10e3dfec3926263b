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

package service

import (
	"context"
	"errors"

	"github.com/tomoncle/bookshelf/models"
	"github.com/tomoncle/bookshelf/repository"
	"github.com/tomoncle/bookshelf/types"
	"github.com/tomoncle/bookshelf/uow"
)

const tagEntity = "tag"

type TagFilter struct {
	UserID *int64
	Name   *string
	TimeRange
}

func (f TagFilter) Filters() types.Filters {
	return f.TimeRange.apply(types.Filters{
		"user_id": f.UserID,
		"name":    f.Name,
	})
}

type CreateTagInput struct {
	UserID int64  `json:"user_id" validate:"required,gt=0"`
	Name   string `json:"name" validate:"required,min=1,max=50"`
}

type UpdateTagInput struct {
	Name *string `json:"name,omitempty" validate:"omitempty,min=1,max=50"`
}

type TagService struct {
	entityService[models.Tag, *models.Tag]
}

func NewTagService(factory *uow.Factory, validator *Validator) *TagService {
	return &TagService{
		entityService: newEntityService(tagEntity, string(models.TagSortName), factory, validator, (*uow.UnitOfWork).Tags),
	}
}

func (s *TagService) List(ctx context.Context, filter TagFilter, page types.Page, sort types.Sort) ([]*models.Tag, error) {
	return s.list(ctx, filter.Filters(), page, sort)
}

// Create adds a tag. Names are unique per user.
func (s *TagService) Create(ctx context.Context, in CreateTagInput) (*models.Tag, error) {
	if err := s.validator.Validate(tagEntity, in); err != nil {
		return nil, err
	}
	var tag *models.Tag
	err := s.do(ctx, func(ctx context.Context, u *uow.UnitOfWork) error {
		if err := requireUser(ctx, u, tagEntity, in.UserID); err != nil {
			return err
		}
		var err error
		tag, err = u.Tags().Create(ctx, &models.Tag{UserID: in.UserID, Name: in.Name})
		return nameConflict(err)
	})
	return tag, err
}

func (s *TagService) Update(ctx context.Context, id int64, in UpdateTagInput) (*models.Tag, error) {
	if err := s.validator.Validate(tagEntity, in); err != nil {
		return nil, err
	}
	var c changes
	c.add("name", in.Name, in.Name != nil)

	var tag *models.Tag
	err := s.do(ctx, func(ctx context.Context, u *uow.UnitOfWork) error {
		var err error
		tag, err = s.update(ctx, u, id, c.names, c.values)
		return nameConflict(err)
	})
	return tag, err
}

// nameConflict pins a unique violation on tags to the name column whatever
// the driver reported.
func nameConflict(err error) error {
	var conflict *repository.ConflictError
	if errors.As(err, &conflict) {
		conflict.Columns = []string{"user_id", "name"}
	}
	return err
}
