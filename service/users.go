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
	"fmt"

	"github.com/tomoncle/bookshelf/models"
	"github.com/tomoncle/bookshelf/repository"
	"github.com/tomoncle/bookshelf/types"
	"github.com/tomoncle/bookshelf/uow"
)

const userEntity = "user"

type UserFilter struct {
	Email       *string
	DisplayName *string
	TimeRange
}

func (f UserFilter) Filters() types.Filters {
	return f.TimeRange.apply(types.Filters{
		"email":        f.Email,
		"display_name": f.DisplayName,
	})
}

type CreateUserInput struct {
	Email       string `json:"email" validate:"required,email,max=255"`
	DisplayName string `json:"display_name" validate:"required,min=1,max=50"`
}

type UpdateUserInput struct {
	Email       *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	DisplayName *string `json:"display_name,omitempty" validate:"omitempty,min=1,max=50"`
}

type UserService struct {
	entityService[models.User, *models.User]
}

func NewUserService(factory *uow.Factory, validator *Validator) *UserService {
	return &UserService{
		entityService: newEntityService(userEntity, string(models.UserSortDisplayName), factory, validator, (*uow.UnitOfWork).Users),
	}
}

func (s *UserService) List(ctx context.Context, filter UserFilter, page types.Page, sort types.Sort) ([]*models.User, error) {
	return s.list(ctx, filter.Filters(), page, sort)
}

// Create registers a user. Display names and emails are both unique.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	if err := s.validator.Validate(userEntity, in); err != nil {
		return nil, err
	}
	var user *models.User
	err := s.do(ctx, func(ctx context.Context, u *uow.UnitOfWork) error {
		var err error
		user, err = u.Users().GetByUniqueFieldOrCreate(ctx, "display_name", &models.User{
			Email:       in.Email,
			DisplayName: in.DisplayName,
		})
		return err
	})
	if err == nil {
		s.log.WithField("user_id", user.ID).Info("User created")
	}
	return user, err
}

func (s *UserService) Update(ctx context.Context, id int64, in UpdateUserInput) (*models.User, error) {
	if err := s.validator.Validate(userEntity, in); err != nil {
		return nil, err
	}
	var c changes
	c.add("email", in.Email, in.Email != nil)
	c.add("display_name", in.DisplayName, in.DisplayName != nil)

	var user *models.User
	err := s.do(ctx, func(ctx context.Context, u *uow.UnitOfWork) error {
		users := u.Users()
		if _, err := users.GetByID(ctx, id); err != nil {
			return err
		}
		if in.DisplayName != nil {
			other, err := users.FindOne(ctx, repository.Condition{"display_name": *in.DisplayName})
			if err != nil {
				return err
			}
			if other != nil && other.ID != id {
				return &repository.ConflictError{Table: users.Table(), Columns: []string{"display_name"}, Err: fmt.Errorf("display_name %q taken", *in.DisplayName)}
			}
		}
		var err error
		user, err = s.update(ctx, u, id, c.names, c.values)
		return err
	})
	return user, err
}
