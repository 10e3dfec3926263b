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

const itemEntity = "item"

type ItemFilter struct {
	UserID   *int64
	Title    *string
	Kind     *models.Kind
	Status   *models.Status
	Priority *models.Priority
	TimeRange
}

func (f ItemFilter) Filters() types.Filters {
	return f.TimeRange.apply(types.Filters{
		"user_id":  f.UserID,
		"title":    f.Title,
		"kind":     f.Kind,
		"status":   f.Status,
		"priority": f.Priority,
	})
}

type CreateItemInput struct {
	UserID   int64           `json:"user_id" validate:"required,gt=0"`
	Title    string          `json:"title" validate:"required,min=1,max=100"`
	Kind     models.Kind     `json:"kind" validate:"omitempty,enum"`
	Status   models.Status   `json:"status" validate:"omitempty,enum"`
	Priority models.Priority `json:"priority" validate:"omitempty,enum"`
	Notes    string          `json:"notes"`
	Tags     []string        `json:"tags" validate:"omitempty,dive,required,max=50"`
}

type UpdateItemInput struct {
	UserID   *int64           `json:"user_id,omitempty" validate:"omitempty,gt=0"`
	Title    *string          `json:"title,omitempty" validate:"omitempty,min=1,max=100"`
	Kind     *models.Kind     `json:"kind,omitempty" validate:"omitempty,enum"`
	Status   *models.Status   `json:"status,omitempty" validate:"omitempty,enum"`
	Priority *models.Priority `json:"priority,omitempty" validate:"omitempty,enum"`
	Notes    *string          `json:"notes,omitempty"`
}

type AttachTagInput struct {
	Name string `json:"name" validate:"required,min=1,max=50"`
}

type ItemService struct {
	entityService[models.Item, *models.Item]
}

func NewItemService(factory *uow.Factory, validator *Validator) *ItemService {
	return &ItemService{
		entityService: newEntityService(itemEntity, string(models.ItemSortTitle), factory, validator, (*uow.UnitOfWork).Items),
	}
}

func (s *ItemService) List(ctx context.Context, filter ItemFilter, page types.Page, sort types.Sort) ([]*models.Item, error) {
	return s.list(ctx, filter.Filters(), page, sort)
}

// Create adds an item for an existing user. Tag names are created for
// the owner when missing and linked to the item.
func (s *ItemService) Create(ctx context.Context, in CreateItemInput) (*models.Item, error) {
	if err := s.validator.Validate(itemEntity, in); err != nil {
		return nil, err
	}
	item := &models.Item{
		UserID:   in.UserID,
		Title:    in.Title,
		Kind:     in.Kind,
		Status:   in.Status,
		Priority: in.Priority,
		Notes:    in.Notes,
	}
	if item.Kind == "" {
		item.Kind = models.KindArticle
	}
	if item.Status == "" {
		item.Status = models.StatusPlanned
	}
	if item.Priority == "" {
		item.Priority = models.PriorityNormal
	}

	var created *models.Item
	err := s.do(ctx, func(ctx context.Context, u *uow.UnitOfWork) error {
		if err := requireUser(ctx, u, itemEntity, in.UserID); err != nil {
			return err
		}
		var err error
		if created, err = u.Items().Create(ctx, item); err != nil {
			return err
		}
		if len(in.Tags) == 0 {
			return nil
		}
		for _, name := range in.Tags {
			if err := attach(ctx, u, created, name); err != nil {
				return err
			}
		}
		created, err = u.Items().GetByID(ctx, created.ID)
		return err
	})
	if err == nil {
		s.log.WithField("item_id", created.ID).Info("Item created")
	}
	return created, err
}

// Update changes the given attributes. A new owner must exist.
func (s *ItemService) Update(ctx context.Context, id int64, in UpdateItemInput) (*models.Item, error) {
	if err := s.validator.Validate(itemEntity, in); err != nil {
		return nil, err
	}
	var c changes
	c.add("user_id", in.UserID, in.UserID != nil)
	c.add("title", in.Title, in.Title != nil)
	c.add("kind", in.Kind, in.Kind != nil)
	c.add("status", in.Status, in.Status != nil)
	c.add("priority", in.Priority, in.Priority != nil)
	c.add("notes", in.Notes, in.Notes != nil)

	var item *models.Item
	err := s.do(ctx, func(ctx context.Context, u *uow.UnitOfWork) error {
		if in.UserID != nil {
			if err := requireUser(ctx, u, itemEntity, *in.UserID); err != nil {
				return err
			}
		}
		var err error
		item, err = s.update(ctx, u, id, c.names, c.values)
		return err
	})
	return item, err
}

// AttachTag links the owner's tag called name to the item, creating the
// tag when the owner has none by that name.
func (s *ItemService) AttachTag(ctx context.Context, itemID int64, in AttachTagInput) (*models.Item, error) {
	if err := s.validator.Validate(itemEntity, in); err != nil {
		return nil, err
	}
	var item *models.Item
	err := s.do(ctx, func(ctx context.Context, u *uow.UnitOfWork) error {
		var err error
		if item, err = u.Items().GetByID(ctx, itemID); err != nil {
			return err
		}
		if err := attach(ctx, u, item, in.Name); err != nil {
			return err
		}
		item, err = u.Items().GetByID(ctx, itemID)
		return err
	})
	return item, err
}

// DetachTag removes the link between the item and the tag.
func (s *ItemService) DetachTag(ctx context.Context, itemID, tagID int64) error {
	return s.do(ctx, func(ctx context.Context, u *uow.UnitOfWork) error {
		if _, err := u.Items().GetByID(ctx, itemID); err != nil {
			return err
		}
		err := u.ItemTags().Unlink(ctx, itemID, tagID)
		if errors.Is(err, repository.ErrNotFound) {
			return types.NewError(types.KindNotFound, itemEntity, "tag is not attached to the item").WithField("tag_id").Wrap(err)
		}
		return err
	})
}

func attach(ctx context.Context, u *uow.UnitOfWork, item *models.Item, name string) error {
	tag, err := u.Tags().GetOrCreate(ctx, &models.Tag{UserID: item.UserID, Name: name})
	if err != nil {
		return err
	}
	return u.ItemTags().Link(ctx, item.ID, tag.ID)
}

func requireUser(ctx context.Context, u *uow.UnitOfWork, entity string, userID int64) error {
	_, err := u.Users().GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return missingUser(entity).Wrap(err)
	}
	return err
}
