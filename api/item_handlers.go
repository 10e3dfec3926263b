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

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/tomoncle/bookshelf/models"
	"github.com/tomoncle/bookshelf/service"
)

func (s *Server) registerItemRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listItems",
		Method:      http.MethodGet,
		Path:        "/api/v1/items",
		Summary:     "List items",
		Tags:        []string{"Items"},
	}, s.handleListItems)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createItem",
		Method:        http.MethodPost,
		Path:          "/api/v1/items",
		Summary:       "Create item",
		Description:   "Creates an item for an existing user, tagging it with the given names",
		Tags:          []string{"Items"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateItem)

	huma.Register(s.api, huma.Operation{
		OperationID: "getItem",
		Method:      http.MethodGet,
		Path:        "/api/v1/items/{id}",
		Summary:     "Get item",
		Tags:        []string{"Items"},
	}, s.handleGetItem)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateItem",
		Method:      http.MethodPatch,
		Path:        "/api/v1/items/{id}",
		Summary:     "Update item",
		Tags:        []string{"Items"},
	}, s.handleUpdateItem)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteItem",
		Method:        http.MethodDelete,
		Path:          "/api/v1/items/{id}",
		Summary:       "Delete item",
		Tags:          []string{"Items"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteItem)

	huma.Register(s.api, huma.Operation{
		OperationID: "attachItemTag",
		Method:      http.MethodPost,
		Path:        "/api/v1/items/{id}/tags",
		Summary:     "Attach tag",
		Description: "Attaches the owner's tag with this name, creating it when missing",
		Tags:        []string{"Items"},
	}, s.handleAttachTag)

	huma.Register(s.api, huma.Operation{
		OperationID:   "detachItemTag",
		Method:        http.MethodDelete,
		Path:          "/api/v1/items/{id}/tags/{tag_id}",
		Summary:       "Detach tag",
		Tags:          []string{"Items"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDetachTag)
}

// === DTOs ===

type ItemResponse struct {
	ID        int64           `json:"id" doc:"Item ID"`
	UserID    int64           `json:"user_id" doc:"Owner ID"`
	Title     string          `json:"title" doc:"Title"`
	Kind      models.Kind     `json:"kind" enum:"book,article" doc:"Kind"`
	Status    models.Status   `json:"status" enum:"planned,reading,done" doc:"Reading status"`
	Priority  models.Priority `json:"priority" enum:"low,normal,high" doc:"Priority"`
	Notes     string          `json:"notes" doc:"Free-form notes"`
	Tags      []TagResponse   `json:"tags" doc:"Attached tags ordered by name"`
	CreatedAt time.Time       `json:"created_at" doc:"Creation time"`
	UpdatedAt time.Time       `json:"updated_at" doc:"Last update time"`
}

func newItemResponse(it *models.Item) ItemResponse {
	tags := make([]TagResponse, len(it.Tags))
	for i, t := range it.Tags {
		tags[i] = newTagResponse(t)
	}
	return ItemResponse{
		ID:        it.ID,
		UserID:    it.UserID,
		Title:     it.Title,
		Kind:      it.Kind,
		Status:    it.Status,
		Priority:  it.Priority,
		Notes:     it.Notes,
		Tags:      tags,
		CreatedAt: it.CreatedAt,
		UpdatedAt: it.UpdatedAt,
	}
}

type ListItemsInput struct {
	ListParams
	TimeParams
	UserID   int64  `query:"user_id" minimum:"0" doc:"Owner ID"`
	Title    string `query:"title" doc:"Case-insensitive substring of the title"`
	Kind     string `query:"kind" enum:"book,article" doc:"Kind"`
	Status   string `query:"status" enum:"planned,reading,done" doc:"Reading status"`
	Priority string `query:"priority" enum:"low,normal,high" doc:"Priority"`
	Sort     string `query:"sort" enum:"created_at,updated_at,status,title,priority" doc:"Sort field, title by default"`
}

type ListItemsOutput struct {
	Body []ItemResponse
}

type CreateItemRequest struct {
	UserID   int64           `json:"user_id" doc:"Owner ID"`
	Title    string          `json:"title" maxLength:"100" doc:"Title"`
	Kind     models.Kind     `json:"kind,omitempty" enum:"book,article" doc:"Kind, article by default"`
	Status   models.Status   `json:"status,omitempty" enum:"planned,reading,done" doc:"Reading status, planned by default"`
	Priority models.Priority `json:"priority,omitempty" enum:"low,normal,high" doc:"Priority, normal by default"`
	Notes    string          `json:"notes,omitempty" doc:"Free-form notes"`
	Tags     []string        `json:"tags,omitempty" doc:"Tag names to attach"`
}

type CreateItemInput struct {
	Body CreateItemRequest
}

type UpdateItemRequest struct {
	UserID   *int64           `json:"user_id,omitempty" doc:"New owner ID"`
	Title    *string          `json:"title,omitempty" maxLength:"100" doc:"Title"`
	Kind     *models.Kind     `json:"kind,omitempty" enum:"book,article" doc:"Kind"`
	Status   *models.Status   `json:"status,omitempty" enum:"planned,reading,done" doc:"Reading status"`
	Priority *models.Priority `json:"priority,omitempty" enum:"low,normal,high" doc:"Priority"`
	Notes    *string          `json:"notes,omitempty" doc:"Free-form notes"`
}

type UpdateItemInput struct {
	IDInput
	Body UpdateItemRequest
}

type AttachTagRequest struct {
	Name string `json:"name" maxLength:"50" doc:"Tag name"`
}

type AttachTagInput struct {
	IDInput
	Body AttachTagRequest
}

type DetachTagInput struct {
	IDInput
	TagID int64 `path:"tag_id" minimum:"1" doc:"Tag ID"`
}

type ItemOutput struct {
	Body ItemResponse
}

// === Handlers ===

func (s *Server) handleListItems(ctx context.Context, input *ListItemsInput) (*ListItemsOutput, error) {
	tr, err := input.timeRange()
	if err != nil {
		return nil, err
	}
	items, err := s.services.Items.List(ctx, service.ItemFilter{
		UserID:    optInt64(input.UserID),
		Title:     optString(input.Title),
		Kind:      optEnum[models.Kind](input.Kind),
		Status:    optEnum[models.Status](input.Status),
		Priority:  optEnum[models.Priority](input.Priority),
		TimeRange: tr,
	}, input.page(), input.sort(input.Sort))
	if err != nil {
		return nil, toAPIError(err)
	}
	resp := make([]ItemResponse, len(items))
	for i, it := range items {
		resp[i] = newItemResponse(it)
	}
	return &ListItemsOutput{Body: resp}, nil
}

func (s *Server) handleCreateItem(ctx context.Context, input *CreateItemInput) (*ItemOutput, error) {
	it, err := s.services.Items.Create(ctx, service.CreateItemInput{
		UserID:   input.Body.UserID,
		Title:    input.Body.Title,
		Kind:     input.Body.Kind,
		Status:   input.Body.Status,
		Priority: input.Body.Priority,
		Notes:    input.Body.Notes,
		Tags:     input.Body.Tags,
	})
	if err != nil {
		return nil, toAPIError(err)
	}
	return &ItemOutput{Body: newItemResponse(it)}, nil
}

func (s *Server) handleGetItem(ctx context.Context, input *IDInput) (*ItemOutput, error) {
	it, err := s.services.Items.Get(ctx, input.ID)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &ItemOutput{Body: newItemResponse(it)}, nil
}

func (s *Server) handleUpdateItem(ctx context.Context, input *UpdateItemInput) (*ItemOutput, error) {
	it, err := s.services.Items.Update(ctx, input.ID, service.UpdateItemInput{
		UserID:   input.Body.UserID,
		Title:    input.Body.Title,
		Kind:     input.Body.Kind,
		Status:   input.Body.Status,
		Priority: input.Body.Priority,
		Notes:    input.Body.Notes,
	})
	if err != nil {
		return nil, toAPIError(err)
	}
	return &ItemOutput{Body: newItemResponse(it)}, nil
}

func (s *Server) handleDeleteItem(ctx context.Context, input *IDInput) (*NoContentOutput, error) {
	if err := s.services.Items.Delete(ctx, input.ID); err != nil {
		return nil, toAPIError(err)
	}
	return nil, nil
}

func (s *Server) handleAttachTag(ctx context.Context, input *AttachTagInput) (*ItemOutput, error) {
	it, err := s.services.Items.AttachTag(ctx, input.ID, service.AttachTagInput{Name: input.Body.Name})
	if err != nil {
		return nil, toAPIError(err)
	}
	return &ItemOutput{Body: newItemResponse(it)}, nil
}

func (s *Server) handleDetachTag(ctx context.Context, input *DetachTagInput) (*NoContentOutput, error) {
	if err := s.services.Items.DetachTag(ctx, input.ID, input.TagID); err != nil {
		return nil, toAPIError(err)
	}
	return nil, nil
}
