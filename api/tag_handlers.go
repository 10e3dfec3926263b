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

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "List tags",
		Tags:        []string{"Tags"},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createTag",
		Method:        http.MethodPost,
		Path:          "/api/v1/tags",
		Summary:       "Create tag",
		Description:   "Creates a tag; names are unique per user",
		Tags:          []string{"Tags"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTag",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Get tag",
		Tags:        []string{"Tags"},
	}, s.handleGetTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateTag",
		Method:      http.MethodPatch,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Rename tag",
		Tags:        []string{"Tags"},
	}, s.handleUpdateTag)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteTag",
		Method:        http.MethodDelete,
		Path:          "/api/v1/tags/{id}",
		Summary:       "Delete tag",
		Description:   "Deletes a tag and detaches it from every item",
		Tags:          []string{"Tags"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteTag)
}

// === DTOs ===

type TagResponse struct {
	ID        int64     `json:"id" doc:"Tag ID"`
	UserID    int64     `json:"user_id" doc:"Owner ID"`
	Name      string    `json:"name" doc:"Tag name"`
	CreatedAt time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt time.Time `json:"updated_at" doc:"Last update time"`
}

func newTagResponse(t *models.Tag) TagResponse {
	return TagResponse{
		ID:        t.ID,
		UserID:    t.UserID,
		Name:      t.Name,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

type ListTagsInput struct {
	ListParams
	TimeParams
	UserID int64  `query:"user_id" minimum:"0" doc:"Owner ID"`
	Name   string `query:"name" doc:"Case-insensitive substring of the name"`
	Sort   string `query:"sort" enum:"created_at,updated_at,name" doc:"Sort field, name by default"`
}

type ListTagsOutput struct {
	Body []TagResponse
}

type CreateTagRequest struct {
	UserID int64  `json:"user_id" doc:"Owner ID"`
	Name   string `json:"name" maxLength:"50" doc:"Tag name"`
}

type CreateTagInput struct {
	Body CreateTagRequest
}

type UpdateTagRequest struct {
	Name *string `json:"name,omitempty" maxLength:"50" doc:"Tag name"`
}

type UpdateTagInput struct {
	IDInput
	Body UpdateTagRequest
}

type TagOutput struct {
	Body TagResponse
}

// === Handlers ===

func (s *Server) handleListTags(ctx context.Context, input *ListTagsInput) (*ListTagsOutput, error) {
	tr, err := input.timeRange()
	if err != nil {
		return nil, err
	}
	tags, err := s.services.Tags.List(ctx, service.TagFilter{
		UserID:    optInt64(input.UserID),
		Name:      optString(input.Name),
		TimeRange: tr,
	}, input.page(), input.sort(input.Sort))
	if err != nil {
		return nil, toAPIError(err)
	}
	resp := make([]TagResponse, len(tags))
	for i, t := range tags {
		resp[i] = newTagResponse(t)
	}
	return &ListTagsOutput{Body: resp}, nil
}

func (s *Server) handleCreateTag(ctx context.Context, input *CreateTagInput) (*TagOutput, error) {
	t, err := s.services.Tags.Create(ctx, service.CreateTagInput{
		UserID: input.Body.UserID,
		Name:   input.Body.Name,
	})
	if err != nil {
		return nil, toAPIError(err)
	}
	return &TagOutput{Body: newTagResponse(t)}, nil
}

func (s *Server) handleGetTag(ctx context.Context, input *IDInput) (*TagOutput, error) {
	t, err := s.services.Tags.Get(ctx, input.ID)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &TagOutput{Body: newTagResponse(t)}, nil
}

func (s *Server) handleUpdateTag(ctx context.Context, input *UpdateTagInput) (*TagOutput, error) {
	t, err := s.services.Tags.Update(ctx, input.ID, service.UpdateTagInput{Name: input.Body.Name})
	if err != nil {
		return nil, toAPIError(err)
	}
	return &TagOutput{Body: newTagResponse(t)}, nil
}

func (s *Server) handleDeleteTag(ctx context.Context, input *IDInput) (*NoContentOutput, error) {
	if err := s.services.Tags.Delete(ctx, input.ID); err != nil {
		return nil, toAPIError(err)
	}
	return nil, nil
}
