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

func (s *Server) registerUserRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listUsers",
		Method:      http.MethodGet,
		Path:        "/api/v1/users",
		Summary:     "List users",
		Description: "Returns users matching the filters, one page at a time",
		Tags:        []string{"Users"},
	}, s.handleListUsers)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createUser",
		Method:        http.MethodPost,
		Path:          "/api/v1/users",
		Summary:       "Create user",
		Description:   "Creates a user with a unique email and display name",
		Tags:          []string{"Users"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "getUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{id}",
		Summary:     "Get user",
		Tags:        []string{"Users"},
	}, s.handleGetUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateUser",
		Method:      http.MethodPatch,
		Path:        "/api/v1/users/{id}",
		Summary:     "Update user",
		Tags:        []string{"Users"},
	}, s.handleUpdateUser)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteUser",
		Method:        http.MethodDelete,
		Path:          "/api/v1/users/{id}",
		Summary:       "Delete user",
		Description:   "Deletes a user together with their items and tags",
		Tags:          []string{"Users"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteUser)
}

// === DTOs ===

type UserResponse struct {
	ID          int64     `json:"id" doc:"User ID"`
	Email       string    `json:"email" doc:"Email address"`
	DisplayName string    `json:"display_name" doc:"Display name"`
	CreatedAt   time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt   time.Time `json:"updated_at" doc:"Last update time"`
}

func newUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

type ListUsersInput struct {
	ListParams
	TimeParams
	Email       string `query:"email" doc:"Case-insensitive substring of the email"`
	DisplayName string `query:"display_name" doc:"Case-insensitive substring of the display name"`
	Sort        string `query:"sort" enum:"created_at,updated_at,email,display_name" doc:"Sort field, display_name by default"`
}

type ListUsersOutput struct {
	Body []UserResponse
}

type CreateUserRequest struct {
	Email       string `json:"email" maxLength:"255" doc:"Email address"`
	DisplayName string `json:"display_name" maxLength:"50" doc:"Display name"`
}

type CreateUserInput struct {
	Body CreateUserRequest
}

type UpdateUserRequest struct {
	Email       *string `json:"email,omitempty" maxLength:"255" doc:"Email address"`
	DisplayName *string `json:"display_name,omitempty" maxLength:"50" doc:"Display name"`
}

type UpdateUserInput struct {
	IDInput
	Body UpdateUserRequest
}

type UserOutput struct {
	Body UserResponse
}

// === Handlers ===

func (s *Server) handleListUsers(ctx context.Context, input *ListUsersInput) (*ListUsersOutput, error) {
	tr, err := input.timeRange()
	if err != nil {
		return nil, err
	}
	users, err := s.services.Users.List(ctx, service.UserFilter{
		Email:       optString(input.Email),
		DisplayName: optString(input.DisplayName),
		TimeRange:   tr,
	}, input.page(), input.sort(input.Sort))
	if err != nil {
		return nil, toAPIError(err)
	}
	resp := make([]UserResponse, len(users))
	for i, u := range users {
		resp[i] = newUserResponse(u)
	}
	return &ListUsersOutput{Body: resp}, nil
}

func (s *Server) handleCreateUser(ctx context.Context, input *CreateUserInput) (*UserOutput, error) {
	u, err := s.services.Users.Create(ctx, service.CreateUserInput{
		Email:       input.Body.Email,
		DisplayName: input.Body.DisplayName,
	})
	if err != nil {
		return nil, toAPIError(err)
	}
	return &UserOutput{Body: newUserResponse(u)}, nil
}

func (s *Server) handleGetUser(ctx context.Context, input *IDInput) (*UserOutput, error) {
	u, err := s.services.Users.Get(ctx, input.ID)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &UserOutput{Body: newUserResponse(u)}, nil
}

func (s *Server) handleUpdateUser(ctx context.Context, input *UpdateUserInput) (*UserOutput, error) {
	u, err := s.services.Users.Update(ctx, input.ID, service.UpdateUserInput{
		Email:       input.Body.Email,
		DisplayName: input.Body.DisplayName,
	})
	if err != nil {
		return nil, toAPIError(err)
	}
	return &UserOutput{Body: newUserResponse(u)}, nil
}

func (s *Server) handleDeleteUser(ctx context.Context, input *IDInput) (*NoContentOutput, error) {
	if err := s.services.Users.Delete(ctx, input.ID); err != nil {
		return nil, toAPIError(err)
	}
	return nil, nil
}
