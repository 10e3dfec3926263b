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
	"time"

	"github.com/tomoncle/bookshelf/repository"
	"github.com/tomoncle/bookshelf/types"
	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`
	Base

	Email       string `bun:"email,notnull,unique,type:varchar(255)" json:"email"`
	DisplayName string `bun:"display_name,notnull,type:varchar(50)" json:"display_name"`
}

// UserSortField enumerates the columns users can be sorted by.
type UserSortField string

const (
	UserSortCreatedAt   UserSortField = "created_at"
	UserSortUpdatedAt   UserSortField = "updated_at"
	UserSortEmail       UserSortField = "email"
	UserSortDisplayName UserSortField = "display_name"
)

var UserSortFields = []UserSortField{UserSortCreatedAt, UserSortUpdatedAt, UserSortEmail, UserSortDisplayName}

func (f UserSortField) IsValid() bool  { return f.Number() != types.IllegalValue }
func (f UserSortField) Number() int    { return types.EnumIndex(UserSortFields, f) }
func (f UserSortField) String() string { return string(f) }

var UserSchema = repository.NewSchema[User](
	repository.Key[User]("id", func(u *User) *int64 { return &u.ID }),
	repository.Column[User]("email", func(u *User) *string { return &u.Email }),
	repository.Column[User]("display_name", func(u *User) *string { return &u.DisplayName }),
	repository.Timestamp[User]("created_at", func(u *User) *time.Time { return &u.CreatedAt }),
	repository.Timestamp[User]("updated_at", func(u *User) *time.Time { return &u.UpdatedAt }),
)
