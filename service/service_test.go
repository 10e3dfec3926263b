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

package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/bookshelf/database/dbtest"
	"github.com/tomoncle/bookshelf/models"
	"github.com/tomoncle/bookshelf/service"
	"github.com/tomoncle/bookshelf/types"
	"github.com/tomoncle/bookshelf/uow"
)

type services struct {
	users *service.UserService
	items *service.ItemService
	tags  *service.TagService
}

func newServices(t *testing.T) *services {
	t.Helper()
	factory := uow.NewFactory(uow.Static(dbtest.New(t)))
	v := service.NewValidator()
	return &services{
		users: service.NewUserService(factory, v),
		items: service.NewItemService(factory, v),
		tags:  service.NewTagService(factory, v),
	}
}

func ptr[T any](v T) *T { return &v }

func requireKind(t *testing.T, want types.ErrorKind, err error) *types.Error {
	t.Helper()
	require.Error(t, err)
	var domain *types.Error
	require.ErrorAs(t, err, &domain)
	require.Equal(t, want, domain.Kind, "error: %v", err)
	return domain
}

func TestUserItemLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)

	ann, err := s.users.Create(ctx, service.CreateUserInput{Email: "a@x.com", DisplayName: "Ann"})
	require.NoError(t, err)

	book, err := s.items.Create(ctx, service.CreateItemInput{UserID: ann.ID, Title: "Book1", Kind: models.KindBook})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPlanned, book.Status)
	assert.Equal(t, models.PriorityNormal, book.Priority)

	_, err = s.items.Create(ctx, service.CreateItemInput{UserID: ann.ID, Title: "Blog post"})
	require.NoError(t, err)

	found, err := s.items.List(ctx, service.ItemFilter{Kind: ptr(models.KindBook)}, types.NewPage(10, 0), types.Sort{})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Book1", found[0].Title)
	assert.Equal(t, ann.ID, found[0].UserID)

	require.NoError(t, s.users.Delete(ctx, ann.ID))

	_, err = s.users.Get(ctx, ann.ID)
	requireKind(t, types.KindNotFound, err)
	_, err = s.items.Get(ctx, book.ID)
	requireKind(t, types.KindNotFound, err)

	left, err := s.items.List(ctx, service.ItemFilter{}, types.NewPage(10, 0), types.Sort{})
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestTagNamesAreUniquePerUser(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)

	u1, err := s.users.Create(ctx, service.CreateUserInput{Email: "a@x.com", DisplayName: "Ann"})
	require.NoError(t, err)
	u2, err := s.users.Create(ctx, service.CreateUserInput{Email: "b@x.com", DisplayName: "Bob"})
	require.NoError(t, err)

	_, err = s.tags.Create(ctx, service.CreateTagInput{UserID: u1.ID, Name: "scifi"})
	require.NoError(t, err)

	_, err = s.tags.Create(ctx, service.CreateTagInput{UserID: u1.ID, Name: "scifi"})
	e := requireKind(t, types.KindAlreadyExists, err)
	assert.Equal(t, "name", e.Field)

	other, err := s.tags.Create(ctx, service.CreateTagInput{UserID: u2.ID, Name: "scifi"})
	require.NoError(t, err)
	assert.Equal(t, u2.ID, other.UserID)

	tags, err := s.tags.List(ctx, service.TagFilter{Name: ptr("SCI")}, types.NewPage(10, 0), types.Sort{})
	require.NoError(t, err)
	assert.Len(t, tags, 2)
}

func TestCreateUserConflicts(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)

	_, err := s.users.Create(ctx, service.CreateUserInput{Email: "a@x.com", DisplayName: "Ann"})
	require.NoError(t, err)

	_, err = s.users.Create(ctx, service.CreateUserInput{Email: "other@x.com", DisplayName: "Ann"})
	e := requireKind(t, types.KindAlreadyExists, err)
	assert.Equal(t, "display_name", e.Field)

	_, err = s.users.Create(ctx, service.CreateUserInput{Email: "a@x.com", DisplayName: "Anne"})
	e = requireKind(t, types.KindAlreadyExists, err)
	assert.Equal(t, "email", e.Field)
	assert.Equal(t, "user with this email already exists", e.Message)

	users, err := s.users.List(ctx, service.UserFilter{}, types.NewPage(10, 0), types.Sort{})
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestValidationFailures(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)

	_, err := s.users.Create(ctx, service.CreateUserInput{Email: "not-an-email", DisplayName: "Ann"})
	e := requireKind(t, types.KindValidation, err)
	assert.Equal(t, "email", e.Field)
	assert.Equal(t, "must be a valid email address", e.Details["email"])

	_, err = s.items.Create(ctx, service.CreateItemInput{UserID: 1, Title: "x", Kind: "video"})
	e = requireKind(t, types.KindValidation, err)
	assert.Equal(t, "must be one of: book, article", e.Details["kind"])

	_, err = s.items.Update(ctx, 1, service.UpdateItemInput{Status: ptr(models.Status("lost"))})
	e = requireKind(t, types.KindValidation, err)
	assert.Contains(t, e.Details, "status")

	_, err = s.tags.Create(ctx, service.CreateTagInput{})
	e = requireKind(t, types.KindValidation, err)
	assert.Len(t, e.Details, 2)
}

func TestMissingOwnerIsReferentialViolation(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)

	_, err := s.items.Create(ctx, service.CreateItemInput{UserID: 7, Title: "orphan"})
	e := requireKind(t, types.KindReferentialViolation, err)
	assert.Equal(t, "user_id", e.Field)

	_, err = s.tags.Create(ctx, service.CreateTagInput{UserID: 7, Name: "x"})
	requireKind(t, types.KindReferentialViolation, err)

	ann, err := s.users.Create(ctx, service.CreateUserInput{Email: "a@x.com", DisplayName: "Ann"})
	require.NoError(t, err)
	it, err := s.items.Create(ctx, service.CreateItemInput{UserID: ann.ID, Title: "Dune"})
	require.NoError(t, err)

	_, err = s.items.Update(ctx, it.ID, service.UpdateItemInput{UserID: ptr(int64(99))})
	requireKind(t, types.KindReferentialViolation, err)
}

func TestUpdates(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)

	ann, err := s.users.Create(ctx, service.CreateUserInput{Email: "a@x.com", DisplayName: "Ann"})
	require.NoError(t, err)
	_, err = s.users.Create(ctx, service.CreateUserInput{Email: "b@x.com", DisplayName: "Bob"})
	require.NoError(t, err)

	updated, err := s.users.Update(ctx, ann.ID, service.UpdateUserInput{DisplayName: ptr("Annie")})
	require.NoError(t, err)
	assert.Equal(t, "Annie", updated.DisplayName)
	assert.Equal(t, "a@x.com", updated.Email)
	assert.True(t, updated.UpdatedAt.After(ann.UpdatedAt))

	_, err = s.users.Update(ctx, ann.ID, service.UpdateUserInput{DisplayName: ptr("Annie")})
	require.NoError(t, err)

	_, err = s.users.Update(ctx, ann.ID, service.UpdateUserInput{DisplayName: ptr("Bob")})
	e := requireKind(t, types.KindAlreadyExists, err)
	assert.Equal(t, "display_name", e.Field)

	_, err = s.users.Update(ctx, ann.ID, service.UpdateUserInput{Email: ptr("b@x.com")})
	e = requireKind(t, types.KindAlreadyExists, err)
	assert.Equal(t, "email", e.Field)

	_, err = s.users.Update(ctx, ann.ID, service.UpdateUserInput{})
	requireKind(t, types.KindValidation, err)

	_, err = s.users.Update(ctx, 404, service.UpdateUserInput{Email: ptr("c@x.com")})
	requireKind(t, types.KindNotFound, err)

	it, err := s.items.Create(ctx, service.CreateItemInput{UserID: ann.ID, Title: "Dune"})
	require.NoError(t, err)
	it, err = s.items.Update(ctx, it.ID, service.UpdateItemInput{Status: ptr(models.StatusDone), Notes: ptr("great")})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, it.Status)
	assert.Equal(t, "great", it.Notes)
	assert.Equal(t, "Dune", it.Title)

	_, err = s.items.Update(ctx, it.ID+1, service.UpdateItemInput{Title: ptr("x")})
	requireKind(t, types.KindNotFound, err)
}

func TestItemTags(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)

	ann, err := s.users.Create(ctx, service.CreateUserInput{Email: "a@x.com", DisplayName: "Ann"})
	require.NoError(t, err)

	it, err := s.items.Create(ctx, service.CreateItemInput{UserID: ann.ID, Title: "Dune", Tags: []string{"scifi", "classic", "scifi"}})
	require.NoError(t, err)
	require.Len(t, it.Tags, 2)
	assert.Equal(t, "classic", it.Tags[0].Name)

	it, err = s.items.AttachTag(ctx, it.ID, service.AttachTagInput{Name: "favorite"})
	require.NoError(t, err)
	require.Len(t, it.Tags, 3)

	tags, err := s.tags.List(ctx, service.TagFilter{UserID: ptr(ann.ID)}, types.NewPage(10, 0), types.Sort{})
	require.NoError(t, err)
	assert.Len(t, tags, 3)

	var scifi int64
	for _, tag := range it.Tags {
		if tag.Name == "scifi" {
			scifi = tag.ID
		}
	}
	require.NotZero(t, scifi)
	require.NoError(t, s.items.DetachTag(ctx, it.ID, scifi))

	err = s.items.DetachTag(ctx, it.ID, scifi)
	e := requireKind(t, types.KindNotFound, err)
	assert.Equal(t, "tag_id", e.Field)

	_, err = s.items.AttachTag(ctx, it.ID+1, service.AttachTagInput{Name: "x"})
	requireKind(t, types.KindNotFound, err)

	it, err = s.items.Get(ctx, it.ID)
	require.NoError(t, err)
	assert.Len(t, it.Tags, 2)

	// the tag itself survives detaching
	_, err = s.tags.Get(ctx, scifi)
	require.NoError(t, err)
}

func TestListFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)

	ann, err := s.users.Create(ctx, service.CreateUserInput{Email: "a@x.com", DisplayName: "Ann"})
	require.NoError(t, err)
	bob, err := s.users.Create(ctx, service.CreateUserInput{Email: "b@x.com", DisplayName: "Bob"})
	require.NoError(t, err)
	for _, title := range []string{"b", "c", "a"} {
		_, err = s.items.Create(ctx, service.CreateItemInput{UserID: ann.ID, Title: title})
		require.NoError(t, err)
	}
	_, err = s.items.Create(ctx, service.CreateItemInput{UserID: bob.ID, Title: "z"})
	require.NoError(t, err)

	got, err := s.items.List(ctx, service.ItemFilter{UserID: ptr(ann.ID)}, types.NewPage(10, 0), types.Sort{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Title)

	got, err = s.items.List(ctx, service.ItemFilter{}, types.NewPage(2, 0), types.NewSort(string(models.ItemSortTitle), true))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "z", got[0].Title)
	assert.Equal(t, "c", got[1].Title)

	users, err := s.users.List(ctx, service.UserFilter{Email: ptr("B@X")}, types.NewPage(10, 0), types.Sort{})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Bob", users[0].DisplayName)
}

func TestUnavailableDatabase(t *testing.T) {
	ctx := context.Background()
	factory := uow.NewFactory(uow.Static(nil))
	users := service.NewUserService(factory, nil)

	_, err := users.Get(ctx, 1)
	requireKind(t, types.KindServiceUnavailable, err)

	_, err = users.List(ctx, service.UserFilter{}, types.NewPage(10, 0), types.Sort{})
	requireKind(t, types.KindServiceUnavailable, err)
}
