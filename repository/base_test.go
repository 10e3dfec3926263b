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

package repository_test

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/bookshelf/database/dbtest"
	"github.com/tomoncle/bookshelf/models"
	"github.com/tomoncle/bookshelf/repository"
	"github.com/tomoncle/bookshelf/types"
	"github.com/uptrace/bun"
)

type fixture struct {
	ctx   context.Context
	db    *bun.DB
	users *repository.Repository[models.User, *models.User]
	items *repository.Repository[models.Item, *models.Item]
	tags  *repository.Repository[models.Tag, *models.Tag]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	return &fixture{
		ctx:   context.Background(),
		db:    db,
		users: repository.NewRepository[models.User](db, models.UserSchema),
		items: repository.NewRepository[models.Item](db, models.ItemSchema),
		tags:  repository.NewRepository[models.Tag](db, models.TagSchema),
	}
}

func (f *fixture) user(t *testing.T, name string) *models.User {
	t.Helper()
	u, err := f.users.Create(f.ctx, &models.User{Email: name + "@x.com", DisplayName: name})
	require.NoError(t, err)
	return u
}

func (f *fixture) item(t *testing.T, userID int64, title string, kind models.Kind, status models.Status) *models.Item {
	t.Helper()
	it, err := f.items.Create(f.ctx, &models.Item{
		UserID:   userID,
		Title:    title,
		Kind:     kind,
		Status:   status,
		Priority: models.PriorityNormal,
	})
	require.NoError(t, err)
	return it
}

func (f *fixture) count(t *testing.T, model any) int {
	t.Helper()
	n, err := f.db.NewSelect().Model(model).Count(f.ctx)
	require.NoError(t, err)
	return n
}

func titles(items []*models.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}

func TestCreateAssignsIDAndTimestamps(t *testing.T) {
	f := newFixture(t)
	before := models.Now()
	u := f.user(t, "ann")

	assert.NotZero(t, u.ID)
	assert.Equal(t, "ann@x.com", u.Email)
	assert.False(t, u.CreatedAt.Before(before))
	assert.True(t, u.CreatedAt.Equal(u.UpdatedAt))
}

func TestCreateWithMissingOwnerIsReferentialViolation(t *testing.T) {
	f := newFixture(t)
	_, err := f.items.Create(f.ctx, &models.Item{UserID: 42, Title: "x", Kind: models.KindBook, Status: models.StatusPlanned, Priority: models.PriorityLow})
	assert.ErrorIs(t, err, repository.ErrReferentialViolation)
	assert.Zero(t, f.count(t, (*models.Item)(nil)))
}

func TestCreateDuplicateIsConflict(t *testing.T) {
	f := newFixture(t)
	f.user(t, "ann")

	_, err := f.users.Create(f.ctx, &models.User{Email: "ann@x.com", DisplayName: "other"})
	require.ErrorIs(t, err, repository.ErrAlreadyExists)

	var conflict *repository.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "email", conflict.Field())
	assert.Equal(t, "users", conflict.Table)
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "ann")

	first, err := f.tags.GetOrCreate(f.ctx, &models.Tag{UserID: u.ID, Name: "scifi"})
	require.NoError(t, err)
	second, err := f.tags.GetOrCreate(f.ctx, &models.Tag{UserID: u.ID, Name: "scifi"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.count(t, (*models.Tag)(nil)))
}

func TestGetOrCreateByID(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "ann")

	got, err := f.users.GetOrCreate(f.ctx, &models.User{Base: models.Base{ID: u.ID}})
	require.NoError(t, err)
	assert.Equal(t, "ann", got.DisplayName)
	assert.Equal(t, 1, f.count(t, (*models.User)(nil)))
}

func TestGetOrCreateReportsConflictOnPartialMatch(t *testing.T) {
	f := newFixture(t)
	f.user(t, "ann")

	// same email, different display name: no row equals it and insert clashes
	_, err := f.users.GetOrCreate(f.ctx, &models.User{Email: "ann@x.com", DisplayName: "Anne"})
	assert.ErrorIs(t, err, repository.ErrAlreadyExists)
	assert.Equal(t, 1, f.count(t, (*models.User)(nil)))
}

func TestGetOrCreateMany(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "ann")

	got, err := f.tags.GetOrCreateMany(f.ctx, []*models.Tag{
		{UserID: u.ID, Name: "a"},
		{UserID: u.ID, Name: "b"},
		{UserID: u.ID, Name: "a"},
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, got[0].ID, got[2].ID)
	assert.NotEqual(t, got[0].ID, got[1].ID)
	assert.Equal(t, 2, f.count(t, (*models.Tag)(nil)))
}

func TestGetByUniqueFieldOrCreate(t *testing.T) {
	f := newFixture(t)
	ann := f.user(t, "ann")

	_, err := f.users.GetByUniqueFieldOrCreate(f.ctx, "display_name", &models.User{Email: "other@x.com", DisplayName: "ann"})
	require.ErrorIs(t, err, repository.ErrAlreadyExists)
	var conflict *repository.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "display_name", conflict.Field())
	assert.Equal(t, 1, f.count(t, (*models.User)(nil)))

	bob, err := f.users.GetByUniqueFieldOrCreate(f.ctx, "display_name", &models.User{Email: "bob@x.com", DisplayName: "bob"})
	require.NoError(t, err)
	assert.NotEqual(t, ann.ID, bob.ID)
	assert.Equal(t, 2, f.count(t, (*models.User)(nil)))

	_, err = f.users.GetByUniqueFieldOrCreate(f.ctx, "nickname", &models.User{})
	assert.ErrorIs(t, err, repository.ErrUnknownField)
}

func TestGetByID(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "ann")

	got, err := f.users.GetByID(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)

	_, err = f.users.GetByID(f.ctx, u.ID+100)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetByIDs(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "a")
	b := f.user(t, "b")

	got, err := f.users.GetByIDs(f.ctx, []int64{b.ID, 999, a.ID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, b.ID, got[1].ID)

	got, err = f.users.GetByIDs(f.ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindOne(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "ann")
	f.item(t, u.ID, "one", models.KindBook, models.StatusPlanned)
	f.item(t, u.ID, "two", models.KindBook, models.StatusDone)

	got, err := f.items.FindOne(f.ctx, repository.Condition{"status": models.StatusDone})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "two", got.Title)

	got, err = f.items.FindOne(f.ctx, repository.Condition{"kind": "article"})
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = f.items.FindOne(f.ctx, repository.Condition{"kind": models.KindBook})
	assert.ErrorIs(t, err, repository.ErrMultipleRows)

	_, err = f.items.FindOne(f.ctx, repository.Condition{"shelf": 1})
	assert.ErrorIs(t, err, repository.ErrUnknownField)
}

func TestFilterIgnoresNilValues(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "ann")
	f.item(t, u.ID, "Dune", models.KindBook, models.StatusPlanned)
	f.item(t, u.ID, "Go blog", models.KindArticle, models.StatusReading)
	f.item(t, u.ID, "Hyperion", models.KindBook, models.StatusDone)

	page := types.NewPage(10, 0)
	sort := types.NewSort("title", false)

	want, err := f.items.FilterAndSort(f.ctx, types.Filters{"kind": "book"}, page, sort)
	require.NoError(t, err)
	require.Equal(t, []string{"Dune", "Hyperion"}, titles(want))

	var noTitle *string
	for _, filters := range []types.Filters{
		{"kind": "book", "title": nil},
		{"kind": "book", "title": noTitle},
		{"kind": "book", "created_from": (*time.Time)(nil), "status": nil},
	} {
		got, err := f.items.FilterAndSort(f.ctx, filters, page, sort)
		require.NoError(t, err)
		assert.Equal(t, titles(want), titles(got), "filters %v", filters)
	}
}

func TestFilterTextIsCaseInsensitiveSubstring(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "ann")
	f.item(t, u.ID, "The Go Programming Language", models.KindBook, models.StatusPlanned)
	f.item(t, u.ID, "go_tips", models.KindArticle, models.StatusPlanned)
	f.item(t, u.ID, "Rust in Action", models.KindBook, models.StatusPlanned)

	page := types.NewPage(10, 0)
	sort := types.NewSort("title", false)

	got, err := f.items.FilterAndSort(f.ctx, types.Filters{"title": "GO"}, page, sort)
	require.NoError(t, err)
	assert.Equal(t, []string{"The Go Programming Language", "go_tips"}, titles(got))

	// LIKE wildcards in the value are literal
	got, err = f.items.FilterAndSort(f.ctx, types.Filters{"title": "o_t"}, page, sort)
	require.NoError(t, err)
	assert.Equal(t, []string{"go_tips"}, titles(got))

	got, err = f.items.FilterAndSort(f.ctx, types.Filters{"title": "%"}, page, sort)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFilterRejectsUnknownFields(t *testing.T) {
	f := newFixture(t)
	page := types.NewPage(10, 0)

	for _, key := range []string{"shelf", "shelf_from", "title_to", "id_from"} {
		_, err := f.items.FilterAndSort(f.ctx, types.Filters{key: "x"}, page, types.Sort{})
		assert.ErrorIs(t, err, repository.ErrUnknownField, key)
	}

	_, err := f.items.FilterAndSort(f.ctx, types.Filters{"user_id": "abc"}, page, types.Sort{})
	assert.ErrorIs(t, err, repository.ErrInvalidValue)
}

func TestFilterTimeRange(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "ann")
	f.item(t, u.ID, "a", models.KindBook, models.StatusPlanned)
	f.item(t, u.ID, "b", models.KindBook, models.StatusPlanned)

	page := types.NewPage(10, 0)
	sort := types.NewSort("title", false)
	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)

	got, err := f.items.FilterAndSort(f.ctx, types.Filters{"created_from": past, "created_to": future}, page, sort)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, titles(got))

	got, err = f.items.FilterAndSort(f.ctx, types.Filters{"updated_from": &future}, page, sort)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = f.items.FilterAndSort(f.ctx, types.Filters{"created_to": past}, page, sort)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPagination(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "ann")
	var all []string
	for i := 0; i < 7; i++ {
		title := fmt.Sprintf("t%d", i)
		all = append(all, title)
		f.item(t, u.ID, title, models.KindBook, models.StatusPlanned)
	}

	sort := types.NewSort("title", false)
	for offset := 0; offset <= 3; offset++ {
		got, err := f.items.FilterAndSort(f.ctx, nil, types.NewPage(3, offset), sort)
		require.NoError(t, err)

		lo, hi := min(offset*3, len(all)), min((offset+1)*3, len(all))
		want := all[lo:hi]
		assert.Equal(t, want, titles(got), "offset %d", offset)
	}

	for _, page := range []types.Page{types.NewPage(64, math.MaxInt/64+1), types.NewPage(100, math.MaxInt/100+1)} {
		got, err := f.items.FilterAndSort(f.ctx, nil, page, sort)
		require.NoError(t, err)
		assert.Empty(t, got, "page %+v", page)
	}
}

func TestSortDescendingBreaksTiesByID(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "ann")
	f.item(t, u.ID, "first", models.KindBook, models.StatusPlanned)
	f.item(t, u.ID, "second", models.KindBook, models.StatusReading)
	f.item(t, u.ID, "third", models.KindBook, models.StatusPlanned)

	got, err := f.items.FilterAndSort(f.ctx, nil, types.NewPage(10, 0), types.NewSort("status", true))
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first", "third"}, titles(got))

	got, err = f.items.FilterAndSort(f.ctx, nil, types.NewPage(10, 0), types.NewSort("bogus", true))
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, titles(got))
}

func TestUpdateAttributes(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "ann")
	it := f.item(t, u.ID, "Dune", models.KindBook, models.StatusPlanned)

	updated, err := f.items.UpdateAttributes(f.ctx,
		[]string{"title", "status", "notes"},
		[]any{"Dune Messiah", models.StatusReading, "second book"},
		repository.ByID(it.ID))
	require.NoError(t, err)

	assert.Equal(t, "Dune Messiah", updated.Title)
	assert.Equal(t, models.StatusReading, updated.Status)
	assert.Equal(t, "second book", updated.Notes)
	assert.Equal(t, models.KindBook, updated.Kind)
	assert.True(t, updated.UpdatedAt.After(it.UpdatedAt))
	assert.True(t, updated.CreatedAt.Equal(it.CreatedAt))
}

func TestUpdateAttributesFailures(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "ann")
	it := f.item(t, u.ID, "Dune", models.KindBook, models.StatusPlanned)
	f.item(t, u.ID, "Hyperion", models.KindBook, models.StatusPlanned)

	_, err := f.items.UpdateAttributes(f.ctx, []string{"title"}, []any{"x"}, repository.ByID(it.ID+100))
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = f.items.UpdateAttributes(f.ctx, []string{"title"}, []any{"x"}, repository.Condition{"kind": "book"})
	assert.ErrorIs(t, err, repository.ErrMultipleRows)

	_, err = f.items.UpdateAttributes(f.ctx, []string{"title", "notes"}, []any{"x"}, repository.ByID(it.ID))
	assert.ErrorIs(t, err, repository.ErrInvalidValue)

	for _, name := range []string{"id", "created_at", "shelf"} {
		_, err = f.items.UpdateAttributes(f.ctx, []string{name}, []any{1}, repository.ByID(it.ID))
		assert.ErrorIs(t, err, repository.ErrUnknownField, name)
	}

	_, err = f.items.UpdateAttributes(f.ctx, []string{"user_id"}, []any{u.ID + 100}, repository.ByID(it.ID))
	assert.ErrorIs(t, err, repository.ErrReferentialViolation)

	got, err := f.items.GetByID(f.ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "ann")
	f.user(t, "bob")

	err := f.users.Delete(f.ctx, repository.ByID(u.ID+100))
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, 2, f.count(t, (*models.User)(nil)))

	require.NoError(t, f.users.Delete(f.ctx, repository.ByID(u.ID)))
	_, err = f.users.GetByID(f.ctx, u.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, 1, f.count(t, (*models.User)(nil)))
}

func TestAll(t *testing.T) {
	f := newFixture(t)
	f.user(t, "b")
	f.user(t, "a")

	got, err := f.users.All(f.ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].DisplayName)
}

func TestSchemaValidate(t *testing.T) {
	db := dbtest.Open(t)
	assert.NoError(t, models.UserSchema.Validate(db))

	bad := repository.NewSchema[models.User](
		repository.Key[models.User]("id", func(u *models.User) *int64 { return &u.ID }),
		repository.Column[models.User]("nickname", func(u *models.User) *string { return &u.DisplayName }),
	)
	assert.ErrorIs(t, bad.Validate(db), repository.ErrUnknownField)

	assert.Panics(t, func() {
		repository.NewSchema[models.User](
			repository.Key[models.User]("id", func(u *models.User) *int64 { return &u.ID }),
			repository.Key[models.User]("id", func(u *models.User) *int64 { return &u.ID }),
		)
	})
}
