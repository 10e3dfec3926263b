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

package uow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/bookshelf/database/dbtest"
	"github.com/tomoncle/bookshelf/models"
	"github.com/tomoncle/bookshelf/uow"
	"github.com/uptrace/bun"
)

type recorder struct {
	outcomes []string
}

func (r *recorder) ObserveScope(outcome string, _ time.Duration) {
	r.outcomes = append(r.outcomes, outcome)
}

func newFactory(t *testing.T, opts ...uow.Option) (*uow.Factory, *bun.DB, *recorder) {
	t.Helper()
	db := dbtest.New(t)
	rec := &recorder{}
	opts = append([]uow.Option{uow.WithObserver(rec)}, opts...)
	return uow.NewFactory(uow.Static(db), opts...), db, rec
}

func countUsers(t *testing.T, db *bun.DB) int {
	t.Helper()
	n, err := db.NewSelect().Model((*models.User)(nil)).Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestStateMachine(t *testing.T) {
	f, _, rec := newFactory(t)
	ctx := context.Background()

	u := f.New()
	assert.NotEmpty(t, u.ID())
	assert.Equal(t, uow.StateIdle, u.State())
	assert.ErrorIs(t, u.Commit(), uow.ErrInvalidState)

	require.NoError(t, u.Enter(ctx))
	assert.Equal(t, uow.StateEntered, u.State())
	assert.ErrorIs(t, u.Enter(ctx), uow.ErrInvalidState)

	require.NoError(t, u.Commit())
	assert.Equal(t, uow.StateCommitted, u.State())
	assert.ErrorIs(t, u.Rollback(), uow.ErrInvalidState)

	require.NoError(t, u.Close())
	assert.Equal(t, uow.StateClosed, u.State())
	require.NoError(t, u.Close())
	assert.ErrorIs(t, u.Enter(ctx), uow.ErrInvalidState)

	assert.Equal(t, []string{"committed"}, rec.outcomes)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", uow.StateIdle.String())
	assert.Equal(t, "rolled_back", uow.StateRolledBack.String())
	assert.Equal(t, "unknown", uow.State(42).String())
}

func TestCloseIdleReleasesNothing(t *testing.T) {
	f, _, rec := newFactory(t)
	u := f.New()
	require.NoError(t, u.Close())
	assert.Equal(t, uow.StateClosed, u.State())
	assert.Empty(t, rec.outcomes)
}

func TestCommitIsVisible(t *testing.T) {
	f, db, _ := newFactory(t)
	ctx := context.Background()

	err := f.Do(ctx, func(ctx context.Context, u *uow.UnitOfWork) error {
		_, err := u.Users().Create(ctx, &models.User{Email: "a@x.com", DisplayName: "Ann"})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countUsers(t, db))
}

func TestErrorRollsBack(t *testing.T) {
	f, db, rec := newFactory(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := f.Do(ctx, func(ctx context.Context, u *uow.UnitOfWork) error {
		if _, err := u.Users().Create(ctx, &models.User{Email: "a@x.com", DisplayName: "Ann"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, countUsers(t, db))
	assert.Equal(t, []string{"rolled_back"}, rec.outcomes)
}

func TestCloseWithoutCommitRollsBack(t *testing.T) {
	f, db, rec := newFactory(t)
	ctx := context.Background()

	u := f.New()
	require.NoError(t, u.Enter(ctx))
	_, err := u.Users().Create(ctx, &models.User{Email: "a@x.com", DisplayName: "Ann"})
	require.NoError(t, err)
	require.NoError(t, u.Close())

	assert.Zero(t, countUsers(t, db))
	assert.Equal(t, []string{"rolled_back"}, rec.outcomes)
}

func TestFailedStatementKeepsScopeUsable(t *testing.T) {
	f, db, _ := newFactory(t)
	ctx := context.Background()

	err := f.Do(ctx, func(ctx context.Context, u *uow.UnitOfWork) error {
		if _, err := u.Users().Create(ctx, &models.User{Email: "a@x.com", DisplayName: "Ann"}); err != nil {
			return err
		}
		_, err := u.Users().Create(ctx, &models.User{Email: "a@x.com", DisplayName: "Bob"})
		require.Error(t, err)
		_, err = u.Users().Create(ctx, &models.User{Email: "b@x.com", DisplayName: "Bob"})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, countUsers(t, db))
}

func TestRepositoryAccessOutsideScopePanics(t *testing.T) {
	f, _, _ := newFactory(t)
	u := f.New()
	assert.Panics(t, func() { u.Users() })

	require.NoError(t, u.Enter(context.Background()))
	assert.NotPanics(t, func() { u.Items() })
	require.NoError(t, u.Rollback())
	assert.Panics(t, func() { u.Tags() })
	require.NoError(t, u.Close())
	assert.Panics(t, func() { u.ItemTags() })
}

func TestDoPanicReleasesConnection(t *testing.T) {
	f, db, _ := newFactory(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = f.Do(ctx, func(ctx context.Context, u *uow.UnitOfWork) error {
			_, _ = u.Users().Create(ctx, &models.User{Email: "a@x.com", DisplayName: "Ann"})
			panic("boom")
		})
	})
	assert.Zero(t, countUsers(t, db))
}

func TestEnterWithoutDatabaseIsUnavailable(t *testing.T) {
	rec := &recorder{}
	logger, hook := logtest.NewNullLogger()
	f := uow.NewFactory(uow.Static(nil), uow.WithObserver(rec), uow.WithLogger(logger))
	u := f.New()

	err := u.Enter(context.Background())
	assert.ErrorIs(t, err, uow.ErrServiceUnavailable)
	assert.Equal(t, uow.StateClosed, u.State())
	assert.Equal(t, []string{"unavailable"}, rec.outcomes)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "Failed to acquire a database connection", hook.LastEntry().Message)

	err = f.Do(context.Background(), func(context.Context, *uow.UnitOfWork) error {
		t.Fatal("must not run")
		return nil
	})
	assert.ErrorIs(t, err, uow.ErrServiceUnavailable)
}

func TestAcquireTimeout(t *testing.T) {
	f, _, _ := newFactory(t, uow.WithAcquireTimeout(50*time.Millisecond))
	ctx := context.Background()

	holder := f.New()
	require.NoError(t, holder.Enter(ctx))

	waiter := f.New()
	start := time.Now()
	err := waiter.Enter(ctx)
	assert.ErrorIs(t, err, uow.ErrServiceUnavailable)
	assert.Less(t, time.Since(start), 5*time.Second)

	require.NoError(t, holder.Close())

	again := f.New()
	require.NoError(t, again.Enter(ctx))
	require.NoError(t, again.Close())
}
