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

// Package uow scopes one pooled connection and one transaction around a
// group of repository calls.
package uow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tomoncle/bookshelf/models"
	"github.com/tomoncle/bookshelf/repository"
	"github.com/uptrace/bun"
)

var (
	ErrServiceUnavailable = errors.New("database service unavailable")
	ErrInvalidState       = errors.New("unit of work: invalid state")
)

// State of a unit of work. Idle -> Entered -> Committed|RolledBack -> Closed.
type State int

const (
	StateIdle State = iota
	StateEntered
	StateCommitted
	StateRolledBack
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEntered:
		return "entered"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

type (
	UserRepository    = repository.Repository[models.User, *models.User]
	ItemRepository    = repository.Repository[models.Item, *models.Item]
	TagRepository     = repository.Repository[models.Tag, *models.Tag]
	ItemTagRepository = repository.LinkRepository[models.ItemTag]
)

// UnitOfWork is single use and not safe for concurrent use.
type UnitOfWork struct {
	factory *Factory
	id      string
	state   State
	log     *logrus.Entry
	started time.Time

	conn bun.Conn
	tx   bun.Tx

	users    *UserRepository
	items    *ItemRepository
	tags     *TagRepository
	itemTags *ItemTagRepository
}

func (u *UnitOfWork) ID() string { return u.id }

func (u *UnitOfWork) State() State { return u.state }

// Enter acquires a connection within the factory's acquire timeout and
// begins a transaction. Any failure is reported as ErrServiceUnavailable.
func (u *UnitOfWork) Enter(ctx context.Context) error {
	if u.state != StateIdle {
		return fmt.Errorf("%w: enter from %s", ErrInvalidState, u.state)
	}
	u.started = time.Now()
	db := u.factory.source.GetDB()
	if db == nil {
		return u.unavailable(errors.New("database not connected"))
	}

	acqCtx, cancel := context.WithTimeout(ctx, u.factory.acquireTimeout)
	defer cancel()
	conn, err := db.Conn(acqCtx)
	if err != nil {
		return u.unavailable(err)
	}
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		_ = conn.Close()
		return u.unavailable(err)
	}
	u.conn, u.tx = conn, tx
	u.state = StateEntered
	u.log.Debug("Unit of work entered")
	return nil
}

func (u *UnitOfWork) unavailable(cause error) error {
	u.state = StateClosed
	u.log.WithError(cause).Error("Failed to acquire a database connection")
	u.factory.observe("unavailable", time.Since(u.started))
	return fmt.Errorf("%w: %v", ErrServiceUnavailable, cause)
}

func (u *UnitOfWork) mustBeEntered() {
	if u.state != StateEntered {
		panic(fmt.Errorf("%w: repository access while %s", ErrInvalidState, u.state))
	}
}

func (u *UnitOfWork) Users() *UserRepository {
	u.mustBeEntered()
	if u.users == nil {
		u.users = repository.NewRepository[models.User](&u.tx, models.UserSchema)
	}
	return u.users
}

func (u *UnitOfWork) Items() *ItemRepository {
	u.mustBeEntered()
	if u.items == nil {
		u.items = repository.NewRepository[models.Item](&u.tx, models.ItemSchema)
	}
	return u.items
}

func (u *UnitOfWork) Tags() *TagRepository {
	u.mustBeEntered()
	if u.tags == nil {
		u.tags = repository.NewRepository[models.Tag](&u.tx, models.TagSchema)
	}
	return u.tags
}

func (u *UnitOfWork) ItemTags() *ItemTagRepository {
	u.mustBeEntered()
	if u.itemTags == nil {
		u.itemTags = repository.NewLinkRepository[models.ItemTag](&u.tx, "item_id", "tag_id", models.NewItemTag)
	}
	return u.itemTags
}

// Commit makes every write since Enter durable.
func (u *UnitOfWork) Commit() error {
	if u.state != StateEntered {
		return fmt.Errorf("%w: commit from %s", ErrInvalidState, u.state)
	}
	if err := u.tx.Commit(); err != nil {
		u.state = StateRolledBack
		return fmt.Errorf("commit unit of work %s: %w", u.id, err)
	}
	u.state = StateCommitted
	u.log.Debug("Unit of work committed")
	return nil
}

// Rollback discards every write since Enter.
func (u *UnitOfWork) Rollback() error {
	if u.state != StateEntered {
		return fmt.Errorf("%w: rollback from %s", ErrInvalidState, u.state)
	}
	u.state = StateRolledBack
	if err := u.tx.Rollback(); err != nil {
		return fmt.Errorf("rollback unit of work %s: %w", u.id, err)
	}
	u.log.Debug("Unit of work rolled back")
	return nil
}

// Close rolls back a scope still in progress and returns the connection to
// the pool. It may be called any number of times.
func (u *UnitOfWork) Close() error {
	switch u.state {
	case StateClosed:
		return nil
	case StateIdle:
		u.state = StateClosed
		return nil
	case StateEntered:
		if err := u.Rollback(); err != nil {
			u.log.WithError(err).Warn("Rollback on close failed")
		}
	}
	outcome := u.state
	u.state = StateClosed
	err := u.conn.Close()
	if err != nil {
		u.log.WithError(err).Warn("Failed to release connection")
	}
	u.factory.observe(outcome.String(), time.Since(u.started))
	u.log.WithField("outcome", outcome.String()).Debug("Unit of work closed")
	return err
}
