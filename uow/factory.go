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

package uow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/bookshelf/utils"
	"github.com/uptrace/bun"
)

const DefaultAcquireTimeout = 5 * time.Second

// DBSource hands out the shared pool. The database manager implements it
// and returns nil while disconnected.
type DBSource interface {
	GetDB() *bun.DB
}

type staticSource struct {
	db *bun.DB
}

func (s staticSource) GetDB() *bun.DB { return s.db }

// Static wraps an open pool as a DBSource.
func Static(db *bun.DB) DBSource {
	return staticSource{db: db}
}

// Observer receives the outcome and duration of every scope.
type Observer interface {
	ObserveScope(outcome string, d time.Duration)
}

type Option func(*Factory)

func WithAcquireTimeout(d time.Duration) Option {
	return func(f *Factory) {
		if d > 0 {
			f.acquireTimeout = d
		}
	}
}

func WithLogger(l *logrus.Logger) Option {
	return func(f *Factory) {
		if l != nil {
			f.logger = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(f *Factory) { f.observer = o }
}

// Factory creates units of work over one shared pool.
type Factory struct {
	source         DBSource
	acquireTimeout time.Duration
	logger         *logrus.Logger
	observer       Observer
}

func NewFactory(source DBSource, opts ...Option) *Factory {
	f := &Factory{
		source:         source,
		acquireTimeout: DefaultAcquireTimeout,
		logger:         utils.NewLogger("UOW"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// New returns an idle unit of work.
func (f *Factory) New() *UnitOfWork {
	id := uuid.NewString()
	return &UnitOfWork{
		factory: f,
		id:      id,
		state:   StateIdle,
		log:     f.logger.WithField("uow", id),
	}
}

// Do runs fn inside a fresh unit of work. The scope is committed when fn
// returns nil and has not finished it, rolled back otherwise, and closed
// on every path including panics.
func (f *Factory) Do(ctx context.Context, fn func(ctx context.Context, u *UnitOfWork) error) error {
	u := f.New()
	if err := u.Enter(ctx); err != nil {
		return err
	}
	defer func() { _ = u.Close() }()

	if err := fn(ctx, u); err != nil {
		if u.State() == StateEntered {
			if rbErr := u.Rollback(); rbErr != nil {
				u.log.WithError(rbErr).Warn("Rollback failed")
			}
		}
		return err
	}
	if u.State() == StateEntered {
		return u.Commit()
	}
	return nil
}

func (f *Factory) observe(outcome string, d time.Duration) {
	if f.observer != nil {
		f.observer.ObserveScope(outcome, d)
	}
}
