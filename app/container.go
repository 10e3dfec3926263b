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

// Package app wires the bookshelf components into a samber/do container.
package app

import (
	"github.com/samber/do/v2"
	"github.com/tomoncle/bookshelf/api"
	"github.com/tomoncle/bookshelf/config"
	"github.com/tomoncle/bookshelf/database"
	"github.com/tomoncle/bookshelf/metrics"
	"github.com/tomoncle/bookshelf/service"
	"github.com/tomoncle/bookshelf/uow"
	"github.com/tomoncle/bookshelf/utils"
)

// NewContainer configures logging from cfg and registers every provider.
// Nothing is built until it is invoked.
func NewContainer(cfg *config.Config) *do.RootScope {
	utils.ConfigureLogLevel(cfg.Log.Level)
	utils.ConfigureConsoleLogFormat(cfg.Log.Format)

	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, cfg)
	do.Provide(injector, ProvideDatabase)
	do.Provide(injector, ProvideMetrics)
	do.Provide(injector, ProvideUnitOfWork)

	// Business services
	do.Provide(injector, ProvideValidator)
	do.Provide(injector, ProvideUserService)
	do.Provide(injector, ProvideItemService)
	do.Provide(injector, ProvideTagService)

	// Server
	do.Provide(injector, ProvideAPIServer)
	do.Provide(injector, ProvideHTTPServer)

	return injector
}

// Bootstrap builds the data layer and services so configuration and
// connection errors surface before the server starts.
func Bootstrap(injector do.Injector) error {
	if _, err := do.Invoke[*database.BaseDatabaseFactory](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*metrics.Metrics](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*uow.Factory](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*service.UserService](injector)
	_ = do.MustInvoke[*service.ItemService](injector)
	_ = do.MustInvoke[*service.TagService](injector)
	_ = do.MustInvoke[*api.Server](injector)
	return nil
}
