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

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/do/v2"
	"github.com/tomoncle/bookshelf/api"
	"github.com/tomoncle/bookshelf/config"
	"github.com/tomoncle/bookshelf/database"
	"github.com/tomoncle/bookshelf/metrics"
	"github.com/tomoncle/bookshelf/models"
	"github.com/tomoncle/bookshelf/service"
	"github.com/tomoncle/bookshelf/uow"
	"github.com/tomoncle/bookshelf/utils"
)

// ProvideDatabase connects, migrates when enabled and checks that the
// model schemas match the mapped tables. The factory closes the pool when
// the container shuts down.
func ProvideDatabase(i do.Injector) (*database.BaseDatabaseFactory, error) {
	cfg := do.MustInvoke[*config.Config](i)
	logger := database.NewLogger("DATABASE")
	database.InitLogger(logger)

	factory := database.NewDatabaseFactory()
	if _, err := factory.CreateFromConfig(&cfg.Database.ConnectionConfig); err != nil {
		return nil, err
	}
	fks := database.NewForeignKeyManager(logger, cfg.Database.DataMigrateConfig.ForeignKeyFile)
	ctx := context.Background()
	if err := factory.InitializeDatabase(ctx, cfg.Database.DataMigrateConfig.EnableMigrateOnStartup, fks); err != nil {
		return nil, err
	}
	if err := models.ValidateSchemas(factory.GetDB()); err != nil {
		_ = factory.Close()
		return nil, fmt.Errorf("model schema mismatch: %w", err)
	}
	return factory, nil
}

// ProvideMetrics builds a private registry with the runtime collectors
// and the bookshelf ones.
func ProvideMetrics(i do.Injector) (*metrics.Metrics, error) {
	db := do.MustInvoke[*database.BaseDatabaseFactory](i)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(reg)
	if err != nil {
		return nil, err
	}
	if err := m.RegisterDBStats(db.GetStats); err != nil {
		return nil, err
	}
	return m, nil
}

func ProvideUnitOfWork(i do.Injector) (*uow.Factory, error) {
	cfg := do.MustInvoke[*config.Config](i)
	db := do.MustInvoke[*database.BaseDatabaseFactory](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	return uow.NewFactory(db,
		uow.WithAcquireTimeout(cfg.UnitOfWork.AcquireTimeout),
		uow.WithObserver(m),
	), nil
}

func ProvideValidator(i do.Injector) (*service.Validator, error) {
	return service.NewValidator(), nil
}

func ProvideUserService(i do.Injector) (*service.UserService, error) {
	return service.NewUserService(do.MustInvoke[*uow.Factory](i), do.MustInvoke[*service.Validator](i)), nil
}

func ProvideItemService(i do.Injector) (*service.ItemService, error) {
	return service.NewItemService(do.MustInvoke[*uow.Factory](i), do.MustInvoke[*service.Validator](i)), nil
}

func ProvideTagService(i do.Injector) (*service.TagService, error) {
	return service.NewTagService(do.MustInvoke[*uow.Factory](i), do.MustInvoke[*service.Validator](i)), nil
}

func ProvideAPIServer(i do.Injector) (*api.Server, error) {
	cfg := do.MustInvoke[*config.Config](i)
	services := &api.Services{
		Users: do.MustInvoke[*service.UserService](i),
		Items: do.MustInvoke[*service.ItemService](i),
		Tags:  do.MustInvoke[*service.TagService](i),
	}
	return api.NewServer(services,
		do.MustInvoke[*database.BaseDatabaseFactory](i),
		do.MustInvoke[*metrics.Metrics](i),
		cfg.Server,
	), nil
}

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	cfg config.Server
}

// Start serves in the background. A failure to listen or serve is sent on
// the returned channel.
func (h *HTTPServerHandle) Start() <-chan error {
	errs := make(chan error, 1)
	log := utils.NewLogger("HTTP")
	go func() {
		log.WithField("addr", h.Addr).Info("HTTP server starting")
		if err := h.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()
	return errs
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.ShutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	handler := do.MustInvoke[*api.Server](i)

	return &HTTPServerHandle{
		Server: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           handler,
			ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		},
		cfg: cfg.Server,
	}, nil
}
