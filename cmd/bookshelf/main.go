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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
	"github.com/tomoncle/bookshelf/app"
	"github.com/tomoncle/bookshelf/config"
	"github.com/tomoncle/bookshelf/database"
	"github.com/tomoncle/bookshelf/utils"
)

var log = utils.NewLogger("MAIN")

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "bookshelf",
		Short:         "Personal bookshelf backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", utils.EnvDefaultString("BOOKSHELF_CONFIG", ""), "YAML config file (env BOOKSHELF_CONFIG)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and list the applied ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg.Database.DataMigrateConfig.EnableMigrateOnStartup = true
			return migrate(cmd.Context(), cfg)
		},
	}

	root.AddCommand(serveCmd, migrateCmd)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func serve(cfg *config.Config) error {
	injector := app.NewContainer(cfg)
	if err := app.Bootstrap(injector); err != nil {
		_ = injector.Shutdown()
		return fmt.Errorf("failed to bootstrap server: %w", err)
	}
	srv := do.MustInvoke[*app.HTTPServerHandle](injector)
	errs := srv.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case <-quit:
		log.Info("Shutting down server gracefully...")
	case serveErr = <-errs:
		log.WithError(serveErr).Error("HTTP server stopped")
	}

	if err := injector.Shutdown(); err != nil {
		log.WithField("error", err).Error("Shutdown error")
	}
	return serveErr
}

func migrate(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	injector := app.NewContainer(cfg)
	defer func() { _ = injector.Shutdown() }()

	factory, err := do.Invoke[*database.BaseDatabaseFactory](injector)
	if err != nil {
		return err
	}
	applied, err := factory.AppliedMigrations(ctx)
	if err != nil {
		return err
	}
	for _, m := range applied {
		fmt.Printf("%s  %-24s %s\n", m.Version, m.Name, m.AppliedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
