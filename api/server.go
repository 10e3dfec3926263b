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

// Package api serves the bookshelf services over HTTP with chi and huma.
package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/bookshelf/config"
	"github.com/tomoncle/bookshelf/metrics"
	"github.com/tomoncle/bookshelf/service"
	"github.com/tomoncle/bookshelf/utils"
)

const Version = "1.0.0"

// Services groups the entity services the handlers call.
type Services struct {
	Users *service.UserService
	Items *service.ItemService
	Tags  *service.TagService
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services *Services
	health   HealthChecker
	metrics  *metrics.Metrics
	router   *chi.Mux
	api      huma.API
	log      *logrus.Logger
}

// NewServer creates the router with every route registered. health and m
// may be nil.
func NewServer(services *Services, health HealthChecker, m *metrics.Metrics, cfg config.Server) *Server {
	s := &Server{
		services: services,
		health:   health,
		metrics:  m,
		router:   chi.NewRouter(),
		log:      utils.NewLogger("HTTP"),
	}
	s.setupMiddleware(cfg)

	s.api = humachi.New(s.router, huma.DefaultConfig("Bookshelf API", Version))
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerUserRoutes()
	s.registerItemRoutes()
	s.registerTagRoutes()
	if m != nil {
		s.router.Handle("/metrics", m.Handler())
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware(cfg config.Server) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.log))
	s.router.Use(middleware.Recoverer)
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware)
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}
