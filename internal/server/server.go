// Package server builds the application and serves the local UI.
//
// COMPOSITION ROOT:
// Everything is constructed here, once, and injected downward:
//
//	config ──▶ sqlite.DB ─┬─▶ AuthService ─────┐
//	           session ───┤   WeatherService ──┤
//	           router  ───┤   LibraryService ──┼──▶ handlers ──▶ chi routes
//	           fetcher ───┘   SettingsService ─┤
//	                          AdminService ────┘
//
// There are no package-level singletons: the store, the session and the
// screen router exist once per Server, so a test can build as many
// independent apps as it likes.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/weatherly/internal/auth"
	"github.com/sakif/weatherly/internal/config"
	"github.com/sakif/weatherly/internal/handler"
	"github.com/sakif/weatherly/internal/middleware"
	sqliteRepo "github.com/sakif/weatherly/internal/repository/sqlite"
	"github.com/sakif/weatherly/internal/router"
	"github.com/sakif/weatherly/internal/service"
	"github.com/sakif/weatherly/internal/session"
	"github.com/sakif/weatherly/internal/weather"
	"github.com/sakif/weatherly/internal/weather/openweather"
)

// Server owns the database connection and the HTTP routes.
type Server struct {
	mux    *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	router *router.Router
}

// New opens the store, seeds it, and wires every layer. fetcher may be nil,
// in which case the OpenWeatherMap client is built from cfg.Weather.
func New(cfg *config.Config, logger *slog.Logger, fetcher weather.Fetcher) (*Server, error) {
	hasher, err := auth.NewHasher(cfg.Auth.PasswordScheme, cfg.Auth.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	tokens, err := auth.NewTokenService(cfg.Auth.SessionSecret)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	db, err := sqliteRepo.New(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("server: opening database: %w", err)
	}

	seed, err := service.SeedAccount(hasher, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("server: %w", err)
	}
	if err := db.Initialize(context.Background(), seed); err != nil {
		db.Close()
		return nil, fmt.Errorf("server: initializing database: %w", err)
	}

	if fetcher == nil {
		fetcher = openweather.New(cfg.Weather.APIKey, cfg.Weather.BaseURL, cfg.Weather.Timeout)
	}

	s := &Server{
		mux:    chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		router: router.New(),
	}

	if err := s.setupRoutes(hasher, tokens, fetcher); err != nil {
		db.Close()
		return nil, fmt.Errorf("server: setting up routes: %w", err)
	}
	return s, nil
}

// setupRoutes wires services and handlers and registers every route.
//
// ROUTE STRUCTURE:
//
//	GET    /                          → active screen (HTML)
//	POST   /actions/{event}           → get-started, show-register, show-login, back
//	POST   /actions/login|register|logout
//	POST   /actions/search|favorite|settings|favorites/clear|recents/clear   (session)
//	POST   /actions/admin/delete                                              (admin)
//
//	GET    /api/me
//	GET    /api/weather?city=         GET /api/weather/current               (session)
//	GET    /api/favorites             POST /api/favorites (toggle displayed)
//	DELETE /api/favorites             DELETE /api/favorites/{city}
//	GET    /api/recents?limit=        DELETE /api/recents
//	GET    /api/settings              PUT /api/settings
//	GET    /api/admin/users           GET|DELETE /api/admin/users/{username}  (admin)
//	GET    /api/admin/logs?username=
//
// MIDDLEWARE ORDER MATTERS:
// RequestID first so the access log can print it; Recoverer inside Logger
// so a panic is still logged as a 500.
func (s *Server) setupRoutes(hasher auth.PasswordHasher, tokens *auth.TokenService, fetcher weather.Fetcher) error {
	sess := session.New()

	authSvc := service.NewAuthService(s.db, hasher, sess, s.logger)
	weatherSvc := service.NewWeatherService(fetcher, s.db, s.db, sess, s.config.Weather.Timeout, s.logger)
	librarySvc := service.NewLibraryService(s.db, s.logger)
	settingsSvc := service.NewSettingsService(s.db, s.logger)
	adminSvc := service.NewAdminService(s.db, s.config.Auth.AdminUsername, s.logger)

	// Leaving a home screen drops the displayed report and any search
	// still in flight.
	s.router.OnExit(router.UserHome, weatherSvc.Reset)
	s.router.OnExit(router.AdminHome, weatherSvc.Reset)

	views, err := handler.NewViews(s.router, sess, weatherSvc, librarySvc, settingsSvc, adminSvc, s.logger)
	if err != nil {
		return err
	}

	authHandler := handler.NewAuthHandler(authSvc, tokens, s.router, views, s.logger)
	screenHandler := handler.NewScreenHandler(views, s.router, weatherSvc, librarySvc, settingsSvc, adminSvc, s.logger)
	weatherHandler := handler.NewWeatherHandler(weatherSvc, librarySvc, s.logger)
	settingsHandler := handler.NewSettingsHandler(settingsSvc, s.logger)
	adminHandler := handler.NewAdminHandler(adminSvc, s.logger)

	requireSession := auth.RequireSession(tokens, sess)

	s.mux.Use(chimiddleware.RequestID)
	s.mux.Use(chimiddleware.RealIP)
	s.mux.Use(middleware.Logger(s.logger))
	s.mux.Use(chimiddleware.Recoverer)

	// === Screens ===
	s.mux.Get("/", screenHandler.HandleIndex)
	s.mux.Route("/actions", func(r chi.Router) {
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/logout", authHandler.HandleLogout)
		r.Post("/{event}", authHandler.HandleNavigate)

		r.Group(func(r chi.Router) {
			r.Use(requireSession)
			r.Post("/search", screenHandler.HandleSearch)
			r.Post("/favorite", screenHandler.HandleToggleFavorite)
			r.Post("/settings", screenHandler.HandleSaveSettings)
			r.Post("/favorites/clear", screenHandler.HandleClearFavorites)
			r.Post("/recents/clear", screenHandler.HandleClearRecents)
			r.With(auth.RequireAdmin).Post("/admin/delete", screenHandler.HandleDeleteAccount)
		})
	})

	// === JSON API ===
	s.mux.Route("/api", func(r chi.Router) {
		r.With(auth.OptionalSession(tokens, sess)).Get("/me", authHandler.HandleMe)

		r.Group(func(r chi.Router) {
			r.Use(requireSession)

			r.Get("/weather", weatherHandler.HandleSearch)
			r.Get("/weather/current", weatherHandler.HandleDisplayed)

			r.Get("/favorites", weatherHandler.HandleListFavorites)
			r.Post("/favorites", weatherHandler.HandleToggleFavorite)
			r.Delete("/favorites", weatherHandler.HandleClearFavorites)
			r.Delete("/favorites/{city}", weatherHandler.HandleRemoveFavorite)

			r.Get("/recents", weatherHandler.HandleListRecents)
			r.Delete("/recents", weatherHandler.HandleClearRecents)

			r.Get("/settings", settingsHandler.HandleGet)
			r.Put("/settings", settingsHandler.HandleSave)

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				r.Get("/users", adminHandler.HandleDashboard)
				r.Get("/users/{username}", adminHandler.HandleView)
				r.Delete("/users/{username}", adminHandler.HandleDelete)
				r.Get("/logs", adminHandler.HandleLogs)
			})
		})
	})

	return nil
}

// Handler exposes the routes, for tests and for embedding.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start serves until ctx is cancelled, then shuts down gracefully.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new connections
//  2. Wait up to 10s for in-flight requests (a search may be mid-fetch)
//  3. Close the database, which checkpoints the WAL
func (s *Server) Start(ctx context.Context) error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:              s.config.Server.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Longer than a search's fetch deadline.
		WriteTimeout: s.config.Weather.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("url", "http://"+s.config.Server.Addr),
			slog.String("database", s.config.DB.Path),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown requested")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
