package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookcatalog/internal/auth"
	"bookcatalog/internal/book"
	"bookcatalog/internal/config"
	"bookcatalog/internal/platform/logging"
	"bookcatalog/internal/platform/postgres"
	"bookcatalog/internal/user"
)

func main() {
	config.LoadEnvFiles()
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.Setup("info", "json")
		bootLogger.Fatal().Err(err).Msg("load config")
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()
	pool, err := postgres.Open(ctx, postgres.Options{
		DSN:      cfg.DBDSN,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer pool.Close()
	logger.Info().Str("dsn", postgres.RedactDSN(cfg.DBDSN)).Msg("database connection OK")

	if cfg.DBAutoSchema {
		if err := postgres.ApplySchema(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("apply schema")
		}
		logger.Info().Msg("schema applied")
	}

	userService := user.NewService(user.NewPostgresRepo(pool, cfg.DBTimeout))
	authService := auth.NewService(cfg.JWTSecret, cfg.TokenTTL, userService)
	bookService := book.NewService(book.NewPostgresRepo(pool, cfg.DBTimeout))

	router, stop := newRouter(routerDeps{
		cfg:    cfg,
		logger: logger,
		auth:   authService,
		authH:  auth.NewHTTPHandler(authService, userService, cfg.CookieSecure),
		books:  book.NewHTTPHandler(bookService, cfg.UploadMaxBytes),
		db:     pool,
	})
	defer stop()

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
