package main

import (
	"context"
	"net/http"
	"time"

	"bookcatalog/internal/auth"
	"bookcatalog/internal/book"
	"bookcatalog/internal/config"
	"bookcatalog/internal/httpx"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type routerDeps struct {
	cfg    config.Config
	logger zerolog.Logger
	auth   httpx.Authenticator
	authH  *auth.HTTPHandler
	books  *book.HTTPHandler
	db     pinger
}

// newRouter wires middleware and routes. The returned func stops background
// work owned by the router.
func newRouter(d routerDeps) (http.Handler, func()) {
	limiter := httpx.NewRateLimiter(d.cfg.RateLimitRPS, d.cfg.RateLimitBurst)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(httpx.RequestIDMiddleware(d.logger))
	r.Use(httpx.AccessLogMiddleware)
	r.Use(httpx.RecoveryMiddleware)
	r.Use(httpx.SecurityHeadersMiddleware(d.cfg.CookieSecure))
	r.Use(httpx.CORSMiddleware(d.cfg.AllowedOrigins))
	r.Use(limiter.Handler)
	r.Use(httpx.RequestSizeLimitMiddleware(d.cfg.UploadMaxBytes))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := d.db.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", d.authH.Register)
		r.Post("/login", d.authH.Login)
	})

	r.Route("/books", func(r chi.Router) {
		r.Get("/bookID={bookID}", d.books.GetByID)
		r.Get("/search", d.books.Search)

		r.Group(func(r chi.Router) {
			r.Use(httpx.CookieAuth(d.auth))
			r.Post("/create", d.books.Create)
			r.Delete("/delete={bookID}", d.books.Delete)
			r.Put("/books/{bookID}", d.books.Update)
			r.Patch("/books/{bookID}", d.books.Update)
			r.Post("/bulk-import-books", d.books.BulkImport)
		})
	})

	return r, limiter.Stop
}
