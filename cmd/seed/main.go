package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"bookcatalog/internal/book"
	"bookcatalog/internal/config"
	"bookcatalog/internal/platform/logging"
	"bookcatalog/internal/platform/postgres"
	"bookcatalog/internal/user"
)

var defaultGenres = []string{
	"Fantasy", "Science Fiction", "Mystery", "Romance", "History",
	"Biography", "Science", "Philosophy", "Poetry", "Children",
}

var sampleBooks = []book.CreateInput{
	{Title: "The Hobbit", Author: book.AuthorName{FirstName: "J.R.R.", LastName: "Tolkien"}, Genre: "Fantasy",
		Pages: 310, Publisher: "George Allen & Unwin", PublishedYear: 1937, Language: "English", ISBN: "9780261103344"},
	{Title: "Dune", Author: book.AuthorName{FirstName: "Frank", LastName: "Herbert"}, Genre: "Science Fiction",
		Pages: 412, Publisher: "Chilton Books", PublishedYear: 1965, Language: "English", ISBN: "9780441172719"},
	{Title: "The Hound of the Baskervilles", Author: book.AuthorName{FirstName: "Arthur", LastName: "Conan Doyle"}, Genre: "Mystery",
		Pages: 256, Publisher: "George Newnes", PublishedYear: 1902, Language: "English", ISBN: "9780141034324"},
}

func main() {
	withSamples := flag.Bool("samples", false, "also create sample books owned by the seed user")
	seedEmail := flag.String("seed-email", "seed@example.com", "owner of the sample books")
	seedPassword := flag.String("seed-password", "seedpassword1", "password for the seed user")
	flag.Parse()

	config.LoadEnvFiles()
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.Setup("info", "json")
		bootLogger.Fatal().Err(err).Msg("load config")
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx := logger.WithContext(context.Background())

	pool, err := postgres.Open(ctx, postgres.Options{DSN: cfg.DBDSN, MaxConns: 2})
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer pool.Close()

	if err := postgres.ApplySchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("apply schema")
	}

	for _, g := range defaultGenres {
		if _, err := pool.Exec(ctx, `INSERT INTO genres (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, g); err != nil {
			logger.Fatal().Err(err).Str("genre", g).Msg("insert genre")
		}
	}
	logger.Info().Int("genres", len(defaultGenres)).Msg("genres seeded")

	if !*withSamples {
		return
	}

	users := user.NewService(user.NewPostgresRepo(pool, cfg.DBTimeout))
	owner, err := users.Register(ctx, *seedEmail, *seedPassword, *seedPassword)
	if err != nil {
		existing, lookupErr := users.GetByEmail(ctx, *seedEmail)
		if lookupErr != nil {
			logger.Fatal().Err(errors.Join(err, lookupErr)).Msg("seed user")
		}
		owner = existing
	}

	books := book.NewService(book.NewPostgresRepo(pool, cfg.DBTimeout))
	for _, in := range sampleBooks {
		id, err := books.Create(ctx, owner.ID, in)
		if err != nil {
			logger.Error().Err(err).Str("title", in.Title).Msg("create sample book")
			os.Exit(1)
		}
		logger.Info().Int64("book_id", id).Str("title", in.Title).Msg("sample book created")
	}
}
