package book

import (
	"context"
	"errors"
	"strings"
	"time"

	"bookcatalog/internal/apperr"
	"bookcatalog/internal/platform/postgres"
)

var (
	errBookNotFound = apperr.NotFound("Book not found")
	errNotOwner     = apperr.Forbidden("You do not own this book")
	errEmptyPatch   = apperr.Validation("No valid fields to update")
)

// Service provides catalog business logic. It holds no state between calls.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new catalog service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) checkYear(year int) error {
	current := s.now().Year()
	if year < MinPublishedYear || year > current {
		return apperr.Validation("publishedYear must be between %d and %d", MinPublishedYear, current)
	}
	return nil
}

// Create resolves genre and author and inserts the book with its ownership row,
// all in one transaction.
func (s *Service) Create(ctx context.Context, userID int64, in CreateInput) (int64, error) {
	if err := s.checkYear(in.PublishedYear); err != nil {
		return 0, err
	}

	var bookID int64
	err := s.repo.InTx(ctx, func(q Queries) error {
		genreID, err := resolveGenre(ctx, q, in.Genre)
		if err != nil {
			return err
		}
		authorID, err := q.ResolveAuthor(ctx, in.Author.normalized())
		if err != nil {
			return err
		}

		b := &Book{
			Title:         strings.TrimSpace(in.Title),
			AuthorID:      authorID,
			GenreID:       genreID,
			Pages:         in.Pages,
			Publisher:     strings.TrimSpace(in.Publisher),
			PublishedYear: in.PublishedYear,
			Language:      strings.TrimSpace(in.Language),
			ISBN:          strings.TrimSpace(in.ISBN),
		}
		if err := q.InsertBook(ctx, b); err != nil {
			return err
		}
		if err := q.AddOwner(ctx, userID, b.ID); err != nil {
			return err
		}
		bookID = b.ID
		return nil
	})
	if err != nil {
		return 0, translate(err, "create book")
	}
	return bookID, nil
}

// GetByID returns the denormalized book. No ownership check.
func (s *Service) GetByID(ctx context.Context, id int64) (BookDetail, error) {
	d, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		return BookDetail{}, translate(err, "get book")
	}
	return d, nil
}

// Search validates pagination and runs the filtered query ordered by id.
func (s *Service) Search(ctx context.Context, q SearchQuery) (SearchResult, error) {
	if q.Limit < 1 || q.Limit > MaxSearchLimit {
		return SearchResult{}, apperr.Newf(apperr.KindInvalidInput, "limit must be between 1 and %d", MaxSearchLimit)
	}
	if q.Offset < 0 {
		return SearchResult{}, apperr.New(apperr.KindInvalidInput, "offset must be greater than or equal to 0")
	}

	q.Title = strings.TrimSpace(q.Title)
	q.AuthorFirstName = strings.TrimSpace(q.AuthorFirstName)
	q.AuthorLastName = strings.TrimSpace(q.AuthorLastName)
	q.Genre = strings.TrimSpace(q.Genre)
	q.ISBN = strings.TrimSpace(q.ISBN)

	rows, err := s.repo.Search(ctx, q)
	if err != nil {
		return SearchResult{}, translate(err, "search books")
	}
	if rows == nil {
		rows = []SearchRow{}
	}
	return SearchResult{Books: rows, Limit: q.Limit, Offset: q.Offset}, nil
}

// Update applies p to a book the user owns. The year is checked only when the
// patch carries one.
func (s *Service) Update(ctx context.Context, userID, bookID int64, p Patch) error {
	if p.PublishedYear != nil {
		if err := s.checkYear(*p.PublishedYear); err != nil {
			return err
		}
	}

	err := s.repo.InTx(ctx, func(q Queries) error {
		if err := lockOwned(ctx, q, userID, bookID); err != nil {
			return err
		}
		if p.IsEmpty() {
			return errEmptyPatch
		}

		c := Changes{
			Title:         p.Title,
			Pages:         p.Pages,
			Publisher:     p.Publisher,
			PublishedYear: p.PublishedYear,
			Language:      p.Language,
			ISBN:          p.ISBN,
		}
		if p.Genre != nil {
			id, err := resolveGenre(ctx, q, *p.Genre)
			if err != nil {
				return err
			}
			c.GenreID = &id
		}
		if p.Author != nil {
			id, err := q.ResolveAuthor(ctx, p.Author.normalized())
			if err != nil {
				return err
			}
			c.AuthorID = &id
		}
		return q.UpdateBook(ctx, bookID, c)
	})
	return translate(err, "update book")
}

// Delete removes the ownership rows and then the book.
func (s *Service) Delete(ctx context.Context, userID, bookID int64) error {
	err := s.repo.InTx(ctx, func(q Queries) error {
		if err := lockOwned(ctx, q, userID, bookID); err != nil {
			return err
		}
		if err := q.DeleteOwnership(ctx, bookID); err != nil {
			return err
		}
		return q.DeleteBook(ctx, bookID)
	})
	return translate(err, "delete book")
}

func lockOwned(ctx context.Context, q Queries, userID, bookID int64) error {
	if _, err := q.LockBook(ctx, bookID); err != nil {
		return err
	}
	owned, err := q.IsOwner(ctx, userID, bookID)
	if err != nil {
		return err
	}
	if !owned {
		return errNotOwner
	}
	return nil
}

func resolveGenre(ctx context.Context, q Queries, name string) (int64, error) {
	name = strings.TrimSpace(name)
	id, err := q.FindGenreID(ctx, name)
	if errors.Is(err, ErrGenreNotFound) {
		return 0, apperr.Validation("Genre '%s' not found", name)
	}
	return id, err
}

// translate maps store errors onto apperr kinds. Errors that already carry a
// kind pass through.
func translate(err error, op string) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	switch {
	case errors.As(err, &ae):
		return err
	case errors.Is(err, ErrNotFound):
		return errBookNotFound
	case postgres.IsIntegrityViolation(err):
		return apperr.Wrap(err, apperr.KindIntegrity, "Integrity error")
	default:
		return apperr.Internal(err, op)
	}
}
