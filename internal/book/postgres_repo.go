package book

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type queries struct {
	db      dbtx
	timeout time.Duration
}

func (q *queries) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, q.timeout)
}

type PostgresRepo struct {
	*queries
	pool *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{
		queries: &queries{db: db, timeout: timeout},
		pool:    db,
	}
}

func (r *PostgresRepo) InTx(ctx context.Context, fn func(q Queries) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	if err := fn(&queries{db: tx, timeout: r.timeout}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (q *queries) FindGenreID(ctx context.Context, name string) (int64, error) {
	ctx, cancel := q.withTimeout(ctx)
	defer cancel()

	var id int64
	err := q.db.QueryRow(ctx, `SELECT id FROM genres WHERE name = $1`, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrGenreNotFound
	}
	return id, err
}

func (q *queries) ResolveAuthor(ctx context.Context, name AuthorName) (int64, error) {
	// The no-op update makes RETURNING yield the existing row on conflict.
	const sql = `
		INSERT INTO authors (first_name, last_name)
		VALUES ($1, $2)
		ON CONFLICT (first_name, last_name) DO UPDATE SET first_name = EXCLUDED.first_name
		RETURNING id`

	ctx, cancel := q.withTimeout(ctx)
	defer cancel()

	var id int64
	if err := q.db.QueryRow(ctx, sql, name.FirstName, name.LastName).Scan(&id); err != nil {
		return 0, fmt.Errorf("resolve author: %w", err)
	}
	return id, nil
}

func (q *queries) InsertBook(ctx context.Context, b *Book) error {
	const sql = `
		INSERT INTO books (title, author_id, genre_id, pages, publisher, published_year, language, isbn)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	ctx, cancel := q.withTimeout(ctx)
	defer cancel()

	err := q.db.QueryRow(ctx, sql,
		b.Title, b.AuthorID, b.GenreID, b.Pages, b.Publisher, b.PublishedYear, b.Language, b.ISBN,
	).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

func (q *queries) AddOwner(ctx context.Context, userID, bookID int64) error {
	ctx, cancel := q.withTimeout(ctx)
	defer cancel()

	if _, err := q.db.Exec(ctx, `INSERT INTO user_books (user_id, book_id) VALUES ($1, $2)`, userID, bookID); err != nil {
		return fmt.Errorf("insert ownership: %w", err)
	}
	return nil
}

func (q *queries) IsOwner(ctx context.Context, userID, bookID int64) (bool, error) {
	ctx, cancel := q.withTimeout(ctx)
	defer cancel()

	var owned bool
	err := q.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_books WHERE user_id = $1 AND book_id = $2)`,
		userID, bookID,
	).Scan(&owned)
	return owned, err
}

func (q *queries) LockBook(ctx context.Context, id int64) (Book, error) {
	const sql = `
		SELECT id, title, author_id, genre_id, pages, publisher, published_year, language, isbn
		FROM books
		WHERE id = $1
		FOR UPDATE`

	ctx, cancel := q.withTimeout(ctx)
	defer cancel()

	var b Book
	err := q.db.QueryRow(ctx, sql, id).Scan(
		&b.ID, &b.Title, &b.AuthorID, &b.GenreID, &b.Pages, &b.Publisher, &b.PublishedYear, &b.Language, &b.ISBN,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, err
	}
	return b, nil
}

// UpdateBook writes the non-nil fields of c in a single statement. Column
// names come from this fixed list, never from the request.
func (q *queries) UpdateBook(ctx context.Context, id int64, c Changes) error {
	sets := []string{}
	args := []any{}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if c.Title != nil {
		add("title", *c.Title)
	}
	if c.AuthorID != nil {
		add("author_id", *c.AuthorID)
	}
	if c.GenreID != nil {
		add("genre_id", *c.GenreID)
	}
	if c.Pages != nil {
		add("pages", *c.Pages)
	}
	if c.Publisher != nil {
		add("publisher", *c.Publisher)
	}
	if c.PublishedYear != nil {
		add("published_year", *c.PublishedYear)
	}
	if c.Language != nil {
		add("language", *c.Language)
	}
	if c.ISBN != nil {
		add("isbn", *c.ISBN)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	sql := fmt.Sprintf("UPDATE books SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	ctx, cancel := q.withTimeout(ctx)
	defer cancel()

	tag, err := q.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (q *queries) DeleteOwnership(ctx context.Context, bookID int64) error {
	ctx, cancel := q.withTimeout(ctx)
	defer cancel()

	if _, err := q.db.Exec(ctx, `DELETE FROM user_books WHERE book_id = $1`, bookID); err != nil {
		return fmt.Errorf("delete ownership: %w", err)
	}
	return nil
}

func (q *queries) DeleteBook(ctx context.Context, id int64) error {
	ctx, cancel := q.withTimeout(ctx)
	defer cancel()

	tag, err := q.db.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (q *queries) GetDetail(ctx context.Context, id int64) (BookDetail, error) {
	const sql = `
		SELECT b.id, b.title, a.first_name, a.last_name, g.name,
		       b.pages, b.publisher, b.published_year, b.language, b.isbn
		FROM books b
		JOIN authors a ON a.id = b.author_id
		JOIN genres g ON g.id = b.genre_id
		WHERE b.id = $1`

	ctx, cancel := q.withTimeout(ctx)
	defer cancel()

	var (
		d      BookDetail
		author AuthorName
	)
	err := q.db.QueryRow(ctx, sql, id).Scan(
		&d.ID, &d.Title, &author.FirstName, &author.LastName, &d.Genre,
		&d.Pages, &d.Publisher, &d.PublishedYear, &d.Language, &d.ISBN,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BookDetail{}, ErrNotFound
		}
		return BookDetail{}, err
	}
	d.Author = author.DisplayName()
	return d, nil
}

func (q *queries) Search(ctx context.Context, sq SearchQuery) ([]SearchRow, error) {
	clauses := []string{"1=1"}
	args := []any{}
	ilike := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, "%"+escapeLike(val)+"%")
		clauses = append(clauses, fmt.Sprintf("%s ILIKE $%d", col, len(args)))
	}

	ilike("b.title", sq.Title)
	ilike("a.first_name", sq.AuthorFirstName)
	ilike("a.last_name", sq.AuthorLastName)
	ilike("g.name", sq.Genre)
	ilike("b.isbn", sq.ISBN)
	if sq.PublishedYear != nil {
		args = append(args, *sq.PublishedYear)
		clauses = append(clauses, fmt.Sprintf("b.published_year = $%d", len(args)))
	}

	args = append(args, sq.Limit, sq.Offset)
	sql := fmt.Sprintf(`
		SELECT b.id, b.title, b.published_year, b.isbn, b.pages, b.publisher, b.language,
		       a.first_name, a.last_name, g.name
		FROM books b
		JOIN authors a ON a.id = b.author_id
		JOIN genres g ON g.id = b.genre_id
		WHERE %s
		ORDER BY b.id
		LIMIT $%d OFFSET $%d`,
		strings.Join(clauses, " AND "), len(args)-1, len(args))

	ctx, cancel := q.withTimeout(ctx)
	defer cancel()

	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []SearchRow{}
	for rows.Next() {
		var r SearchRow
		if err := rows.Scan(
			&r.ID, &r.Title, &r.PublishedYear, &r.ISBN, &r.Pages, &r.Publisher, &r.Language,
			&r.AuthorFirstName, &r.AuthorLastName, &r.Genre,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user input match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
