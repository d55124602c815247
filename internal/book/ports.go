package book

import (
	"context"
)

//go:generate mockgen -source=ports.go -destination=mock_repository.go -package=book

// Queries is the set of catalog statements. The same methods run either
// directly on the pool or inside a transaction handed out by InTx.
type Queries interface {
	// FindGenreID returns ErrGenreNotFound when no genre has exactly this name.
	FindGenreID(ctx context.Context, name string) (int64, error)
	// ResolveAuthor returns the id of the author with this name, inserting it
	// if needed.
	ResolveAuthor(ctx context.Context, name AuthorName) (int64, error)
	InsertBook(ctx context.Context, b *Book) error
	AddOwner(ctx context.Context, userID, bookID int64) error
	IsOwner(ctx context.Context, userID, bookID int64) (bool, error)
	// LockBook returns ErrNotFound or locks the row for the rest of the transaction.
	LockBook(ctx context.Context, id int64) (Book, error)
	UpdateBook(ctx context.Context, id int64, c Changes) error
	DeleteOwnership(ctx context.Context, bookID int64) error
	DeleteBook(ctx context.Context, id int64) error
	GetDetail(ctx context.Context, id int64) (BookDetail, error)
	Search(ctx context.Context, q SearchQuery) ([]SearchRow, error)
}

// Repository defines the contract for catalog storage.
type Repository interface {
	Queries
	// InTx runs fn in one transaction, committing when fn returns nil and
	// rolling back otherwise.
	InTx(ctx context.Context, fn func(q Queries) error) error
}
