package book

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"sort"
	"strings"

	"bookcatalog/internal/apperr"
)

var (
	ErrNotFound      = errors.New("book not found")
	ErrGenreNotFound = errors.New("genre not found")
)

const (
	MinPublishedYear   = 1800
	MaxPages           = math.MaxInt32
	DefaultSearchLimit = 5
	MaxSearchLimit     = 100
)

// Book is a stored catalog row with its author and genre references.
type Book struct {
	ID            int64
	Title         string
	AuthorID      int64
	GenreID       int64
	Pages         int
	Publisher     string
	PublishedYear int
	Language      string
	ISBN          string
}

// BookDetail is the denormalized read model returned by GetByID.
type BookDetail struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	Genre         string `json:"genre"`
	Pages         int    `json:"pages"`
	Publisher     string `json:"publisher"`
	PublishedYear int    `json:"publishedYear"`
	Language      string `json:"language"`
	ISBN          string `json:"isbn"`
}

// AuthorName is the natural key of an author.
type AuthorName struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName"`
}

func (a AuthorName) normalized() AuthorName {
	return AuthorName{FirstName: strings.TrimSpace(a.FirstName), LastName: strings.TrimSpace(a.LastName)}
}

// DisplayName formats the author as "Last First".
func (a AuthorName) DisplayName() string {
	return strings.TrimSpace(a.LastName + " " + a.FirstName)
}

// CreateInput is the book-creation schema shared by the create endpoint and
// bulk import.
type CreateInput struct {
	Title         string     `json:"title" validate:"required"`
	Author        AuthorName `json:"author"`
	Genre         string     `json:"genre" validate:"required"`
	Pages         int        `json:"pages" validate:"gte=1,lte=2147483647"`
	Publisher     string     `json:"publisher" validate:"required"`
	PublishedYear int        `json:"publishedYear" validate:"required"`
	Language      string     `json:"language" validate:"required"`
	ISBN          string     `json:"isbn" validate:"required"`
}

// Patch holds the fields of a partial update. Nil means "leave unchanged".
type Patch struct {
	Title         *string
	Author        *AuthorName
	Genre         *string
	Pages         *int
	Publisher     *string
	PublishedYear *int
	Language      *string
	ISBN          *string
}

func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Author == nil && p.Genre == nil && p.Pages == nil &&
		p.Publisher == nil && p.PublishedYear == nil && p.Language == nil && p.ISBN == nil
}

// Changes is a Patch with author and genre resolved to ids, ready for the store.
type Changes struct {
	Title         *string
	AuthorID      *int64
	GenreID       *int64
	Pages         *int
	Publisher     *string
	PublishedYear *int
	Language      *string
	ISBN          *string
}

var patchKeys = map[string]struct{}{
	"title": {}, "author": {}, "genre": {}, "pages": {},
	"publisher": {}, "publishedYear": {}, "language": {}, "isbn": {},
}

// ParsePatch decodes a JSON object into a Patch. Unknown keys reject the whole
// patch so nothing is applied partially.
func ParsePatch(raw map[string]json.RawMessage) (Patch, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, ok := patchKeys[key]; !ok {
			return Patch{}, apperr.Validation("Invalid field %s for book", key)
		}
	}

	var p Patch
	for _, key := range keys {
		val := raw[key]
		if bytes.Equal(bytes.TrimSpace(val), []byte("null")) {
			return Patch{}, apperr.Newf(apperr.KindInvalidInput, "%s must not be null", key)
		}

		var err error
		switch key {
		case "title":
			p.Title, err = decodeText(key, val)
		case "genre":
			p.Genre, err = decodeText(key, val)
		case "publisher":
			p.Publisher, err = decodeText(key, val)
		case "language":
			p.Language, err = decodeText(key, val)
		case "isbn":
			p.ISBN, err = decodeText(key, val)
		case "pages":
			p.Pages, err = decodeInt(key, val)
			if err == nil && *p.Pages < 1 {
				err = apperr.New(apperr.KindInvalidInput, "pages must be greater than or equal to 1")
			}
			if err == nil && *p.Pages > MaxPages {
				err = apperr.Newf(apperr.KindInvalidInput, "pages must be less than or equal to %d", MaxPages)
			}
		case "publishedYear":
			p.PublishedYear, err = decodeInt(key, val)
		case "author":
			var a AuthorName
			dec := json.NewDecoder(bytes.NewReader(val))
			dec.DisallowUnknownFields()
			if derr := dec.Decode(&a); derr != nil {
				return Patch{}, apperr.Wrap(derr, apperr.KindInvalidInput, "author must be an object with firstName and lastName")
			}
			a = a.normalized()
			if a.FirstName == "" {
				return Patch{}, apperr.New(apperr.KindInvalidInput, "author.firstName is required")
			}
			p.Author = &a
		default:
			return Patch{}, apperr.Validation("Invalid field %s for book", key)
		}
		if err != nil {
			return Patch{}, err
		}
	}
	return p, nil
}

func decodeText(key string, val json.RawMessage) (*string, error) {
	var s string
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, apperr.Wrap(err, apperr.KindInvalidInput, key+" must be a string")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, apperr.Newf(apperr.KindInvalidInput, "%s must not be empty", key)
	}
	return &s, nil
}

func decodeInt(key string, val json.RawMessage) (*int, error) {
	var n int
	if err := json.Unmarshal(val, &n); err != nil {
		return nil, apperr.Wrap(err, apperr.KindInvalidInput, key+" must be an integer")
	}
	return &n, nil
}

// SearchQuery filters are ANDed; empty strings and a nil year are ignored.
type SearchQuery struct {
	Title           string
	AuthorFirstName string
	AuthorLastName  string
	Genre           string
	PublishedYear   *int
	ISBN            string
	Limit           int
	Offset          int
}

type SearchRow struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	PublishedYear   int    `json:"publishedYear"`
	ISBN            string `json:"isbn"`
	Pages           int    `json:"pages"`
	Publisher       string `json:"publisher"`
	Language        string `json:"language"`
	AuthorFirstName string `json:"authorFirstName"`
	AuthorLastName  string `json:"authorLastName"`
	Genre           string `json:"genre"`
}

type SearchResult struct {
	Books  []SearchRow `json:"books"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// ImportResult lists the books created by one bulk import, in file order.
type ImportResult struct {
	Created int     `json:"created"`
	BookIDs []int64 `json:"bookIds"`
}
