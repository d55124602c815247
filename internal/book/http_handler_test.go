package book

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bookcatalog/internal/httpx"

	"github.com/go-chi/chi/v5"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRouter mounts the handler like the API does, with an optional fixed
// caller in place of cookie auth.
func newTestRouter(t *testing.T, caller *httpx.CurrentUser) (http.Handler, *MockRepository, *MockQueries) {
	t.Helper()
	s, repo, q := newTestService(t)
	h := NewHTTPHandler(s, 1<<20)

	r := chi.NewRouter()
	r.Get("/books/bookID={bookID}", h.GetByID)
	r.Get("/books/search", h.Search)
	r.Group(func(r chi.Router) {
		if caller != nil {
			r.Use(func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
					next.ServeHTTP(w, req.WithContext(httpx.ContextWithUser(req.Context(), *caller)))
				})
			})
		}
		r.Post("/books/create", h.Create)
		r.Delete("/books/delete={bookID}", h.Delete)
		r.Put("/books/books/{bookID}", h.Update)
		r.Patch("/books/books/{bookID}", h.Update)
		r.Post("/books/bulk-import-books", h.BulkImport)
	})
	return r, repo, q
}

func serve(h http.Handler, method, path string, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	return m
}

var owner = &httpx.CurrentUser{ID: ownerID, Email: "a@x.com"}

func TestHTTPHandler_GetByID(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		h, repo, _ := newTestRouter(t, nil)
		repo.EXPECT().GetDetail(gomock.Any(), int64(5)).
			Return(BookDetail{ID: 5, Title: "T", Author: "D J", Genre: "Fantasy"}, nil)

		w := serve(h, http.MethodGet, "/books/bookID=5", "")

		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "success", body["message"])
		data := body["data"].(map[string]any)
		assert.Equal(t, "T", data["title"])
		assert.Equal(t, "D J", data["author"])
		assert.Equal(t, "Fantasy", data["genre"])
	})

	t.Run("not found", func(t *testing.T) {
		h, repo, _ := newTestRouter(t, nil)
		repo.EXPECT().GetDetail(gomock.Any(), int64(5)).Return(BookDetail{}, ErrNotFound)

		w := serve(h, http.MethodGet, "/books/bookID=5", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		h, _, _ := newTestRouter(t, nil)
		w := serve(h, http.MethodGet, "/books/bookID=abc", "")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestHTTPHandler_Create(t *testing.T) {
	const body = `{"title":"T","author":{"firstName":"J","lastName":"D"},"genre":"Fantasy","pages":10,
		"publisher":"P","publishedYear":2020,"language":"En","isbn":"123"}`

	t.Run("success", func(t *testing.T) {
		h, _, q := newTestRouter(t, owner)
		expectCreate(q, "Fantasy", AuthorName{FirstName: "J", LastName: "D"}, 42)

		w := serve(h, http.MethodPost, "/books/create", body)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"Book created successfully","book_id":42}`, w.Body.String())
	})

	t.Run("unauthenticated", func(t *testing.T) {
		h, _, _ := newTestRouter(t, nil)
		w := serve(h, http.MethodPost, "/books/create", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("schema errors", func(t *testing.T) {
		h, _, _ := newTestRouter(t, owner)
		w := serve(h, http.MethodPost, "/books/create", `{"pages":0}`)

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		var resp httpx.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		fields := map[string]bool{}
		for _, d := range resp.Error.Details {
			fields[d.Field] = true
		}
		for _, f := range []string{"title", "genre", "pages", "publisher", "publishedYear", "language", "isbn", "author.firstName"} {
			assert.True(t, fields[f], "missing detail for %s", f)
		}
	})

	t.Run("extra keys are ignored", func(t *testing.T) {
		h, _, q := newTestRouter(t, owner)
		expectCreate(q, "Fantasy", AuthorName{FirstName: "J", LastName: "D"}, 43)

		w := serve(h, http.MethodPost, "/books/create", strings.Replace(body, "{", `{"id":1,`, 1))

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"Book created successfully","book_id":43}`, w.Body.String())
	})

	t.Run("unknown genre", func(t *testing.T) {
		h, _, q := newTestRouter(t, owner)
		q.EXPECT().FindGenreID(gomock.Any(), "Nope").Return(int64(0), ErrGenreNotFound)

		w := serve(h, http.MethodPost, "/books/create", strings.Replace(body, `"Fantasy"`, `"Nope"`, 1))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Genre 'Nope' not found")
	})

	t.Run("pages beyond column range", func(t *testing.T) {
		h, _, _ := newTestRouter(t, owner)
		w := serve(h, http.MethodPost, "/books/create", strings.Replace(body, `"pages":10`, `"pages":2147483648`, 1))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "pages must be less than or equal to 2147483647")
	})

	t.Run("bad year", func(t *testing.T) {
		h, _, _ := newTestRouter(t, owner)
		w := serve(h, http.MethodPost, "/books/create", strings.Replace(body, "2020", "1700", 1))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "publishedYear must be between 1800 and 2024")
	})
}

func TestHTTPHandler_Search(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		h, repo, _ := newTestRouter(t, nil)
		repo.EXPECT().Search(gomock.Any(), SearchQuery{Limit: 5}).Return([]SearchRow{}, nil)

		w := serve(h, http.MethodGet, "/books/search", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"books":[],"limit":5,"offset":0}`, w.Body.String())
	})

	t.Run("filters", func(t *testing.T) {
		h, repo, _ := newTestRouter(t, nil)
		year := 2020
		repo.EXPECT().Search(gomock.Any(), SearchQuery{
			Title: "ring", AuthorLastName: "Tolk", PublishedYear: &year, Limit: 100, Offset: 3,
		}).Return([]SearchRow{{ID: 1}}, nil)

		w := serve(h, http.MethodGet, "/books/search?title=ring&authorLastName=Tolk&publishedYear=2020&limit=100&offset=3", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("invalid paging", func(t *testing.T) {
		for _, qs := range []string{"limit=101", "limit=0", "offset=-1", "limit=abc", "publishedYear=x"} {
			h, _, _ := newTestRouter(t, nil)
			w := serve(h, http.MethodGet, "/books/search?"+qs, "")
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code, qs)
		}
	})
}

func TestHTTPHandler_Delete(t *testing.T) {
	h, _, q := newTestRouter(t, owner)
	q.EXPECT().LockBook(gomock.Any(), int64(7)).Return(Book{ID: 7}, nil)
	q.EXPECT().IsOwner(gomock.Any(), ownerID, int64(7)).Return(true, nil)
	q.EXPECT().DeleteOwnership(gomock.Any(), int64(7)).Return(nil)
	q.EXPECT().DeleteBook(gomock.Any(), int64(7)).Return(nil)

	w := serve(h, http.MethodDelete, "/books/delete=7", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Book deleted successfully"}`, w.Body.String())
}

func TestHTTPHandler_Update(t *testing.T) {
	t.Run("patch", func(t *testing.T) {
		h, _, q := newTestRouter(t, owner)
		q.EXPECT().LockBook(gomock.Any(), int64(7)).Return(Book{ID: 7}, nil)
		q.EXPECT().IsOwner(gomock.Any(), ownerID, int64(7)).Return(true, nil)
		q.EXPECT().UpdateBook(gomock.Any(), int64(7), Changes{Pages: ptr(99)}).Return(nil)

		w := serve(h, http.MethodPatch, "/books/books/7", `{"pages":99}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"Book updated successfully"}`, w.Body.String())
	})

	t.Run("put with unknown field", func(t *testing.T) {
		h, _, _ := newTestRouter(t, owner)
		w := serve(h, http.MethodPut, "/books/books/7", `{"pages":99,"rating":5}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid field rating for book")
	})

	t.Run("unknown field checked before values", func(t *testing.T) {
		h, _, _ := newTestRouter(t, owner)
		w := serve(h, http.MethodPatch, "/books/books/7", `{"bogus":1,"author":null}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid field bogus for book")
	})

	t.Run("forbidden", func(t *testing.T) {
		h, _, q := newTestRouter(t, &httpx.CurrentUser{ID: 2})
		q.EXPECT().LockBook(gomock.Any(), int64(7)).Return(Book{ID: 7}, nil)
		q.EXPECT().IsOwner(gomock.Any(), int64(2), int64(7)).Return(false, nil)

		w := serve(h, http.MethodPut, "/books/books/7", `{"title":"x"}`)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(ImportFileField, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHTTPHandler_BulkImport(t *testing.T) {
	upload := func(h http.Handler, filename, content string) *httptest.ResponseRecorder {
		body, ct := multipartBody(t, filename, content)
		r := httptest.NewRequest(http.MethodPost, "/books/bulk-import-books", body)
		r.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	t.Run("csv", func(t *testing.T) {
		h, _, q := newTestRouter(t, owner)
		expectCreate(q, "Fantasy", AuthorName{FirstName: "J", LastName: "D"}, 3)

		w := upload(h, "books.csv", csvHeader+"T,J D,Fantasy,10,P,2020,En,1\n")

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"1 books created successfully","created":1,"book_ids":[3]}`, w.Body.String())
	})

	t.Run("unsupported type", func(t *testing.T) {
		h, _, _ := newTestRouter(t, owner)
		w := upload(h, "books.txt", "hello")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Unsupported file type")
	})

	t.Run("missing file", func(t *testing.T) {
		h, _, _ := newTestRouter(t, owner)
		w := serve(h, http.MethodPost, "/books/bulk-import-books", `{}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}
