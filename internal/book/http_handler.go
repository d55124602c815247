package book

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"bookcatalog/internal/apperr"
	"bookcatalog/internal/httpx"
	"bookcatalog/internal/platform/validate"

	"github.com/go-chi/chi/v5"
)

// ImportFileField is the multipart field carrying the bulk-import file.
const ImportFileField = "file"

type HTTPHandler struct {
	service        *Service
	uploadMaxBytes int64
}

func NewHTTPHandler(service *Service, uploadMaxBytes int64) *HTTPHandler {
	return &HTTPHandler{service: service, uploadMaxBytes: uploadMaxBytes}
}

type getResponse struct {
	Message string     `json:"message"`
	Data    BookDetail `json:"data"`
}

type createResponse struct {
	Message string `json:"message"`
	BookID  int64  `json:"book_id"`
}

type importResponse struct {
	Message string  `json:"message"`
	Created int     `json:"created"`
	BookIDs []int64 `json:"book_ids"`
}

func invalidInput(w http.ResponseWriter, r *http.Request, message string, details []httpx.ErrorDetail) {
	httpx.JSONError(w, r, http.StatusUnprocessableEntity, apperr.KindInvalidInput.String(), message, details)
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		invalidInput(w, r, fmt.Sprintf("%s must be a positive integer", name), nil)
		return 0, false
	}
	return id, true
}

func currentUser(w http.ResponseWriter, r *http.Request) (httpx.CurrentUser, bool) {
	u, ok := httpx.UserFrom(r)
	if !ok {
		httpx.JSONError(w, r, http.StatusUnauthorized, apperr.KindAuth.String(), "Token is missing in cookies", nil)
	}
	return u, ok
}

// GetByID handles GET /books/bookID={bookID}
// @Summary Get a book
// @Tags books
// @Produce json
// @Param bookID path int true "Book ID"
// @Success 200 {object} getResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /books/bookID={bookID} [get]
func (h *HTTPHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "bookID")
	if !ok {
		return
	}

	d, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, getResponse{Message: "success", Data: d})
}

// Create handles POST /books/create
// @Summary Create a book owned by the caller
// @Tags books
// @Accept json
// @Produce json
// @Param request body CreateInput true "Book"
// @Success 200 {object} createResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 422 {object} httpx.ErrorResponse
// @Router /books/create [post]
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		invalidInput(w, r, "Invalid request body", nil)
		return
	}
	if details := validate.Struct(in); len(details) > 0 {
		invalidInput(w, r, "Invalid input", details)
		return
	}

	id, err := h.service.Create(r.Context(), u.ID, in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, createResponse{Message: "Book created successfully", BookID: id})
}

// Search handles GET /books/search
// @Summary Search books
// @Tags books
// @Produce json
// @Param title query string false "Title substring"
// @Param authorFirstName query string false "Author first name substring"
// @Param authorLastName query string false "Author last name substring"
// @Param genre query string false "Genre substring"
// @Param publishedYear query int false "Exact year"
// @Param isbn query string false "ISBN substring"
// @Param limit query int false "1..100, default 5"
// @Param offset query int false ">= 0, default 0"
// @Success 200 {object} SearchResult
// @Failure 422 {object} httpx.ErrorResponse
// @Router /books/search [get]
func (h *HTTPHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	q := SearchQuery{
		Title:           query.Get("title"),
		AuthorFirstName: query.Get("authorFirstName"),
		AuthorLastName:  query.Get("authorLastName"),
		Genre:           query.Get("genre"),
		ISBN:            query.Get("isbn"),
		Limit:           DefaultSearchLimit,
	}

	var details []httpx.ErrorDetail
	intParam := func(name string, dst *int) {
		raw := query.Get(name)
		if raw == "" {
			return
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			details = append(details, httpx.ErrorDetail{Field: name, Message: name + " must be an integer"})
			return
		}
		*dst = n
	}
	intParam("limit", &q.Limit)
	intParam("offset", &q.Offset)
	if query.Get("publishedYear") != "" {
		var year int
		intParam("publishedYear", &year)
		q.PublishedYear = &year
	}
	if len(details) > 0 {
		invalidInput(w, r, "Invalid query parameters", details)
		return
	}

	res, err := h.service.Search(r.Context(), q)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

// Delete handles DELETE /books/delete={bookID}
// @Summary Delete an owned book
// @Tags books
// @Produce json
// @Param bookID path int true "Book ID"
// @Success 200 {object} httpx.MessageResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /books/delete={bookID} [delete]
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "bookID")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), u.ID, id); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.Message(w, "Book deleted successfully")
}

// Update handles PUT and PATCH /books/books/{bookID}
// @Summary Update an owned book
// @Tags books
// @Accept json
// @Produce json
// @Param bookID path int true "Book ID"
// @Success 200 {object} httpx.MessageResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /books/books/{bookID} [put]
// @Router /books/books/{bookID} [patch]
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "bookID")
	if !ok {
		return
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		invalidInput(w, r, "Invalid request body", nil)
		return
	}
	patch, err := ParsePatch(raw)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	if err := h.service.Update(r.Context(), u.ID, id, patch); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.Message(w, "Book updated successfully")
}

// BulkImport handles POST /books/bulk-import-books
// @Summary Import books from a CSV or JSON file
// @Tags books
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV or JSON file"
// @Success 200 {object} importResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /books/bulk-import-books [post]
func (h *HTTPHandler) BulkImport(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}

	if h.uploadMaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.uploadMaxBytes)
	}
	file, header, err := r.FormFile(ImportFileField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.JSONError(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Uploaded file too large", nil)
			return
		}
		invalidInput(w, r, "A file must be uploaded in the \"file\" field", nil)
		return
	}
	defer file.Close()

	res, err := h.service.Import(r.Context(), u.ID, header.Filename, file)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, importResponse{
		Message: fmt.Sprintf("%d books created successfully", res.Created),
		Created: res.Created,
		BookIDs: res.BookIDs,
	})
}
