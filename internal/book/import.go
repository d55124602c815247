package book

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"bookcatalog/internal/apperr"
	"bookcatalog/internal/platform/validate"
)

// Import file formats, chosen by filename suffix.
const (
	FormatCSV  = ".csv"
	FormatJSON = ".json"
)

// csvColumns are the header names a CSV import must carry.
var csvColumns = []string{"Title", "Author", "Genre", "Pages", "Publisher", "Year", "Language", "ISBN"}

// Import parses an uploaded CSV or JSON file and creates each record in order,
// each in its own transaction. The first failing record stops the batch;
// records before it stay committed and the error says how many.
func (s *Service) Import(ctx context.Context, userID int64, filename string, r io.Reader) (ImportResult, error) {
	var (
		records []CreateInput
		err     error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case FormatCSV:
		records, err = parseCSV(r)
	case FormatJSON:
		records, err = parseJSON(r)
	default:
		return ImportResult{}, apperr.Validation("Unsupported file type. Only CSV and JSON are allowed.")
	}
	if err != nil {
		return ImportResult{}, err
	}

	res := ImportResult{BookIDs: make([]int64, 0, len(records))}
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return res, apperr.Internal(err, fmt.Sprintf("import cancelled at record %d", i+1))
		}
		if err := validateRecord(rec); err != nil {
			return res, recordError(i+1, res.Created, err)
		}
		id, err := s.Create(ctx, userID, rec)
		if err != nil {
			return res, recordError(i+1, res.Created, err)
		}
		res.Created++
		res.BookIDs = append(res.BookIDs, id)
	}
	return res, nil
}

// recordError keeps the kind of err and prefixes its message with the record
// position.
func recordError(n, created int, err error) error {
	kind := apperr.KindOf(err)
	msg := fmt.Sprintf("Record %d: %s (%d books imported before the failure)", n, apperr.MessageOf(err), created)
	return apperr.Wrap(err, kind, msg)
}

func validateRecord(in CreateInput) error {
	details := validate.Struct(in)
	if len(details) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(details))
	for _, d := range details {
		msgs = append(msgs, d.Message)
	}
	return apperr.Validation("Invalid book data: %s", strings.Join(msgs, "; "))
}

func parseJSON(r io.Reader) ([]CreateInput, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperr.Internal(err, "read upload")
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, apperr.Validation("Invalid JSON format")
	}

	var raws []json.RawMessage
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, apperr.Wrap(err, apperr.KindValidation, "Invalid JSON format")
		}
	case '{':
		raws = []json.RawMessage{data}
	default:
		return nil, apperr.Validation("Invalid JSON format. Expected a list of books.")
	}

	out := make([]CreateInput, 0, len(raws))
	for i, raw := range raws {
		var in CreateInput
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, apperr.Wrap(err, apperr.KindValidation, fmt.Sprintf("Record %d: invalid book data", i+1))
		}
		out = append(out, in)
	}
	return out, nil
}

func parseCSV(r io.Reader) ([]CreateInput, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperr.Validation("CSV is empty or invalid format.")
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindValidation, "CSV format error")
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		idx[h] = i
	}
	var missing []string
	for _, col := range csvColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, apperr.Validation("CSV is missing required columns: %s", strings.Join(missing, ", "))
	}

	var out []CreateInput
	for n := 1; ; n++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperr.Wrap(err, apperr.KindValidation, "CSV format error")
		}
		in, err := csvRecord(row, idx)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.KindValidation, fmt.Sprintf("Record %d: %s", n, apperr.MessageOf(err)))
		}
		out = append(out, in)
	}
	if len(out) == 0 {
		return nil, apperr.Validation("CSV is empty or invalid format.")
	}
	return out, nil
}

func csvRecord(row []string, idx map[string]int) (CreateInput, error) {
	get := func(col string) string { return strings.TrimSpace(row[idx[col]]) }

	pages, err := strconv.Atoi(get("Pages"))
	if err != nil {
		return CreateInput{}, apperr.Validation("Pages must be an integer")
	}
	year, err := strconv.Atoi(get("Year"))
	if err != nil {
		return CreateInput{}, apperr.Validation("Year must be an integer")
	}

	var author AuthorName
	if parts := strings.Fields(get("Author")); len(parts) > 0 {
		author.FirstName = parts[0]
		author.LastName = strings.Join(parts[1:], " ")
	}

	return CreateInput{
		Title:         get("Title"),
		Author:        author,
		Genre:         get("Genre"),
		Pages:         pages,
		Publisher:     get("Publisher"),
		PublishedYear: year,
		Language:      get("Language"),
		ISBN:          get("ISBN"),
	}, nil
}
