package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"metroads/internal/domain"
	"metroads/internal/models"
)

const maxUploadBytes = 20 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return domain.Validationf("invalid JSON body")
	}
	return nil
}

// pageParams reads page/size query params; `limit` is accepted as an alias
// for size.
func pageParams(r *http.Request) (page, size int) {
	q := r.URL.Query()
	page = parseInt(q.Get("page"), 1)
	size = parseInt(q.Get("size"), 0)
	if size == 0 {
		size = parseInt(q.Get("limit"), models.DefaultPageSize)
	}
	return page, size
}

// readUpload pulls the single file out of a multipart form. The part must be
// named "file".
func readUpload(r *http.Request) (filename, contentType string, data []byte, err error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", "", nil, domain.Validationf("invalid multipart form")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", "", nil, domain.Validationf("file part is required")
	}
	defer file.Close()

	data, err = io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return "", "", nil, err
	}
	return header.Filename, header.Header.Get("Content-Type"), data, nil
}
