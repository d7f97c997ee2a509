package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"gitlab.com/yelinaung/jewellery-tracker/internal/bills"
	"gitlab.com/yelinaung/jewellery-tracker/internal/logger"
)

// multipartMemory is how much of a multipart body is buffered in memory
// before spilling to temp files.
const multipartMemory = 8 << 20

func (s *Server) uploadBill(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, http.StatusRequestEntityTooLarge, "File is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Expected a multipart form with a file field")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	logger.Log.Info().
		Str("request_id", RequestIDFrom(r.Context())).
		Str("file", logger.SanitizeFilename(header.Filename)).
		Str("content_type", contentType).
		Int("bytes", len(data)).
		Msg("Bill upload received")

	result, err := s.bills.Ingest(r.Context(), bills.Upload{
		Filename:    header.Filename,
		ContentType: contentType,
		Data:        data,
		Category:    r.FormValue("category"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
