package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"gitlab.com/yelinaung/jewellery-tracker/internal/bills"
	"gitlab.com/yelinaung/jewellery-tracker/internal/filestore"
	"gitlab.com/yelinaung/jewellery-tracker/internal/goldrate"
	"gitlab.com/yelinaung/jewellery-tracker/internal/investments"
	"gitlab.com/yelinaung/jewellery-tracker/internal/logger"
	"gitlab.com/yelinaung/jewellery-tracker/internal/vision"
)

// errorBody is the error shape the web client reads.
type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

// writeServiceError maps domain errors to a status and a readable detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := classifyError(err)
	event := logger.Log.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Log.Error()
	}
	event.Err(err).
		Str("request_id", RequestIDFrom(r.Context())).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("Request failed")
	writeError(w, status, detail)
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, bills.ErrUnsupportedContentType):
		return http.StatusBadRequest, "Only image or PDF files are supported"
	case errors.Is(err, bills.ErrUnrenderable):
		return http.StatusBadRequest, "Unable to render first page of PDF"
	case errors.Is(err, investments.ErrInvalid):
		return http.StatusBadRequest, trimSentinel(err, investments.ErrInvalid)
	case errors.Is(err, goldrate.ErrInvalidRate):
		return http.StatusBadRequest, trimSentinel(err, goldrate.ErrInvalidRate)
	case errors.Is(err, filestore.ErrInvalidBillID):
		return http.StatusBadRequest, "Invalid bill id"
	case errors.Is(err, filestore.ErrConflict):
		return http.StatusConflict, "A confirmed bill with this file name already exists"
	case errors.Is(err, goldrate.ErrNoRates):
		return http.StatusNotFound, "No gold rates stored yet"
	case errors.Is(err, goldrate.ErrUpstream):
		return http.StatusBadGateway, "Failed to fetch gold rate: " + err.Error()
	case errors.Is(err, vision.ErrMissingCredential):
		return http.StatusInternalServerError, "Vision model is not configured"
	case errors.Is(err, vision.ErrTimeout):
		return http.StatusGatewayTimeout, "Vision model timed out"
	case errors.Is(err, vision.ErrUpstream):
		return http.StatusBadGateway, "Vision model call failed"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// trimSentinel drops the "<sentinel>: " prefix so the detail reads as a
// plain message.
func trimSentinel(err, sentinel error) string {
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}
