package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/nautilus-reporting/pkg/apperrors"
	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// ParseID extracts and validates the numeric record ID from the request path.
// Returns the ID and true on success, or 0 and false on error
// (after writing an error response).
// Expects path parameter: id
func ParseID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_id", "Invalid record ID"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return 0, false
	}
	return id, true
}

// decodeBody reads a JSON object body. Numbers are kept as json.Number so
// IDs survive without float rounding.
func decodeBody(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (map[string]any, bool) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil || body == nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Request body must be a JSON object"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Request body must contain a single JSON object"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return nil, false
	}
	return body, true
}

// parseListFilter reads paging and filter parameters from the query string:
// page, limit, search, status, date_from, date_to, user_id.
func parseListFilter(q url.Values) (models.ListFilter, error) {
	var f models.ListFilter

	intParam := func(name string) (int, error) {
		raw := q.Get(name)
		if raw == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be an integer", apperrors.ErrValidation, name)
		}
		return n, nil
	}
	dateParam := func(name string) (*time.Time, error) {
		raw := q.Get(name)
		if raw == "" {
			return nil, nil
		}
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be a date (YYYY-MM-DD)", apperrors.ErrValidation, name)
		}
		return &d, nil
	}

	var err error
	if f.Page, err = intParam("page"); err != nil {
		return f, err
	}
	if f.Limit, err = intParam("limit"); err != nil {
		return f, err
	}
	if f.DateFrom, err = dateParam("date_from"); err != nil {
		return f, err
	}
	if f.DateTo, err = dateParam("date_to"); err != nil {
		return f, err
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		return f, fmt.Errorf("%w: date_to is before date_from", apperrors.ErrValidation)
	}
	if raw := q.Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return f, fmt.Errorf("%w: user_id must be a positive integer", apperrors.ErrValidation)
		}
		f.UserID = &id
	}
	f.Search = q.Get("search")
	f.Status = q.Get("status")
	f.Normalize()
	return f, nil
}
