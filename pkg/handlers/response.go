package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/nautilus-reporting/pkg/apperrors"
	"github.com/ekaya-inc/nautilus-reporting/pkg/logging"
	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
)

// ApiResponse is the envelope for every /api response.
type ApiResponse struct {
	Success    bool               `json:"success"`
	Data       any                `json:"data,omitempty"`
	Error      string             `json:"error,omitempty"`
	Message    string             `json:"message,omitempty"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
	// Denied lists proposed fields an update dropped for lack of permission.
	Denied []string `json:"denied_fields,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	return WriteJSON(w, statusCode, ApiResponse{
		Success: false,
		Error:   errorCode,
		Message: message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// errorStatus maps a service error onto an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrInvalidRole):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperrors.ErrLastAdmin):
		return http.StatusConflict, "last_admin"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// WriteError translates err into the error envelope. Internal errors are
// logged with sanitized text and never echoed to the client.
func WriteError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status, code := errorStatus(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("error", logging.SanitizeError(err)))
		message = "Internal server error"
	}

	if writeErr := ErrorResponse(w, status, code, message); writeErr != nil {
		logger.Error("Failed to write error response", zap.Error(writeErr))
	}
}

// writeData writes a successful envelope.
func writeData(w http.ResponseWriter, logger *zap.Logger, status int, data any) {
	if err := WriteJSON(w, status, ApiResponse{Success: true, Data: data}); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}
