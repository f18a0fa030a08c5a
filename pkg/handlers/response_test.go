package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ekaya-inc/nautilus-reporting/pkg/apperrors"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperrors.ErrUnauthenticated, http.StatusUnauthorized, "unauthorized"},
		{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{fmt.Errorf("wrap: %w", apperrors.ErrForbidden), http.StatusForbidden, "forbidden"},
		{apperrors.ErrInvalidRole, http.StatusBadRequest, "validation_error"},
		{apperrors.ErrLastAdmin, http.StatusConflict, "last_admin"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		status, code := errorStatus(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}

func TestWriteError_HidesInternalDetails(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	rec := httptest.NewRecorder()

	WriteError(rec, zap.New(core), errors.New(`connect: password="s3cret" refused`))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
	assert.NotContains(t, rec.Body.String(), "s3cret")
	if assert.Equal(t, 1, logs.Len()) {
		assert.NotContains(t, logs.All()[0].ContextMap()["error"], "s3cret")
	}
}

func TestWriteError_EchoesClientErrors(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteError(rec, zap.NewNop(), fmt.Errorf("%w: title must not be empty", apperrors.ErrValidation))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "title must not be empty")
}
