package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/nautilus-reporting/pkg/apperrors"
	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
)

func TestParseListFilter_Defaults(t *testing.T) {
	f, err := parseListFilter(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, models.DefaultPageSize, f.Limit)
	assert.Nil(t, f.DateFrom)
	assert.Nil(t, f.UserID)
}

func TestParseListFilter_ClampsLimit(t *testing.T) {
	f, err := parseListFilter(url.Values{"limit": {"5000"}, "page": {"-3"}})
	require.NoError(t, err)
	assert.Equal(t, models.MaxPageSize, f.Limit)
	assert.Equal(t, 1, f.Page)
}

func TestParseListFilter_UserID(t *testing.T) {
	f, err := parseListFilter(url.Values{"user_id": {"42"}})
	require.NoError(t, err)
	require.NotNil(t, f.UserID)
	assert.Equal(t, int64(42), *f.UserID)
}

func TestParseListFilter_Errors(t *testing.T) {
	for _, q := range []url.Values{
		{"limit": {"ten"}},
		{"date_to": {"14/03/2026"}},
		{"date_from": {"2026-03-10"}, "date_to": {"2026-03-09"}},
		{"user_id": {"0"}},
	} {
		_, err := parseListFilter(q)
		assert.ErrorIs(t, err, apperrors.ErrValidation, q.Encode())
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		value string
		want  int64
		ok    bool
	}{
		{"17", 17, true},
		{"0", 0, false},
		{"-1", 0, false},
		{"x1", 0, false},
		{"99999999999999999999", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/reports/"+tt.value, nil)
			req.SetPathValue("id", tt.value)
			rec := httptest.NewRecorder()

			id, ok := ParseID(rec, req, zap.NewNop())
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, id)
			if !ok {
				assert.Equal(t, http.StatusBadRequest, rec.Code)
				assert.Contains(t, rec.Body.String(), "invalid_id")
			}
		})
	}
}
