package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/nautilus-reporting/pkg/apperrors"
	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
	"github.com/ekaya-inc/nautilus-reporting/pkg/policy"
)

func doRequest(t *testing.T, mux http.Handler, method, path, authz, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if authz != "" {
		req.Header.Set("Authorization", "Bearer "+authz)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) ApiResponse {
	t.Helper()
	var resp ApiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestRecordHandler_RequiresAuth(t *testing.T) {
	mux := newTestMux(t, Services{Reports: &mockReportService{}})

	rec := doRequest(t, mux, http.MethodGet, "/api/reports", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRecordHandler_List(t *testing.T) {
	reports := &mockReportService{}
	reports.page = &models.Page[models.Report]{
		Items:      []*models.Report{{ID: 1, Title: "Monday"}},
		Pagination: models.Pagination{Page: 2, Limit: 10, Total: 11, TotalPages: 2},
	}
	mux := newTestMux(t, Services{Reports: reports})

	rec := doRequest(t, mux, http.MethodGet,
		"/api/reports?page=2&limit=10&status=draft&search=deploy&date_from=2026-03-01&date_to=2026-03-31",
		"programmer:7", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeEnvelope(t, rec)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Pagination)
	assert.Equal(t, 11, resp.Pagination.Total)

	f := reports.capturedFilter
	assert.Equal(t, 2, f.Page)
	assert.Equal(t, 10, f.Limit)
	assert.Equal(t, "draft", f.Status)
	assert.Equal(t, "deploy", f.Search)
	require.NotNil(t, f.DateFrom)
	require.NotNil(t, f.DateTo)
}

func TestRecordHandler_ListEmptyIsArray(t *testing.T) {
	reports := &mockReportService{}
	reports.page = &models.Page[models.Report]{}
	mux := newTestMux(t, Services{Reports: reports})

	rec := doRequest(t, mux, http.MethodGet, "/api/reports", "programmer:7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestRecordHandler_ListBadQuery(t *testing.T) {
	mux := newTestMux(t, Services{Reports: &mockReportService{}})

	for _, q := range []string{"page=x", "date_from=yesterday", "date_from=2026-03-02&date_to=2026-03-01", "user_id=-4"} {
		rec := doRequest(t, mux, http.MethodGet, "/api/reports?"+q, "admin:1", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestRecordHandler_CreatePassesNumbersAsJSONNumber(t *testing.T) {
	reports := &mockReportService{}
	reports.record = &models.Report{ID: 5}
	mux := newTestMux(t, Services{Reports: reports})

	rec := doRequest(t, mux, http.MethodPost, "/api/reports", "programmer:7",
		`{"title":"Friday","report_date":"2026-03-14","hours_worked":7.5}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, json.Number("7.5"), reports.capturedRaw["hours_worked"])
}

func TestRecordHandler_CreateRejectsBadBody(t *testing.T) {
	mux := newTestMux(t, Services{Reports: &mockReportService{}})

	for _, body := range []string{`[1,2]`, `not json`, `{"a":1}{"b":2}`, `null`} {
		rec := doRequest(t, mux, http.MethodPost, "/api/reports", "programmer:7", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestRecordHandler_UpdateReportsDeniedFields(t *testing.T) {
	reports := &mockReportService{}
	reports.record = &models.Report{ID: 3, Title: "Fixed"}
	reports.denied = []string{"review_notes"}
	mux := newTestMux(t, Services{Reports: reports})

	rec := doRequest(t, mux, http.MethodPut, "/api/reports/3", "programmer:7",
		`{"title":"Fixed","review_notes":"self-approved"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeEnvelope(t, rec)
	assert.Equal(t, []string{"review_notes"}, resp.Denied)
	assert.Equal(t, int64(3), reports.capturedID)
}

func TestRecordHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"policy violation", &policy.ViolationError{Entity: models.EntityReport, RecordID: 3, PrincipalID: 7, Reason: "modify"}, http.StatusForbidden, "forbidden"},
		{"validation", fmt.Errorf("%w: title must not be empty", apperrors.ErrValidation), http.StatusBadRequest, "validation_error"},
		{"not found", fmt.Errorf("report 3: %w", apperrors.ErrNotFound), http.StatusNotFound, "not_found"},
		{"conflict", fmt.Errorf("create report: %w", apperrors.ErrConflict), http.StatusConflict, "conflict"},
		{"internal", fmt.Errorf("dial tcp: password=hunter2 refused"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reports := &mockReportService{}
			reports.err = tt.err
			mux := newTestMux(t, Services{Reports: reports})

			rec := doRequest(t, mux, http.MethodPut, "/api/reports/3", "programmer:7", `{"title":"x"}`)
			assert.Equal(t, tt.status, rec.Code)

			resp := decodeEnvelope(t, rec)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Error)
			assert.NotContains(t, rec.Body.String(), "hunter2")
		})
	}
}

func TestRecordHandler_InvalidID(t *testing.T) {
	mux := newTestMux(t, Services{Reports: &mockReportService{}})

	rec := doRequest(t, mux, http.MethodGet, "/api/reports/abc", "programmer:7", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, mux, http.MethodDelete, "/api/reports/0", "programmer:7", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordHandler_Delete(t *testing.T) {
	reports := &mockReportService{}
	mux := newTestMux(t, Services{Reports: reports})

	rec := doRequest(t, mux, http.MethodDelete, "/api/reports/9", "programmer:7", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(9), reports.capturedID)
}
