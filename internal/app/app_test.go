package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *Application {
	t.Helper()
	t.Setenv("SALES_SECURITY_RATE_LIMIT_ENABLED", "false")
	t.Setenv("SALES_LOGGING_LEVEL", "error")

	a, err := New("")
	require.NoError(t, err)
	return a
}

// doJSON sends a request carrying the session cookie and decodes the body.
func doJSON(t *testing.T, a *Application, cookie *http.Cookie, method, path string, body []byte, out interface{}) (*httptest.ResponseRecorder, *http.Cookie) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name == "si_session" {
			cookie = c
		}
	}
	if out != nil && rec.Code < 300 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec, cookie
}

func TestHealthz(t *testing.T) {
	a := newTestApp(t)

	rec, _ := doJSON(t, a, nil, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	a := newTestApp(t)

	doJSON(t, a, nil, http.MethodGet, "/healthz", nil, nil)
	rec, _ := doJSON(t, a, nil, http.MethodGet, "/metrics", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "salesinsights_http_requests_total")
}

func TestDataWithoutSessionDataset(t *testing.T) {
	a := newTestApp(t)

	rec, _ := doJSON(t, a, nil, http.MethodGet, "/api/data", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestSampleWorkflow(t *testing.T) {
	a := newTestApp(t)

	var overview struct {
		Source   string `json:"source"`
		RowCount int    `json:"row_count"`
	}
	rec, cookie := doJSON(t, a, nil, http.MethodPost, "/api/data/sample", nil, &overview)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, cookie, "sample load must establish a session cookie")
	assert.Equal(t, "sample", overview.Source)
	assert.Equal(t, 24, overview.RowCount)

	var totals struct {
		GrandTotal float64 `json:"grand_total"`
	}
	rec, _ = doJSON(t, a, cookie, http.MethodGet, "/api/analytics/totals", nil, &totals)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Greater(t, totals.GrandTotal, 0.0)

	var insights struct {
		Items []struct {
			Metric string `json:"metric"`
		} `json:"items"`
	}
	rec, _ = doJSON(t, a, cookie, http.MethodGet, "/api/insights", nil, &insights)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, insights.Items)

	pivot := []byte(`{"row_fields":["Branch"],"value_field":"Sales","aggregation":"sum"}`)
	var pivotResult struct {
		RowKeys []string `json:"row_keys"`
	}
	rec, _ = doJSON(t, a, cookie, http.MethodPost, "/api/analytics/pivot", pivot, &pivotResult)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "All", pivotResult.RowKeys[len(pivotResult.RowKeys)-1])

	forecastBody := []byte(`{"value_column":"Sales","date_column":"Date","horizon":3,"frequency":"M"}`)
	var forecastResult struct {
		Degree     int `json:"degree"`
		Projection []struct {
			Forecast float64 `json:"forecast"`
			Lower    float64 `json:"lower"`
			Upper    float64 `json:"upper"`
		} `json:"projection"`
	}
	rec, _ = doJSON(t, a, cookie, http.MethodPost, "/api/forecast", forecastBody, &forecastResult)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, forecastResult.Degree)
	require.Len(t, forecastResult.Projection, 3)
	for _, p := range forecastResult.Projection {
		assert.LessOrEqual(t, p.Lower, p.Forecast)
		assert.GreaterOrEqual(t, p.Upper, p.Forecast)
	}
}

func TestUploadCSV(t *testing.T) {
	a := newTestApp(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "sales.csv")
	require.NoError(t, err)
	fmt.Fprint(part, "Branch,Revenue\nNorth,100\nSouth,200\n")
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/data/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"source":"sales.csv"`)
	assert.Contains(t, rec.Body.String(), `"row_count":2`)
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	a := newTestApp(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "empty.csv")
	require.NoError(t, err)
	fmt.Fprint(part, "\n\n")
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/data/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "EMPTY_TABLE")
}

func TestPivotValidation(t *testing.T) {
	a := newTestApp(t)
	_, cookie := doJSON(t, a, nil, http.MethodPost, "/api/data/sample", nil, nil)

	rec, _ := doJSON(t, a, cookie, http.MethodPost, "/api/analytics/pivot",
		[]byte(`{"row_fields":["Branch"],"value_field":"Sales","aggregation":"variance"}`), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION")
}

func TestExportCSV(t *testing.T) {
	a := newTestApp(t)
	_, cookie := doJSON(t, a, nil, http.MethodPost, "/api/data/sample", nil, nil)

	rec, _ := doJSON(t, a, cookie, http.MethodGet, "/api/export/csv", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "sales_data.csv")
	assert.Contains(t, rec.Body.String(), "Branch")
}

func TestExportUnknownFormat(t *testing.T) {
	a := newTestApp(t)
	_, cookie := doJSON(t, a, nil, http.MethodPost, "/api/data/sample", nil, nil)

	rec, _ := doJSON(t, a, cookie, http.MethodGet, "/api/export/docx", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionsIsolatedByCookie(t *testing.T) {
	a := newTestApp(t)
	_, first := doJSON(t, a, nil, http.MethodPost, "/api/data/sample", nil, nil)
	require.NotNil(t, first)

	// A request without the cookie gets a fresh session with no dataset.
	rec, second := doJSON(t, a, nil, http.MethodGet, "/api/data", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, second)
	assert.NotEqual(t, first.Value, second.Value)

	// The original session still has its data.
	rec, _ = doJSON(t, a, first, http.MethodGet, "/api/data", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
