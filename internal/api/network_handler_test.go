package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tipnet/adapters/stats/estimator"
	"tipnet/adapters/stats/oracle"
	"tipnet/app"
	"tipnet/domain/core"
	"tipnet/domain/network"
	"tipnet/internal"
	"tipnet/internal/testkit"
)

func newTestRouter() *gin.Engine {
	logger := internal.NewWriterLogger(internal.LogLevelError, &bytes.Buffer{})
	cfg := oracle.DefaultConfig()
	cfg.Bins = 4
	cfg.Binning = estimator.EqualWidth
	cfg.Alpha = 0.001
	h := NewNetworkHandler(app.NewDiscoveryService(nil, nil, logger), network.Params{DTau: 1, TauMin: 1, TauMax: 4}, cfg, 4, logger)
	return NewRouter(h, gin.TestMode, logger)
}

func laggedCSV(t *testing.T, n int) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, testkit.WriteCSV(&b, testkit.MustGenerate(testkit.LaggedCopy(1, n, 11))))
	return b.String()
}

func multipartRequest(t *testing.T, csv string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if csv != "" {
		part, err := w.CreateFormFile("observations", "lagged.csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(csv))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/networks", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","persistence":false}`, rec.Body.String())
}

func TestDiscoverUpload(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, multipartRequest(t, laggedCSV(t, 1500), map[string]string{"taumax": "5"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		ID      string              `json:"id"`
		Source  string              `json:"source"`
		Params  network.Params      `json:"params"`
		Parents map[string][]string `json:"parents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	_, err := core.ParseRunID(resp.ID)
	assert.NoError(t, err)
	assert.Equal(t, "lagged.csv", resp.Source)
	assert.Equal(t, 5, resp.Params.TauMax)
	assert.Equal(t, []string{"x0(t-1)"}, resp.Parents["x1"])
	assert.Empty(t, resp.Parents["x0"])
}

func TestDiscoverUploadErrors(t *testing.T) {
	tests := []struct {
		name   string
		csv    string
		fields map[string]string
	}{
		{"missing file", "", nil},
		{"tau_min above tau_max", laggedCSV(t, 50), map[string]string{"taumin": "10", "taumax": "3"}},
		{"unknown test", laggedCSV(t, 50), map[string]string{"test": "ks"}},
		{"unknown column", laggedCSV(t, 50), map[string]string{"columns": "x0,nope"}},
		{"not a number", "a,b\n1,x\n", nil},
		{"bad form value", laggedCSV(t, 50), map[string]string{"dtau": "many"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newTestRouter().ServeHTTP(rec, multipartRequest(t, tt.csv, tt.fields))
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestGetRun(t *testing.T) {
	r := newTestRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/networks/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/networks/"+core.NewRunID().String(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRunsWithoutPersistence(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/networks", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"runs":[],"count":0}`, rec.Body.String())
}

func TestInfo(t *testing.T) {
	body := `{"columns":[[0,1,2,3,0,1,2,3],[0,1,2,3,0,1,2,3]],"bins":4,"binning":"equal_width"}`
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/info", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report app.InfoReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 8, report.Samples)
	assert.NotEmpty(t, report.Quantities)

	rec = httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/info", strings.NewReader(`{"columns":[]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfileUpload(t *testing.T) {
	csv := "day,sales,flat\n2024-01-02,3,1\n2024-01-01,1,1\n2024-01-03,8,1\n"
	req := multipartRequest(t, csv, map[string]string{"time_column": "day"})
	req.URL.Path = "/api/profile"

	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report app.ProfileReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 3, report.Samples)
	require.Len(t, report.Variables, 2)
	assert.Equal(t, "sales", report.Variables[0].Name)
	assert.Equal(t, 4.0, report.Variables[0].Mean)
	assert.True(t, report.Variables[1].Constant)

	req = multipartRequest(t, csv, map[string]string{"time_column": "when"})
	req.URL.Path = "/api/profile"
	rec = httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
