package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perflens/perflens/internal/analysis"
	"github.com/perflens/perflens/internal/cache"
	"github.com/perflens/perflens/internal/monitoring"
	"github.com/perflens/perflens/internal/report"
	"github.com/perflens/perflens/internal/types"
)

const fixtureReportJSON = `{
	"categories": {
		"performance": {
			"title": "Performance",
			"score": 0.62,
			"auditRefs": [
				{"id": "first-contentful-paint", "weight": 10},
				{"id": "largest-contentful-paint", "weight": 25},
				{"id": "total-blocking-time", "weight": 30},
				{"id": "cumulative-layout-shift", "weight": 25},
				{"id": "speed-index", "weight": 10}
			]
		}
	},
	"audits": {
		"first-contentful-paint": {"score": 0.55, "title": "First Contentful Paint", "displayValue": "2.8 s"},
		"largest-contentful-paint": {"score": 0.31, "title": "Largest Contentful Paint", "displayValue": "4.9 s"},
		"total-blocking-time": {"score": 0.45, "title": "Total Blocking Time", "displayValue": "680 ms"},
		"cumulative-layout-shift": {"score": 0.92, "title": "Cumulative Layout Shift", "displayValue": "0.08"},
		"speed-index": {"score": 0.7, "title": "Speed Index", "displayValue": "3.4 s"}
	}
}`

// stubCollector returns a canned report without touching a browser.
type stubCollector struct {
	rep   *report.Report
	err   error
	calls int
}

func (s *stubCollector) Collect(ctx context.Context, url string) (*report.Report, error) {
	s.calls++
	return s.rep, s.err
}

func newTestServer(collector reportCollector) *server {
	return &server{
		assembler: analysis.NewAssembler(analysis.DetectorConfig{}),
		collector: collector,
		cache:     cache.New(time.Minute),
		metrics:   monitoring.NewMetrics(),
		logger:    monitoring.NewLogger(),
	}
}

func newTestRouter(collector reportCollector) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return setupRouter(newTestServer(collector), nil)
}

func postAnalyze(t *testing.T, r *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req, err := http.NewRequest("POST", "/api/v1/analyze", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func decodeAnalyzeResponse(t *testing.T, w *httptest.ResponseRecorder) types.AnalyzeResponse {
	t.Helper()
	var resp types.AnalyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Content)
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(nil)

	tests := []struct {
		name           string
		method         string
		expectedStatus int
	}{
		{name: "GET returns ok", method: "GET", expectedStatus: http.StatusOK},
		{name: "POST not routed", method: "POST", expectedStatus: http.StatusNotFound},
		{name: "DELETE not routed", method: "DELETE", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(tt.method, "/health", nil)
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				var body map[string]interface{}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, "ok", body["status"])
				assert.Contains(t, body, "version")
			}
		})
	}
}

func TestAnalyzeEndpoint_ReportData(t *testing.T) {
	r := newTestRouter(nil)

	body, err := json.Marshal(map[string]interface{}{
		"reportData": json.RawMessage(fixtureReportJSON),
	})
	require.NoError(t, err)

	w := postAnalyze(t, r, string(body))
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeAnalyzeResponse(t, w)
	assert.Equal(t, "text", resp.Content[0].Type)

	text := resp.Content[0].Text
	assert.Contains(t, text, "# Deep Performance Analysis")
	assert.Contains(t, text, "## Performance Scores")
	assert.Contains(t, text, "## Core Web Vitals")
	assert.Contains(t, text, "## Prioritized Recommendations")
	assert.Contains(t, text, "Largest Contentful Paint")

	// Optional sections stay out unless asked for.
	assert.NotContains(t, text, "## Critical Request Chains")
	assert.NotContains(t, text, "## Unused Code")
}

func TestAnalyzeEndpoint_OptionsPassedThrough(t *testing.T) {
	r := newTestRouter(nil)

	body, err := json.Marshal(map[string]interface{}{
		"reportData":         json.RawMessage(fixtureReportJSON),
		"includeChains":      true,
		"includeUnusedCode":  true,
		"maxRecommendations": 2,
	})
	require.NoError(t, err)

	w := postAnalyze(t, r, string(body))
	require.Equal(t, http.StatusOK, w.Code)

	text := decodeAnalyzeResponse(t, w).Content[0].Text
	assert.Contains(t, text, "## Critical Request Chains")
	assert.Contains(t, text, "## Unused Code")
}

func TestAnalyzeEndpoint_InvalidRequests(t *testing.T) {
	r := newTestRouter(nil)

	tests := []struct {
		name string
		body string
	}{
		{name: "body is not JSON", body: "not-json{"},
		{name: "neither reportData nor url", body: "{}"},
		{name: "reportData is not JSON", body: `{"reportData": "plain text report"}`},
		{name: "url is only whitespace", body: `{"url": "   "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postAnalyze(t, r, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			// Rejections carry a structured error body, never an empty 500.
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body)
		})
	}
}

func TestAnalyzeEndpoint_URLUsesCollector(t *testing.T) {
	rep, err := report.Parse([]byte(fixtureReportJSON))
	require.NoError(t, err)

	stub := &stubCollector{rep: rep}
	r := newTestRouter(stub)

	w := postAnalyze(t, r, `{"url": "https://example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, stub.calls)

	text := decodeAnalyzeResponse(t, w).Content[0].Text
	assert.Contains(t, text, "# Deep Performance Analysis")
}

func TestAnalyzeEndpoint_URLResultIsCached(t *testing.T) {
	rep, err := report.Parse([]byte(fixtureReportJSON))
	require.NoError(t, err)

	stub := &stubCollector{rep: rep}
	r := newTestRouter(stub)

	first := postAnalyze(t, r, `{"url": "https://example.com"}`)
	require.Equal(t, http.StatusOK, first.Code)
	second := postAnalyze(t, r, `{"url": "https://example.com"}`)
	require.Equal(t, http.StatusOK, second.Code)

	assert.Equal(t, 1, stub.calls, "second request should be served from cache")
	assert.Equal(t, decodeAnalyzeResponse(t, first).Content[0].Text,
		decodeAnalyzeResponse(t, second).Content[0].Text)

	// Different options miss the cache.
	third := postAnalyze(t, r, `{"url": "https://example.com", "includeChains": true}`)
	require.Equal(t, http.StatusOK, third.Code)
	assert.Equal(t, 2, stub.calls)
}

func TestAnalyzeEndpoint_CollectorNotConfigured(t *testing.T) {
	r := newTestRouter(nil)

	w := postAnalyze(t, r, `{"url": "https://example.com"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAnalyzeEndpoint_CollectorFailure(t *testing.T) {
	stub := &stubCollector{err: context.DeadlineExceeded}
	r := newTestRouter(stub)

	w := postAnalyze(t, r, `{"url": "https://example.com"}`)
	assert.GreaterOrEqual(t, w.Code, 400)
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(nil)

	// Drive one analysis through so counters move.
	body, _ := json.Marshal(map[string]interface{}{
		"reportData": json.RawMessage(fixtureReportJSON),
	})
	postAnalyze(t, r, string(body))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/metrics", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Contains(t, stats, "request_count")
	assert.Contains(t, stats, "analyze_count")
	assert.EqualValues(t, 1, stats["analyze_count"])
	assert.Contains(t, stats, "cache")
}
