package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"busy_beaver/internal/beaver"
	"busy_beaver/internal/collectors"
	"busy_beaver/internal/config"
	"busy_beaver/internal/triggers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, cfg *config.Config) *httptest.Server {
	invocations := collectors.NewInvocationCollector()
	worker := triggers.NewWorker(beaver.DefaultOptions(), invocations)

	s := New(ServerParams{
		Config:      cfg,
		Logger:      zap.NewNop(),
		HTTPTrigger: triggers.NewHTTPTrigger(worker, "HttpTrigger"),
		Collectors:  []collectors.Collector{invocations},
	})

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func readBody(t *testing.T, resp *http.Response) string {
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestHTTPTriggerRoute_Query(t *testing.T) {
	ts := newTestServer(t, config.New())

	resp, err := http.Get(ts.URL + "/api/HttpTrigger?busySeconds=0.05")
	require.NoError(t, err)
	body := readBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var result struct {
		StartTime     string `json:"start_time"`
		EndTime       string `json:"end_time"`
		FunctionName  string `json:"function_name"`
		InvocationID  string `json:"invocation_id"`
		RandomNumbers []int  `json:"random_numbers"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &result))
	assert.Equal(t, "HttpTrigger", result.FunctionName)
	assert.NotEmpty(t, result.InvocationID)
	assert.Len(t, result.RandomNumbers, 3)
	assert.True(t, strings.HasSuffix(result.StartTime, "Z"))
}

func TestHTTPTriggerRoute_Body(t *testing.T) {
	ts := newTestServer(t, config.New())

	resp, err := http.Post(ts.URL+"/api/HttpTrigger", "application/json", strings.NewReader(`{"busySeconds": 0.05}`))
	require.NoError(t, err)
	readBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPTriggerRoute_Missing(t *testing.T) {
	ts := newTestServer(t, config.New())

	resp, err := http.Get(ts.URL + "/api/HttpTrigger")
	require.NoError(t, err)
	body := readBody(t, resp)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, triggers.MissingBusySecondsMessage, body)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))
}

func TestHTTPTriggerRoute_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, config.New())

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/HttpTrigger?busySeconds=1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	readBody(t, resp)

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHTTPTriggerRoute_Disabled(t *testing.T) {
	cfg := config.New()
	off := false
	cfg.Triggers.HTTP.Enabled = &off
	ts := newTestServer(t, cfg)

	resp, err := http.Get(ts.URL + "/api/HttpTrigger?busySeconds=1")
	require.NoError(t, err)
	readBody(t, resp)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, config.New())

	resp, err := http.Get(ts.URL + "/api/HttpTrigger?busySeconds=0")
	require.NoError(t, err)
	readBody(t, resp)
	resp, err = http.Get(ts.URL + "/api/HttpTrigger")
	require.NoError(t, err)
	readBody(t, resp)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body := readBody(t, resp)

	assert.Contains(t, body, `busy_beaver_invocations_total{outcome="ok",trigger="http"} 1`)
	assert.Contains(t, body, `busy_beaver_invocations_total{outcome="rejected",trigger="http"} 1`)
	assert.Contains(t, body, `busy_beaver_work_duration_seconds_count{trigger="http"} 1`)
}

func TestHealthAndInfo(t *testing.T) {
	ts := newTestServer(t, config.New())

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	assert.Contains(t, readBody(t, resp), `"status":"healthy"`)

	resp, err = http.Get(ts.URL + "/info")
	require.NoError(t, err)

	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &info))
	assert.Equal(t, "busy_beaver", info["service"])
	assert.Equal(t, map[string]any{"http": true, "blob": true, "queue": true, "timer": true}, info["triggers"])
}

type countingCollector struct {
	collectors.Collector
	calls int
}

func (c *countingCollector) Name() string { return "counting" }

func (c *countingCollector) CollectMetrics(ctx context.Context) error {
	c.calls++
	return errors.New("sampling failed")
}

func TestCollectAllMetrics_KeepsGoingOnError(t *testing.T) {
	first := &countingCollector{}
	second := &countingCollector{}
	s := &Server{
		config:     config.New(),
		logger:     zap.NewNop(),
		collectors: []collectors.Collector{first, second},
	}

	s.collectAllMetrics(context.Background())

	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}
