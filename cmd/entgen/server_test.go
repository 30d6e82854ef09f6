package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/entgen/compiler/gen"
)

func TestHealthz(t *testing.T) {
	h := &health{}
	srv := httptest.NewServer(newRouter(prometheus.NewRegistry(), h))
	defer srv.Close()

	get := func() (int, HealthResponse) {
		t.Helper()
		resp, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
		var body HealthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return resp.StatusCode, body
	}

	code, body := get()
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "starting", body.Status)

	h.ok(3, 20*time.Millisecond)
	code, body = get()
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 3, body.Entities)
	assert.Equal(t, "20ms", body.Duration)

	h.fail(errors.New("load: entity \"Note\" declared twice"))
	code, body = get()
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "failing", body.Status)
	assert.Contains(t, body.Error, "declared twice")
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := gen.NewMetrics(reg)
	require.NoError(t, err)
	srv := httptest.NewServer(newRouter(reg, &health{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
