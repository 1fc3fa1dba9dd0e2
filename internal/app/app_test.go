package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsMux_Endpoints(t *testing.T) {
	deps := newMemoryDeps(t)
	server := httptest.NewServer(newMetricsMux(newHealthHandler(DefaultConfig(), deps)))
	defer server.Close()

	for path, want := range map[string]int{
		"/metrics": http.StatusOK,
		"/healthz": http.StatusOK,
		"/readyz":  http.StatusOK,
		"/livez":   http.StatusOK,
	} {
		resp, err := http.Get(server.URL + path)
		require.NoError(t, err, path)
		_ = resp.Body.Close()
		assert.Equal(t, want, resp.StatusCode, path)
	}
}

func TestNewAdminServer_RegistersHealth(t *testing.T) {
	server, healthServer := newAdminServer(quietLogger())
	defer server.Stop()

	require.NotNil(t, healthServer)
	info := server.GetServiceInfo()
	assert.Contains(t, info, "grpc.health.v1.Health")
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled), "unexpected error: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = "sqlite"
	assert.Error(t, Run(context.Background(), cfg))
}
