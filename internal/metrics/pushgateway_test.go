package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharkusmanch/gd-backups/internal/domain"
	retryhttp "github.com/sharkusmanch/gd-backups/internal/http"
)

func fastClient() *retryhttp.Client {
	return retryhttp.NewClient(retryhttp.WithRetryConfig(retryhttp.RetryConfig{
		MaxAttempts:  2,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     20 * time.Millisecond,
	}))
}

func sampleRun() *domain.RunResult {
	r := domain.NewRunResult("run-1", false)
	r.BackupPath = "/backups/2024-03-15_10-30"
	r.Snapshots = 6
	r.AutoRemove = 4
	r.Cleaned = 2
	r.NestedFixed = 1
	r.Complete()
	return r
}

func TestPushgatewayClient_Push_Success(t *testing.T) {
	var receivedPath, receivedMethod string
	var receivedBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedPath = r.URL.Path
		receivedMethod = r.Method
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewPushgatewayClient(server.URL+"/", WithHTTPClient(fastClient()))

	metrics := domain.NewMetrics("test-host")
	metrics.Run = sampleRun()

	err := client.Push(context.Background(), metrics)

	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, receivedMethod)
	assert.Equal(t, "/metrics/job/gd_backups/instance/test-host", receivedPath)
	assert.NotEmpty(t, receivedBody)
}

func TestPushgatewayClient_Push_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad metrics"))
	}))
	defer server.Close()

	client := NewPushgatewayClient(server.URL, WithHTTPClient(fastClient()))

	err := client.Push(context.Background(), domain.NewMetrics("test-host"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestPushgatewayClient_Push_Unreachable(t *testing.T) {
	client := NewPushgatewayClient("http://localhost:1", WithHTTPClient(fastClient()))

	err := client.Push(context.Background(), domain.NewMetrics("test-host"))

	assert.Error(t, err)
}

func TestPushgatewayClient_Validate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewPushgatewayClient(server.URL)
	err := client.Validate(context.Background())

	assert.NoError(t, err)
}

func TestPushgatewayClient_Validate_Failure(t *testing.T) {
	client := NewPushgatewayClient("http://localhost:1")
	err := client.Validate(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not reachable")
}

func TestBuildRegistry(t *testing.T) {
	metrics := domain.NewMetrics("test-host")
	metrics.Run = sampleRun()

	reg := buildRegistry(metrics)

	expected := `
# HELP gd_backups_up Service is running
# TYPE gd_backups_up gauge
gd_backups_up 1
# HELP gd_backups_last_run_success Whether the last automatic backup run succeeded
# TYPE gd_backups_last_run_success gauge
gd_backups_last_run_success 1
# HELP gd_backups_snapshots Backups in the backup directory
# TYPE gd_backups_snapshots gauge
gd_backups_snapshots 6
# HELP gd_backups_last_run_cleaned Automatic backups removed by the last run
# TYPE gd_backups_last_run_cleaned gauge
gd_backups_last_run_cleaned 2
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"gd_backups_up", "gd_backups_last_run_success", "gd_backups_snapshots", "gd_backups_last_run_cleaned")
	assert.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "gd_backups_info", "gd_backups_last_run_skipped")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestBuildRegistry_SkippedRun(t *testing.T) {
	run := domain.NewRunResult("run-2", false)
	run.Skip(domain.SkipTooRecent)
	run.Complete()

	metrics := domain.NewMetrics("test-host")
	metrics.Run = run

	expected := `
# HELP gd_backups_last_run_skipped Whether the last run was skipped, by reason
# TYPE gd_backups_last_run_skipped gauge
gd_backups_last_run_skipped{reason="too_recent"} 1
`
	err := testutil.GatherAndCompare(buildRegistry(metrics), strings.NewReader(expected), "gd_backups_last_run_skipped")
	assert.NoError(t, err)
}

func TestBuildRegistry_ServiceDown(t *testing.T) {
	metrics := domain.NewMetrics("test-host")
	metrics.ServiceUp = false

	reg := buildRegistry(metrics)

	expected := `
# HELP gd_backups_up Service is running
# TYPE gd_backups_up gauge
gd_backups_up 0
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "gd_backups_up"))

	count, err := testutil.GatherAndCount(reg, "gd_backups_last_run_success")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMockPusher(t *testing.T) {
	mock := &MockPusher{PushFunc: func(context.Context, *domain.Metrics) error {
		return errors.New("boom")
	}}

	err := mock.Push(context.Background(), domain.NewMetrics("h"))

	assert.EqualError(t, err, "boom")
	assert.Len(t, mock.PushedMetrics, 1)
	mock.Reset()
	assert.Empty(t, mock.PushedMetrics)
}
