package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
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

func TestAppriseClient_Notify_Success(t *testing.T) {
	var receivedBody appriseRequest
	var receivedPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&receivedBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewAppriseClient(server.URL, "test-key")

	notification := domain.ErrorNotification("Failed to back up Save Data", "unable to create backup: permission denied (code 13)")
	err := client.Notify(context.Background(), notification)

	require.NoError(t, err)
	assert.Equal(t, "/notify/test-key", receivedPath)
	assert.Equal(t, "Failed to back up Save Data", receivedBody.Title)
	assert.Contains(t, receivedBody.Body, "permission denied")
	assert.Equal(t, "failure", receivedBody.Type)
	assert.Empty(t, receivedBody.Tag)
}

func TestAppriseClient_Notify_Tag(t *testing.T) {
	var receivedBody appriseRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&receivedBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewAppriseClient(server.URL+"/", "test-key", WithTag("gaming"))
	err := client.Notify(context.Background(), domain.SuccessNotification("Save Data has been Backed Up!", ""))

	require.NoError(t, err)
	assert.Equal(t, "gaming", receivedBody.Tag)
	assert.Equal(t, "success", receivedBody.Type)
}

func TestAppriseClient_Notify_TruncatesLongBody(t *testing.T) {
	var receivedBody appriseRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&receivedBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewAppriseClient(server.URL, "test-key")

	longBody := strings.Repeat("a", 1500)
	notification := domain.NewNotification("Title", longBody, domain.NotificationLevelInfo)

	err := client.Notify(context.Background(), notification)

	require.NoError(t, err)
	assert.LessOrEqual(t, len(receivedBody.Body), maxBodyLength)
	assert.True(t, strings.HasSuffix(receivedBody.Body, "..."))
}

func TestAppriseClient_Notify_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("server error"))
	}))
	defer server.Close()

	client := NewAppriseClient(server.URL, "test-key", WithHTTPClient(fastClient()))
	notification := domain.NewNotification("Title", "Body", domain.NotificationLevelError)

	err := client.Notify(context.Background(), notification)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestAppriseClient_Validate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewAppriseClient(server.URL, "test-key")
	err := client.Validate(context.Background())

	assert.NoError(t, err)
}

func TestAppriseClient_Validate_Failure(t *testing.T) {
	client := NewAppriseClient("http://localhost:1", "test-key")
	err := client.Validate(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not reachable")
}

func TestAppriseClient_MapLevel(t *testing.T) {
	client := NewAppriseClient("http://localhost", "key")

	tests := []struct {
		level    domain.NotificationLevel
		expected string
	}{
		{domain.NotificationLevelSuccess, "success"},
		{domain.NotificationLevelInfo, "info"},
		{domain.NotificationLevelWarning, "warning"},
		{domain.NotificationLevelError, "failure"},
		{domain.NotificationLevel("unknown"), "info"},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			result := client.mapLevel(tt.level)
			assert.Equal(t, tt.expected, result)
		})
	}
}
