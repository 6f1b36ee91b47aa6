package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharkusmanch/gd-backups/internal/domain"
)

func TestMultiNotifier_NotifiesAll(t *testing.T) {
	failing := &MockNotifier{NotifyFunc: func(context.Context, *domain.Notification) error {
		return errors.New("apprise down")
	}}
	ok := &MockNotifier{}

	multi := NewMultiNotifier(failing, nil, ok)
	err := multi.Notify(context.Background(), domain.SuccessNotification("Save Data has been Backed Up!", ""))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "apprise down")
	assert.Len(t, failing.Notifications, 1)
	assert.Len(t, ok.Notifications, 1)
}

func TestMultiNotifier_Validate(t *testing.T) {
	multi := NewMultiNotifier(&MockNotifier{}, &MockNotifier{ValidateFunc: func(context.Context) error {
		return errors.New("unreachable")
	}})

	assert.EqualError(t, multi.Validate(context.Background()), "unreachable")
	assert.NoError(t, NewMultiNotifier().Validate(context.Background()))
}

func TestFilteredNotifier(t *testing.T) {
	next := &MockNotifier{}
	onlyErrors := NewFilteredNotifier(next, func(l domain.NotificationLevel) bool {
		return l == domain.NotificationLevelError
	})

	require.NoError(t, onlyErrors.Notify(context.Background(), domain.SuccessNotification("ok", "")))
	require.NoError(t, onlyErrors.Notify(context.Background(), domain.ErrorNotification("bad", "")))

	require.Len(t, next.Notifications, 1)
	assert.Equal(t, "bad", next.Notifications[0].Title)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	n := NewLogNotifier(logger)

	notification := domain.ErrorNotification("Failed to back up Save Data", "disk full")
	notification.RunID = "abc"
	require.NoError(t, n.Notify(context.Background(), notification))
	require.NoError(t, n.Notify(context.Background(), domain.WarningNotification("Cleanup failed", "")))

	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, `msg="Failed to back up Save Data"`)
	assert.Contains(t, out, "run_id=abc")
	assert.Contains(t, out, "level=WARN")
	assert.NoError(t, n.Validate(context.Background()))
}
