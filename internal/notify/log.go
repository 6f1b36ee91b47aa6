package notify

import (
	"context"
	"log/slog"

	"github.com/sharkusmanch/gd-backups/internal/domain"
)

// LogNotifier writes notifications to the application log. It stands in for
// the in-game notification popup when running outside the game.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the notification at a level matching its severity.
func (l *LogNotifier) Notify(ctx context.Context, n *domain.Notification) error {
	level := slog.LevelInfo
	switch n.Level {
	case domain.NotificationLevelWarning:
		level = slog.LevelWarn
	case domain.NotificationLevelError:
		level = slog.LevelError
	}

	attrs := []any{"body", n.Body}
	if n.RunID != "" {
		attrs = append(attrs, "run_id", n.RunID)
	}
	l.logger.Log(ctx, level, n.Title, attrs...)
	return nil
}

// Validate always succeeds.
func (l *LogNotifier) Validate(_ context.Context) error {
	return nil
}

var _ domain.Notifier = (*LogNotifier)(nil)
