package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sharkusmanch/gd-backups/internal/domain"
)

// MultiNotifier sends notifications to multiple notifiers.
type MultiNotifier struct {
	notifiers []domain.Notifier
	logger    *slog.Logger
}

// NewMultiNotifier creates a new MultiNotifier. Nil notifiers are skipped.
func NewMultiNotifier(notifiers ...domain.Notifier) *MultiNotifier {
	m := &MultiNotifier{logger: slog.Default()}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

// Notify sends a notification to all configured notifiers.
// Returns an error if any notifier fails, but attempts all notifiers.
func (m *MultiNotifier) Notify(ctx context.Context, notification *domain.Notification) error {
	var errs []error

	for _, notifier := range m.notifiers {
		if err := notifier.Notify(ctx, notification); err != nil {
			m.logger.Warn("notifier failed", "error", err, "run_id", notification.RunID)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Validate validates all configured notifiers.
func (m *MultiNotifier) Validate(ctx context.Context) error {
	var errs []error

	for _, notifier := range m.notifiers {
		if err := notifier.Validate(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// FilteredNotifier forwards only notifications whose level passes allow.
type FilteredNotifier struct {
	next  domain.Notifier
	allow func(domain.NotificationLevel) bool
}

// NewFilteredNotifier wraps next with a level filter.
func NewFilteredNotifier(next domain.Notifier, allow func(domain.NotificationLevel) bool) *FilteredNotifier {
	return &FilteredNotifier{next: next, allow: allow}
}

// Notify forwards the notification if its level is allowed.
func (f *FilteredNotifier) Notify(ctx context.Context, notification *domain.Notification) error {
	if !f.allow(notification.Level) {
		return nil
	}
	return f.next.Notify(ctx, notification)
}

// Validate validates the wrapped notifier.
func (f *FilteredNotifier) Validate(ctx context.Context) error {
	return f.next.Validate(ctx)
}

var (
	_ domain.Notifier = (*MultiNotifier)(nil)
	_ domain.Notifier = (*FilteredNotifier)(nil)
)
