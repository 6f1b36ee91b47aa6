package domain

import "context"

// NotificationLevel represents the severity of a notification.
type NotificationLevel string

const (
	// NotificationLevelSuccess is for completed backups.
	NotificationLevelSuccess NotificationLevel = "success"
	// NotificationLevelInfo is for informational messages.
	NotificationLevelInfo NotificationLevel = "info"
	// NotificationLevelWarning is for problems that did not stop the backup.
	NotificationLevelWarning NotificationLevel = "warning"
	// NotificationLevelError is for failed backups.
	NotificationLevelError NotificationLevel = "error"
)

// Notification is a user-facing message about background backup activity.
type Notification struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Level NotificationLevel `json:"level"`
	RunID string            `json:"run_id,omitempty"`
}

// NewNotification creates a new notification.
func NewNotification(title, body string, level NotificationLevel) *Notification {
	return &Notification{
		Title: title,
		Body:  body,
		Level: level,
	}
}

// SuccessNotification creates a success-level notification.
func SuccessNotification(title, body string) *Notification {
	return NewNotification(title, body, NotificationLevelSuccess)
}

// WarningNotification creates a warning-level notification.
func WarningNotification(title, body string) *Notification {
	return NewNotification(title, body, NotificationLevelWarning)
}

// ErrorNotification creates an error-level notification.
func ErrorNotification(title, body string) *Notification {
	return NewNotification(title, body, NotificationLevelError)
}

// Notifier is the sink informed of background backup outcomes.
// It is never consulted for decisions.
type Notifier interface {
	Notify(ctx context.Context, notification *Notification) error
	Validate(ctx context.Context) error
}

// NopNotifier drops every notification.
type NopNotifier struct{}

// Notify does nothing.
func (n *NopNotifier) Notify(_ context.Context, _ *Notification) error {
	return nil
}

// Validate always returns nil.
func (n *NopNotifier) Validate(_ context.Context) error {
	return nil
}
